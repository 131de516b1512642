package repositories_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
	"skillswap/pkg/database"
	appErr "skillswap/pkg/errors"

	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

type storeFactory func(t *testing.T) *repositories.Store

var backends = map[string]storeFactory{
	"memory": func(t *testing.T) *repositories.Store {
		return repositories.NewMemoryStore()
	},
	"file": func(t *testing.T) *repositories.Store {
		return repositories.NewFileStore(t.TempDir())
	},
	"sqlite": func(t *testing.T) *repositories.Store {
		dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
		db, err := database.Open(context.Background(), "sqlite", dsn, zap.NewNop(), gormlogger.Silent)
		require.NoError(t, err)
		require.NoError(t, database.Migrate(db))
		s := repositories.NewGORMStore(db)
		t.Cleanup(func() { _ = s.Close() })
		return s
	},
}

func eachBackend(t *testing.T, fn func(t *testing.T, s *repositories.Store)) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func newUser(name, email string, created time.Time) *models.User {
	u := &models.User{Name: name, Email: email, PasswordHash: "hash"}
	u.PrepareCreate(created)
	return u
}

func TestUserRepositoryContract(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Store) {
		ctx := context.Background()
		base := time.Now().Add(-time.Hour).UTC().Truncate(time.Millisecond)

		alice := newUser("Alice Johnson", "Alice@Example.com", base)
		alice.Location = "Seattle, WA"
		alice.SkillsOffered = []models.Skill{{Name: "Guitar", Level: "Expert"}}
		require.NoError(t, s.Users.Create(ctx, alice))
		bob := newUser("Bob Smith", "bob@example.com", base.Add(time.Minute))
		require.NoError(t, s.Users.Create(ctx, bob))

		err := s.Users.Create(ctx, newUser("Other", "ALICE@example.com", base))
		assert.True(t, appErr.IsCode(err, appErr.CodeConflict), "got %v", err)

		got, err := s.Users.FindByEmail(ctx, "alice@EXAMPLE.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, "Guitar", got.SkillsOffered[0].Name)

		all, err := s.Users.FindAll(ctx, models.UserFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, alice.ID, all[0].ID)

		seattle, err := s.Users.FindAll(ctx, models.UserFilter{Location: "seattle", IsBanned: models.Bool(false)})
		require.NoError(t, err)
		require.Len(t, seattle, 1)
		assert.Equal(t, alice.ID, seattle[0].ID)

		updated, err := s.Users.Update(ctx, bob.ID, models.UserPatch{IsBanned: models.Bool(true), BanReason: models.String("spam")})
		require.NoError(t, err)
		assert.True(t, updated.IsBanned)
		assert.Equal(t, "Bob Smith", updated.Name)

		reread, err := s.Users.FindByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "spam", reread.BanReason)

		_, err = s.Users.Update(ctx, "missing", models.UserPatch{Name: models.String("x")})
		assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))

		require.NoError(t, s.Users.Delete(ctx, bob.ID))
		_, err = s.Users.FindByID(ctx, bob.ID)
		assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
		assert.True(t, appErr.IsCode(s.Users.Delete(ctx, bob.ID), appErr.CodeNotFound))
	})
}

func TestSwapRepositoryContract(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Store) {
		ctx := context.Background()
		base := time.Now().Add(-time.Hour).UTC()

		first := &models.Swap{RequesterID: "alice", ProviderID: "bob", OfferedSkill: models.SkillTerm{Name: "Guitar"}}
		first.PrepareCreate(base)
		second := &models.Swap{RequesterID: "carol", ProviderID: "alice"}
		second.PrepareCreate(base.Add(time.Minute))
		require.NoError(t, s.Swaps.Create(ctx, first))
		require.NoError(t, s.Swaps.Create(ctx, second))

		mine, err := s.Swaps.FindAll(ctx, models.SwapFilter{Participant: "alice"})
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, first.ID, mine[0].ID)

		bobs, err := s.Swaps.FindAll(ctx, models.SwapFilter{ProviderID: "bob", Status: models.SwapPending})
		require.NoError(t, err)
		require.Len(t, bobs, 1)
		assert.Equal(t, "Guitar", bobs[0].OfferedSkill.Name)

		accepted := models.SwapAccepted
		fb := &models.Feedback{Rating: 5, Comment: "great", SubmittedAt: base}
		updated, err := s.Swaps.Update(ctx, first.ID, models.SwapPatch{Status: &accepted, RequesterFeedback: fb})
		require.NoError(t, err)
		assert.Equal(t, models.SwapAccepted, updated.Status)
		require.NotNil(t, updated.RequesterFeedback)
		assert.Equal(t, 5, updated.RequesterFeedback.Rating)
		assert.Nil(t, updated.ProviderFeedback)

		reported, err := s.Swaps.FindAll(ctx, models.SwapFilter{IsReported: models.Bool(true)})
		require.NoError(t, err)
		assert.Empty(t, reported)

		require.NoError(t, s.Swaps.Delete(ctx, second.ID))
		_, err = s.Swaps.FindByID(ctx, second.ID)
		assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	})
}

func TestMessageRepositoryContract(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Store) {
		ctx := context.Background()

		msg := &models.PlatformMessage{Title: "Maintenance window", Content: "Sunday", Type: "maintenance", Priority: "high"}
		msg.PrepareCreate(time.Now().UTC())
		require.NoError(t, s.Messages.Create(ctx, msg))

		found, err := s.Messages.FindAll(ctx, models.MessageFilter{Title: "MAINT", IsActive: models.Bool(true)})
		require.NoError(t, err)
		require.Len(t, found, 1)

		receipts := []models.ReadReceipt{{UserID: "u1", ReadAt: time.Now().UTC()}}
		updated, err := s.Messages.Update(ctx, msg.ID, models.MessagePatch{ReadBy: &receipts, IsActive: models.Bool(false)})
		require.NoError(t, err)
		assert.True(t, updated.ReadByUser("u1"))
		assert.False(t, updated.IsActive)

		none, err := s.Messages.FindAll(ctx, models.MessageFilter{IsActive: models.Bool(true)})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

// Fiber hands out params that point into request buffers it reuses. An update
// through such an id must not leave the record keyed by those bytes.
func TestUpdateWithReusedIDBuffer(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Store) {
		ctx := context.Background()
		alice := newUser("Alice", "alice@example.com", time.Now().Add(-time.Minute))
		bob := newUser("Bob", "bob@example.com", time.Now())
		require.NoError(t, s.Users.Create(ctx, alice))
		require.NoError(t, s.Users.Create(ctx, bob))

		buf := []byte(alice.ID)
		id := utils.UnsafeString(buf)
		_, err := s.Users.Update(ctx, id, models.UserPatch{IsBanned: models.Bool(true)})
		require.NoError(t, err)

		copy(buf, bob.ID)
		_, err = s.Users.Update(ctx, id, models.UserPatch{IsBanned: models.Bool(true)})
		require.NoError(t, err)

		got, err := s.Users.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.True(t, got.IsBanned)

		banned, err := s.Users.FindAll(ctx, models.UserFilter{IsBanned: models.Bool(true)})
		require.NoError(t, err)
		assert.Len(t, banned, 2)
	})
}

func TestConcurrentDisjointPatches(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *repositories.Store) {
		ctx := context.Background()
		u := newUser("Alice", "alice@example.com", time.Now())
		require.NoError(t, s.Users.Create(ctx, u))

		const rounds = 10
		var wg sync.WaitGroup
		errs := make(chan error, 2*rounds)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 1; i <= rounds; i++ {
				_, err := s.Users.Update(ctx, u.ID, models.UserPatch{Bio: models.String(fmt.Sprintf("bio-%d", i))})
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			for i := 1; i <= rounds; i++ {
				_, err := s.Users.Update(ctx, u.ID, models.UserPatch{Rating: &models.Rating{Average: 4, Count: i}})
				errs <- err
			}
		}()
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := s.Users.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("bio-%d", rounds), got.Bio)
		assert.Equal(t, models.Rating{Average: 4, Count: rounds}, got.Rating)
		assert.Equal(t, "Alice", got.Name)
	})
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryUserRepository()
	u := newUser("Alice", "alice@example.com", time.Now())
	u.SkillsOffered = []models.Skill{{Name: "Guitar"}}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	got.SkillsOffered[0].Name = "Changed"

	again, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Guitar", again.SkillsOffered[0].Name)
}

func TestFileRepositoryPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	u := newUser("Alice", "alice@example.com", time.Now())
	require.NoError(t, repositories.NewFileUserRepository(dir).Create(ctx, u))

	got, err := repositories.NewFileUserRepository(dir).FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = os.Stat(filepath.Join(dir, "users.json"))
	assert.NoError(t, err)
}

func TestFileRepositoryMissingAndCorruptFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := repositories.NewFileSwapRepository(dir)

	swaps, err := repo.FindAll(ctx, models.SwapFilter{})
	require.NoError(t, err)
	assert.Empty(t, swaps)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "swaps.json"), []byte("{not json"), 0o644))
	_, err = repo.FindAll(ctx, models.SwapFilter{})
	assert.Error(t, err)
}

func TestFileRepositoryConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewFileSwapRepository(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := &models.Swap{RequesterID: "a", ProviderID: "b"}
			s.PrepareCreate(time.Now())
			assert.NoError(t, repo.Create(ctx, s))
		}()
	}
	wg.Wait()

	all, err := repo.FindAll(ctx, models.SwapFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 20)
}
