package services_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
	"skillswap/internal/services"
	appErr "skillswap/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	svc := services.NewUserService(store.Users, t.TempDir(), zap.NewNop())

	seedUser(t, store, "alice", func(u *models.User) {
		u.Location = "Seattle"
		u.Rating = models.Rating{Average: 4.5, Count: 2}
		u.SkillsOffered = []models.Skill{{Name: "Guitar"}}
	})
	seedUser(t, store, "bob", func(u *models.User) {
		u.Location = "Portland"
		u.Rating = models.Rating{Average: 4.9, Count: 1}
		u.SkillsWanted = []models.Skill{{Name: "Guitar"}}
	})
	seedUser(t, store, "hidden", func(u *models.User) { u.IsPublic = false })
	seedUser(t, store, "banned", func(u *models.User) { u.IsBanned = true })

	users, page, err := svc.List(ctx, services.ListUsersQuery{})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Name, "highest rating first")
	assert.Empty(t, users[0].Email, "public listing hides email")
	assert.Equal(t, services.Pagination{Page: 1, Limit: 10, Total: 2, TotalPages: 1}, page)

	users, _, err = svc.List(ctx, services.ListUsersQuery{Location: "seat"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Name)

	users, _, err = svc.List(ctx, services.ListUsersQuery{Skill: "guitar"})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, _, err = svc.List(ctx, services.ListUsersQuery{Search: "ali"})
	require.NoError(t, err)
	assert.Len(t, users, 1)

	users, page, err = svc.List(ctx, services.ListUsersQuery{PageQuery: services.PageQuery{Page: 2, Limit: 1}})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Name)
	assert.Equal(t, 2, page.TotalPages)
}

func TestUserService_GetPrivateProfile(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	svc := services.NewUserService(store.Users, t.TempDir(), zap.NewNop())

	owner := seedUser(t, store, "owner", func(u *models.User) { u.IsPublic = false })
	other := seedUser(t, store, "other")
	admin := seedUser(t, store, "admin", func(u *models.User) { u.IsAdmin = true })

	_, err := svc.Get(ctx, nil, owner.ID)
	assert.True(t, appErr.IsCode(err, appErr.CodeForbidden))
	_, err = svc.Get(ctx, other, owner.ID)
	assert.True(t, appErr.IsCode(err, appErr.CodeForbidden))

	self, err := svc.Get(ctx, owner, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", self.Email)
	_, err = svc.Get(ctx, admin, owner.ID)
	assert.NoError(t, err)

	pub, err := svc.Get(ctx, nil, other.ID)
	require.NoError(t, err)
	assert.Empty(t, pub.Email)

	_, err = svc.Get(ctx, nil, "missing")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestUserService_SearchBySkill(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	svc := services.NewUserService(store.Users, t.TempDir(), zap.NewNop())
	seedUser(t, store, "alice", func(u *models.User) { u.SkillsOffered = []models.Skill{{Name: "Python"}} })
	seedUser(t, store, "bob", func(u *models.User) { u.SkillsWanted = []models.Skill{{Name: "Python"}} })

	_, err := svc.SearchBySkill(ctx, " ")
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	users, err := svc.SearchBySkill(ctx, "pyth")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Name)
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	svc := services.NewUserService(store.Users, t.TempDir(), zap.NewNop())
	alice := seedUser(t, store, "alice")

	name := "  Alice Smith "
	updated, err := svc.UpdateProfile(ctx, alice.ID, services.ProfileInput{
		Name:          &name,
		IsPublic:      models.Bool(false),
		SkillsOffered: []models.Skill{{Name: " Guitar ", Level: "Expert"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", updated.Name)
	assert.False(t, updated.IsPublic)
	assert.Equal(t, "Guitar", updated.SkillsOffered[0].Name)
	assert.False(t, updated.IsAdmin)

	blank := " "
	_, err = svc.UpdateProfile(ctx, alice.ID, services.ProfileInput{Name: &blank})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = svc.UpdateProfile(ctx, alice.ID, services.ProfileInput{
		SkillsWanted: []models.Skill{{Name: "Spanish"}, {Name: "spanish"}},
	})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid), "case-insensitive duplicate")

	_, err = svc.UpdateProfile(ctx, "missing", services.ProfileInput{})
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestUserService_AddRemoveSkill(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	svc := services.NewUserService(store.Users, t.TempDir(), zap.NewNop())
	alice := seedUser(t, store, "alice")

	u, err := svc.AddSkill(ctx, alice.ID, services.AddSkillInput{List: services.ListOffered, Skill: models.Skill{Name: "Guitar"}})
	require.NoError(t, err)
	assert.Len(t, u.SkillsOffered, 1)

	_, err = svc.AddSkill(ctx, alice.ID, services.AddSkillInput{List: services.ListOffered, Skill: models.Skill{Name: "GUITAR"}})
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))

	u, err = svc.AddSkill(ctx, alice.ID, services.AddSkillInput{List: services.ListWanted, Skill: models.Skill{Name: "Guitar"}})
	require.NoError(t, err)
	assert.Len(t, u.SkillsWanted, 1, "the other list is independent")

	_, err = svc.AddSkill(ctx, alice.ID, services.AddSkillInput{List: "hobbies", Skill: models.Skill{Name: "Chess"}})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	u, err = svc.RemoveSkill(ctx, alice.ID, services.ListOffered, "guitar")
	require.NoError(t, err)
	assert.Empty(t, u.SkillsOffered)
	assert.Len(t, u.SkillsWanted, 1)

	_, err = svc.RemoveSkill(ctx, alice.ID, services.ListOffered, "guitar")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestUserService_SavePhoto(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := repositories.NewMemoryStore()
	svc := services.NewUserService(store.Users, dir, zap.NewNop())
	alice := seedUser(t, store, "alice")

	u, err := svc.SavePhoto(ctx, alice.ID, []byte("GIF89a"), ".gif")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.ProfilePhoto, "/uploads/profiles/"+alice.ID+"-"))
	assert.True(t, strings.HasSuffix(u.ProfilePhoto, ".gif"))

	data, err := os.ReadFile(filepath.Join(dir, "profiles", filepath.Base(u.ProfilePhoto)))
	require.NoError(t, err)
	assert.Equal(t, "GIF89a", string(data))

	_, err = svc.SavePhoto(ctx, "missing", []byte("x"), ".png")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}
