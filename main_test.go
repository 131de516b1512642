package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
	"skillswap/internal/services"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{{"serve"}, {"migrate"}, {"seed"}, {"admin", "grant"}, {"admin", "revoke"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestSeedUsers(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	var out bytes.Buffer

	n, err := seedUsers(ctx, store.Users, "secret123", &out)
	require.NoError(t, err)
	assert.Equal(t, len(demoUsers), n)

	admin, err := store.Users.FindByEmail(ctx, "admin@skillswap.local")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("secret123")))

	alice, err := store.Users.FindByEmail(ctx, "alice@skillswap.local")
	require.NoError(t, err)
	assert.False(t, alice.IsAdmin)
	assert.True(t, alice.IsPublic)
	assert.Len(t, alice.SkillsOffered, 2)

	// second run only reports existing accounts
	out.Reset()
	n, err = seedUsers(ctx, store.Users, "secret123", &out)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, out.String(), "skipping alice@skillswap.local")

	all, err := store.Users.FindAll(ctx, models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(demoUsers))
}

func TestSetAdmin(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	_, err := seedUsers(ctx, store.Users, "secret123", &bytes.Buffer{})
	require.NoError(t, err)

	u, err := setAdmin(ctx, store.Users, " Bob@SkillSwap.local ", true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	u, err = setAdmin(ctx, store.Users, "bob@skillswap.local", false)
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)

	_, err = setAdmin(ctx, store.Users, "nobody@skillswap.local", true)
	assert.ErrorContains(t, err, "no user with email")
}

func TestSeedAndGrantCommandsWithFileStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("UPLOAD_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "test_jwt_secret")
	t.Setenv("LOG_LEVEL", "error")

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)
		require.NoError(t, root.ExecuteContext(context.Background()), out.String())
		return out.String()
	}

	assert.Contains(t, run("seed"), "seeded 4 users")
	assert.Contains(t, run("admin", "grant", "carol@skillswap.local"), "isAdmin=true")

	store := repositories.NewFileStore(dir)
	carol, err := store.Users.FindByEmail(context.Background(), "carol@skillswap.local")
	require.NoError(t, err)
	assert.True(t, carol.IsAdmin)

	assert.Contains(t, run("admin", "revoke", "carol@skillswap.local"), "isAdmin=false")
}

func TestMigrateRequiresSQLDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "test_jwt_secret")
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"migrate"})
	err := root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "migrate needs a SQL store driver")
}

func TestSwapEventHandler(t *testing.T) {
	handle := swapEventHandler(zap.NewNop())

	body, err := json.Marshal(services.SwapEvent{
		Type:   services.EventSwapCreated,
		SwapID: "swap-1",
		Status: models.SwapPending,
	})
	require.NoError(t, err)
	assert.NoError(t, handle(amqp.Delivery{Body: body}))

	assert.Error(t, handle(amqp.Delivery{Body: []byte("not json")}))
}
