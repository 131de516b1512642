package middleware_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/repositories"
	"skillswap/internal/services"
	appErr "skillswap/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zap.NewNop())})
	app.Use(requestid.New())
	app.Use(middleware.Logging(zap.NewNop()))
	return app
}

func call(t *testing.T, app *fiber.App, path, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestErrorHandler(t *testing.T) {
	app := newApp()
	app.Get("/invalid", func(c *fiber.Ctx) error {
		return appErr.Invalid("Validation failed", map[string]string{"name": "required"})
	})
	app.Get("/banned", func(c *fiber.Ctx) error {
		return appErr.New(appErr.CodeForbidden, "Account has been banned").WithMeta("reason", "spam")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fmt.Errorf("connection refused")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.ErrRequestEntityTooLarge
	})

	status, body := call(t, app, "/invalid", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid", body["code"])
	assert.Equal(t, map[string]any{"name": "required"}, body["errors"])

	status, body = call(t, app, "/banned", "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "spam", body["reason"])

	status, body = call(t, app, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, map[string]any{"message": "Server error"}, body, "internal details are hidden")

	status, _ = call(t, app, "/fiber", "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
}

func TestAuthMiddleware(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	auth := services.NewAuthService(store.Users, "test_jwt_secret", time.Hour, zap.NewNop())

	res, err := auth.Register(ctx, services.RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	admin, err := auth.Register(ctx, services.RegisterInput{Name: "Root", Email: "root@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = store.Users.Update(ctx, admin.User.ID, models.UserPatch{IsAdmin: models.Bool(true)})
	require.NoError(t, err)

	app := newApp()
	whoami := func(c *fiber.Ctx) error {
		name := "anonymous"
		if u := middleware.CurrentUser(c); u != nil {
			name = u.Name
		}
		return c.JSON(fiber.Map{"name": name})
	}
	app.Get("/private", middleware.AuthRequired(auth), whoami)
	app.Get("/optional", middleware.AuthOptional(auth), whoami)
	app.Get("/admin", middleware.AuthRequired(auth), middleware.AdminRequired(), whoami)

	status, body := call(t, app, "/private", "Bearer "+res.Token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Alice", body["name"])

	status, body = call(t, app, "/private", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "No token, authorization denied", body["message"])

	status, _ = call(t, app, "/private", "Token "+res.Token)
	assert.Equal(t, http.StatusUnauthorized, status)

	_, body = call(t, app, "/optional", "")
	assert.Equal(t, "anonymous", body["name"])
	_, body = call(t, app, "/optional", "Bearer broken")
	assert.Equal(t, "anonymous", body["name"])
	_, body = call(t, app, "/optional", "Bearer "+res.Token)
	assert.Equal(t, "Alice", body["name"])

	status, _ = call(t, app, "/admin", "Bearer "+res.Token)
	assert.Equal(t, http.StatusForbidden, status)
	status, body = call(t, app, "/admin", "Bearer "+admin.Token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Root", body["name"])
}
