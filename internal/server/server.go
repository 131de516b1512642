// Package server assembles the Fiber application: middleware chain, routes
// and the services behind them.
package server

import (
	"context"
	"time"

	"skillswap/internal/handlers"
	"skillswap/internal/middleware"
	"skillswap/internal/repositories"
	"skillswap/internal/services"
	"skillswap/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps is everything the HTTP surface needs from the outside.
type Deps struct {
	Config *config.Config
	Store  *repositories.Store
	Log    *zap.Logger

	// Events receives swap events. Nil disables publishing.
	Events services.EventPublisher
	// LimiterStorage backs the rate limiter. Nil keeps counters in memory.
	LimiterStorage fiber.Storage
}

// pinger is implemented by limiter storages that can report their health.
type pinger interface {
	Ping(ctx context.Context) error
}

// New builds the application. It does not start listening.
func New(d Deps) *fiber.App {
	cfg := d.Config

	app := fiber.New(fiber.Config{
		AppName:      "skillswap",
		ErrorHandler: middleware.ErrorHandler(d.Log),
		BodyLimit:    max(cfg.MaxUploadBytes+1<<20, fiber.DefaultBodyLimit),
		// Params and headers outlive the request once they reach a store.
		Immutable: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.Metrics())
	app.Use(middleware.Logging(d.Log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Static("/uploads", cfg.UploadDir)

	api := app.Group("/api")
	if cfg.RateLimitMax > 0 {
		api.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitWindow,
			Storage:    d.LimiterStorage,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"message": "Too many requests from this IP, please try again later.",
				})
			},
		}))
	}

	api.Get("/health", func(c *fiber.Ctx) error {
		status, code, cache := "OK", fiber.StatusOK, "memory"
		if p, ok := d.LimiterStorage.(pinger); ok {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			cache = "ok"
			if err := p.Ping(ctx); err != nil {
				d.Log.Warn("cache ping failed", zap.Error(err))
				status, code, cache = "DEGRADED", fiber.StatusServiceUnavailable, "unreachable"
			}
		}
		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"store":     cfg.StoreDriver,
			"cache":     cache,
			"timestamp": time.Now().UTC(),
		})
	})

	authService := services.NewAuthService(d.Store.Users, cfg.JWTSecret, cfg.JWTExpire, d.Log)
	userService := services.NewUserService(d.Store.Users, cfg.UploadDir, d.Log)
	swapService := services.NewSwapService(d.Store.Swaps, d.Store.Users, d.Events, d.Log)
	skillService := services.NewSkillService(d.Store.Users)
	adminService := services.NewAdminService(d.Store.Users, d.Store.Swaps, cfg.ActiveWindow, d.Log)
	messageService := services.NewMessageService(d.Store.Messages, cfg.ActiveWindow, d.Log)

	handlers.NewAuthHandler(authService).RegisterRoutes(api)
	handlers.NewUserHandler(userService, swapService, authService, cfg.MaxUploadBytes).RegisterRoutes(api)
	handlers.NewSwapHandler(swapService, authService).RegisterRoutes(api)
	handlers.NewSkillHandler(skillService).RegisterRoutes(api)
	handlers.NewMessageHandler(messageService, authService).RegisterRoutes(api)
	handlers.NewAdminHandler(adminService, messageService, authService).RegisterRoutes(api)

	api.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "API route not found"})
	})

	return app
}
