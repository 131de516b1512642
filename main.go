package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"skillswap/internal/repositories"
	"skillswap/internal/server"
	"skillswap/internal/services"
	"skillswap/pkg/cache"
	"skillswap/pkg/config"
	"skillswap/pkg/logger"
	"skillswap/pkg/rabbitmq"

	"github.com/spf13/cobra"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "skillswap",
		Short:        "Skill exchange marketplace backend",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd(), newAdminCmd())
	return root
}

// bootstrap loads configuration and builds the logger. Callers sync it.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Fields: []zap.Field{zap.String("app", "skillswap"), zap.String("env", cfg.AppEnv)},
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, err := repositories.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("error closing store", zap.Error(err))
		}
	}()

	deps := server.Deps{Config: cfg, Store: store, Log: log}

	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			log.Warn("rabbitmq unavailable, swap events disabled", zap.Error(err))
		} else {
			defer mq.Close()
			deps.Events = mq
			if err := mq.ConsumeSwapEvents(swapEventHandler(log)); err != nil {
				log.Warn("failed to start swap event consumer", zap.Error(err))
			}
		}
	}

	if cfg.RedisAddr != "" {
		storage, err := cache.NewRedisStorage(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn("redis unavailable, rate limiting per process", zap.Error(err))
		} else {
			defer storage.Close()
			deps.LimiterStorage = storage
		}
	}

	app := server.New(deps)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		errCh <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		log.Error("error during shutdown", zap.Error(err))
		return err
	}
	log.Info("server gracefully stopped")
	return nil
}

// swapEventHandler logs every swap event delivered to the queue. Undecodable
// bodies are rejected.
func swapEventHandler(log *zap.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var ev services.SwapEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			return fmt.Errorf("decode swap event: %w", err)
		}
		log.Info("swap event received",
			zap.String("type", ev.Type),
			zap.String("swapId", ev.SwapID),
			zap.String("status", string(ev.Status)),
			zap.String("actorId", ev.ActorID))
		return nil
	}
}
