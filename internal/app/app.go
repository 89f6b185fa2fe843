// Package app wires the queue from configuration: database, handler
// registry, optional delivery log and the queue context itself.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/welldanyogia/webrana-msgqueue/internal/cache"
	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/database"
	"github.com/welldanyogia/webrana-msgqueue/internal/handler"
	"github.com/welldanyogia/webrana-msgqueue/internal/queue"
	"github.com/welldanyogia/webrana-msgqueue/internal/repository"
)

// App holds the long-lived dependencies of a process
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	DB         *gorm.DB
	Redis      *redis.Client
	Registry   *handler.Registry
	Queue      *queue.Queue
	Deliveries cache.DeliveryLog
}

// New connects and migrates the database and builds the queue. An
// unreachable Redis is logged and leaves the delivery log disabled.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	channels, err := cfg.Channels()
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.DatabaseURL, database.Options{AppEnv: cfg.AppEnv, LogLevel: cfg.LogLevel})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Registry: handler.NewDefaultRegistry(cfg.Handlers, channels, logger),
	}

	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("delivery log disabled", "error", err)
		} else {
			a.Redis = rdb
			a.Deliveries = cache.NewRedisDeliveryLog(rdb, cfg.Redis.TTL())
		}
	}

	q, err := queue.New(queue.Options{
		Config:     cfg,
		Repo:       repository.NewQueueRepository(db),
		Registry:   a.Registry,
		Deliveries: a.Deliveries,
		Logger:     logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to build queue: %w", err)
	}
	a.Queue = q

	return a, nil
}

// Close releases the handlers, the Redis client and the database
func (a *App) Close() error {
	var errs []error
	if a.Registry != nil {
		errs = append(errs, a.Registry.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, database.Close(a.DB))
	}
	return errors.Join(errs...)
}
