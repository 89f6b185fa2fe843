// Command server exposes the producer HTTP API of the message queue and,
// when DELIVERY_INTERVAL_SECONDS is set, runs delivery passes in the
// background.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/welldanyogia/webrana-msgqueue/internal/api"
	"github.com/welldanyogia/webrana-msgqueue/internal/api/handlers"
	"github.com/welldanyogia/webrana-msgqueue/internal/app"
	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/delivery"
	"github.com/welldanyogia/webrana-msgqueue/internal/logger"
	"github.com/welldanyogia/webrana-msgqueue/internal/scheduler"
)

// shutdownTimeout bounds the wait for in-flight requests
const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)

	slog.Info("Starting message queue server...")
	cfg.LogConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("failed to release resources", "error", err)
		}
	}()

	driver := delivery.NewDriver(a.Queue, log)

	checks := []handlers.Check{handlers.DatabaseCheck(a.DB)}
	if a.Redis != nil {
		checks = append(checks, handlers.RedisCheck(a.Redis))
	}

	e := api.NewRouter(&api.RouterConfig{
		Queue:      a.Queue,
		Driver:     driver,
		Deliveries: a.Deliveries,
		Checks:     checks,
		Logger:     log,
		Security:   logger.NewSecurityLoggerWithHandler(log.Handler()),
		APIKey:     cfg.APIKey,
		RateLimit:  cfg.RateLimit,
	})

	var poller *scheduler.Scheduler
	if interval := cfg.DeliveryInterval(); interval > 0 {
		poller, err = scheduler.New(interval, func(ctx context.Context) {
			if _, err := driver.Deliver(ctx, delivery.Options{}); err != nil && ctx.Err() == nil {
				slog.Error("delivery pass failed", "error", err)
			}
		}, log)
		if err != nil {
			return err
		}
		poller.Start(ctx)
	}

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := e.Start(addr); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	if poller != nil {
		poller.Stop()
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "error", err)
	}

	slog.Info("Server stopped")
	return nil
}
