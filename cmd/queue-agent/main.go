// Command queue-agent runs delivery passes over the message queue.
//
// Usage:
//
//	queue-agent [--id N] [--timestamp UNIX] [--force] [--max-attempts N] [--interval D] [--quiet]
//
// Without --interval it runs a single pass and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/welldanyogia/webrana-msgqueue/internal/app"
	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/delivery"
	"github.com/welldanyogia/webrana-msgqueue/internal/logger"
	"github.com/welldanyogia/webrana-msgqueue/internal/scheduler"
)

const (
	exitOK      = 0
	exitFailure = 1
)

type options struct {
	delivery delivery.Options
	interval time.Duration
	quiet    bool
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var (
		opts options
		id   uint
	)

	fs := flag.NewFlagSet("queue-agent", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.UintVar(&id, "id", 0, "deliver only the message with this id, ignoring the attempt gate")
	fs.Int64Var(&opts.delivery.AddedAfter, "timestamp", 0, "deliver only messages created at or after this unix time")
	fs.BoolVar(&opts.delivery.Force, "force", false, "ignore the attempt gate")
	fs.IntVar(&opts.delivery.MaxAttempts, "max-attempts", 0, "attempt ceiling (default from MAX_ATTEMPTS)")
	fs.DurationVar(&opts.interval, "interval", 0, "repeat passes on this interval until interrupted")
	fs.BoolVar(&opts.quiet, "quiet", false, "do not print the report")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: queue-agent [flags]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.delivery.MaxAttempts < 0 {
		return opts, errors.New("--max-attempts cannot be negative")
	}
	if opts.interval < 0 {
		return opts, errors.New("--interval cannot be negative")
	}

	opts.delivery.ID = id
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "queue-agent: %v\n", err)
		return exitFailure
	}

	cfg, err := config.LoadWithValidation()
	if err != nil {
		fmt.Fprintf(stderr, "queue-agent: load config: %v\n", err)
		return exitFailure
	}

	log := logger.New(cfg.LogLevel, stderr)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		return exitFailure
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to release resources", "error", err)
		}
	}()

	driver := delivery.NewDriver(a.Queue, log)

	if opts.interval == 0 {
		if err := pass(ctx, driver, opts, stdout); err != nil {
			log.Error("delivery pass failed", "error", err)
			return exitFailure
		}
		return exitOK
	}

	s, err := scheduler.New(opts.interval, func(ctx context.Context) {
		if err := pass(ctx, driver, opts, stdout); err != nil && ctx.Err() == nil {
			log.Error("delivery pass failed", "error", err)
		}
	}, log)
	if err != nil {
		log.Error("failed to start scheduler", "error", err)
		return exitFailure
	}

	s.Start(ctx)
	<-s.Done()
	return exitOK
}

func pass(ctx context.Context, driver *delivery.Driver, opts options, stdout io.Writer) error {
	report, err := driver.Deliver(ctx, opts.delivery)
	if report != nil && !opts.quiet {
		delivery.WriteReport(stdout, report)
	}
	return err
}
