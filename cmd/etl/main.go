package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/farxc/accurate-sales-etl/internal/accurate"
	"github.com/farxc/accurate-sales-etl/internal/config"
	"github.com/farxc/accurate-sales-etl/internal/credentials"
	"github.com/farxc/accurate-sales-etl/internal/db"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/logger"
	"github.com/farxc/accurate-sales-etl/internal/sales"
	"github.com/farxc/accurate-sales-etl/internal/sales/types"
	"github.com/farxc/accurate-sales-etl/internal/store"
)

type Options struct {
	Start    string `long:"start" description:"First invoice date of the window (yyyy-mm-dd). Defaults to 7 days before yesterday"`
	End      string `long:"end" description:"Last invoice date of the window (yyyy-mm-dd). Defaults to yesterday"`
	Stage    string `long:"stage" default:"all" choice:"all" choice:"refresh" choice:"extract" choice:"load" description:"Stage to run"`
	Trigger  string `long:"trigger" default:"manual" choice:"manual" choice:"scheduled" description:"Trigger source recorded in ingestion history"`
	LogLevel string `long:"loglevel" description:"Log level: debug, info, warn, error. Overrides logging.level"`
	Monitor  bool   `long:"monitor" description:"Sample heap and goroutine usage during the run"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		os.Exit(1)
	}
}

func run(opts Options) error {
	const component = "Main"
	startingTime := time.Now()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		return err
	}

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	appLogger, err := logger.New(logger.ParseLevel(level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		return err
	}
	defer appLogger.Sync()

	window, err := resolveWindow(opts, startingTime)
	if err != nil {
		appLogger.Error(component, "Invalid window: error=%v hints=%v", err, ierr.Hints(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		appLogger.Error(component, "Database connection failed: error=%v", err)
		return err
	}
	defer database.Close()
	appLogger.Info(component, "Database connection pool established")

	storage := store.NewStorage(database)

	var credStore credentials.Store = storage.CredentialVariables
	if cfg.Credentials.Backend == "redis" {
		rdb, err := db.NewRedis(ctx, cfg.Redis)
		if err != nil {
			appLogger.Error(component, "Credential store unavailable: backend=redis error=%v", err)
			return err
		}
		defer rdb.Close()
		credStore = credentials.NewRedisStore(rdb, cfg.Redis.KeyPrefix)
	}

	client := accurate.NewClient(cfg.ClientOptions(), appLogger)
	pipeline := sales.NewPipeline(client, storage, credStore, sales.Config{
		StagingDir: cfg.Staging.Dir,
		Static:     cfg.Static(),
		ChunkSize:  cfg.Load.ChunkSize,
		Fetch:      cfg.FetchOptions(),
	}, appLogger)

	var monitor *ResourceMonitor
	if opts.Monitor {
		monitor = NewResourceMonitor()
		monitor.Start(400*time.Millisecond, appLogger)
	}

	appLogger.Info(component, "Application started: window=%s stage=%s trigger=%s backend=%s", window, opts.Stage, opts.Trigger, cfg.Credentials.Backend)

	report, err := pipeline.Run(ctx, sales.RunRequest{
		Window:  window,
		Stage:   types.Stage(opts.Stage),
		Trigger: opts.Trigger,
	})

	if monitor != nil {
		stats := monitor.Stop()
		appLogger.Info(component, "Resource usage: peakGoroutines=%d peakHeapMB=%d samples=%d", stats.PeakGoroutines, stats.PeakHeapMB, stats.Samples)
	}

	if err != nil {
		if ierr.Is(err, ierr.ErrAlreadyRunning) {
			appLogger.Warn(component, "Another run holds the lock, nothing to do: staging_dir=%s", cfg.Staging.Dir)
			return err
		}
		appLogger.Error(component, "Run failed: run_id=%s error=%v hints=%v", report.RunID, err, ierr.Hints(err))
		return err
	}

	appLogger.Info(component, "Application completed successfully: run_id=%s stages=%d duration=%.2f seconds", report.RunID, len(report.Stages), time.Since(startingTime).Seconds())
	return nil
}

func resolveWindow(opts Options, now time.Time) (types.Window, error) {
	if opts.Start == "" && opts.End == "" {
		return types.DefaultWindow(now), nil
	}
	defaults := types.DefaultWindow(now)
	start, end := opts.Start, opts.End
	if start == "" {
		start = defaults.Start.Format(time.DateOnly)
	}
	if end == "" {
		end = defaults.End.Format(time.DateOnly)
	}
	return types.ParseWindow(start, end)
}
