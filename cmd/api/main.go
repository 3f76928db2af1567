package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/farxc/accurate-sales-etl/internal/accurate"
	"github.com/farxc/accurate-sales-etl/internal/config"
	"github.com/farxc/accurate-sales-etl/internal/credentials"
	"github.com/farxc/accurate-sales-etl/internal/db"
	"github.com/farxc/accurate-sales-etl/internal/logger"
	"github.com/farxc/accurate-sales-etl/internal/store"
)

func main() {
	const component = "Main"

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New(logger.ParseLevel(cfg.Logging.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		appLogger.Fatal(component, "Database connection failed: error=%v", err)
	}
	defer database.Close()
	appLogger.Info(component, "Database connection pool established")

	storage := store.NewStorage(database)

	var credStore credentials.Store = storage.CredentialVariables
	if cfg.Credentials.Backend == "redis" {
		rdb, err := db.NewRedis(ctx, cfg.Redis)
		if err != nil {
			appLogger.Fatal(component, "Credential store unavailable: backend=redis error=%v", err)
		}
		defer rdb.Close()
		credStore = credentials.NewRedisStore(rdb, cfg.Redis.KeyPrefix)
	}

	app := &application{
		config:      cfg,
		store:       storage,
		credentials: credStore,
		oauth:       accurate.NewClient(cfg.ClientOptions(), appLogger),
		logger:      appLogger,
	}

	if err := app.run(ctx, app.mount()); err != nil {
		appLogger.Error(component, "Server stopped: error=%v", err)
		os.Exit(1)
	}
}
