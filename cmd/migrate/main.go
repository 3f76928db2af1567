package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jessevdk/go-flags"

	"github.com/farxc/accurate-sales-etl/internal/config"
	"github.com/farxc/accurate-sales-etl/internal/logger"
)

type Options struct {
	Path     string `long:"path" default:"migrations" description:"Directory holding the migration files"`
	LogLevel string `long:"loglevel" default:"info" description:"Log level: debug, info, warn, error"`
	Args     struct {
		Command string `positional-arg-name:"command" description:"up, down, goto or status"`
		Version string `positional-arg-name:"version" description:"Target version for goto"`
	} `positional-args:"yes"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] up|down|goto VERSION|status"
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	appLogger, err := logger.New(logger.ParseLevel(opts.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	if err := run(opts, appLogger); err != nil {
		appLogger.Error("Migrate", "Migration failed: command=%s error=%v", opts.Args.Command, err)
		os.Exit(1)
	}
}

func run(opts Options, appLogger *logger.Logger) error {
	const component = "Migrate"

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+opts.Path, cfg.Postgres.Addr)
	if err != nil {
		return fmt.Errorf("initialise migrations: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			appLogger.Warn(component, "Failed to close migration resources: source=%v db=%v", sourceErr, dbErr)
		}
	}()

	switch opts.Args.Command {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			appLogger.Info(component, "No change: database is up to date")
			return nil
		}
		if err != nil {
			return err
		}
		appLogger.Info(component, "Migrations applied")

	case "down":
		if err := m.Steps(-1); err != nil {
			return err
		}
		appLogger.Info(component, "Rolled back the last migration")

	case "goto":
		version, err := strconv.ParseUint(opts.Args.Version, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", opts.Args.Version, err)
		}
		err = m.Migrate(uint(version))
		if errors.Is(err, migrate.ErrNoChange) {
			appLogger.Info(component, "No change: database is already at version %d", version)
			return nil
		}
		if err != nil {
			return err
		}
		appLogger.Info(component, "Migrated to version %d", version)

	case "status":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			appLogger.Info(component, "No migrations applied yet")
			return nil
		}
		if err != nil {
			return err
		}
		appLogger.Info(component, "Current version: version=%d dirty=%t", version, dirty)

	default:
		return fmt.Errorf("unknown command %q: use up, down, goto or status", opts.Args.Command)
	}

	return nil
}
