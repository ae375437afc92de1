package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/chatforge/switchboard/config"
	"github.com/chatforge/switchboard/internal/migration"
)

// =============================================================================
// 🗄️ Migration Commands
// =============================================================================

func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "up":
		withMigratorCLI("migrate up", subargs, func(ctx context.Context, cli *migration.CLI) error {
			return cli.RunUp(ctx)
		})
	case "down":
		withMigratorCLI("migrate down", subargs, func(ctx context.Context, cli *migration.CLI) error {
			return cli.RunDown(ctx)
		})
	case "status":
		withMigratorCLI("migrate status", subargs, func(ctx context.Context, cli *migration.CLI) error {
			return cli.RunStatus(ctx)
		})
	case "version":
		withMigratorCLI("migrate version", subargs, func(ctx context.Context, cli *migration.CLI) error {
			return cli.RunVersion(ctx)
		})
	case "goto":
		runMigrateGoto(subargs)
	case "force":
		runMigrateForce(subargs)
	case "help", "-h", "--help":
		printMigrateUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", subcommand)
		printMigrateUsage()
		os.Exit(1)
	}
}

func printMigrateUsage() {
	fmt.Println(`Database Migration Commands

Usage:
  switchboard migrate <subcommand> [options]

Subcommands:
  up        Apply all pending migrations
  down      Rollback the last migration
  status    Show migration status
  version   Show current migration version
  goto      Migrate to a specific version
  force     Force set migration version (use with caution)
  help      Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Sqlite deployments are development-only; their schema is migrated
automatically when the server starts.

Examples:
  switchboard migrate up
  switchboard migrate up --config /etc/switchboard/config.yaml
  switchboard migrate status
  switchboard migrate goto 1`)
}

// createMigrator builds a migrator from flags, falling back to the config
// file when no explicit connection is given.
func createMigrator(fs *flag.FlagSet, args []string) (*migration.DefaultMigrator, error) {
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql)")
	dbURL := fs.String("db-url", "", "Database connection URL")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *dbType != "" && *dbURL != "" {
		return migration.NewMigratorFromURL(*dbType, *dbURL)
	}

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if *dbType != "" {
		cfg.Database.Driver = *dbType
	}

	return migration.NewMigratorFromDatabaseConfig(cfg.Database)
}

// withMigratorCLI runs one CLI action with migrator setup and teardown.
func withMigratorCLI(name string, args []string, fn func(context.Context, *migration.CLI) error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	migrator, err := createMigrator(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		os.Exit(1)
	}
	defer migrator.Close()

	if err := fn(context.Background(), migration.NewCLI(migrator)); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runMigrateGoto(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: switchboard migrate goto <version>")
		os.Exit(1)
	}

	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid version number: %s\n", args[0])
		os.Exit(1)
	}

	withMigratorCLI("migrate goto", args[1:], func(ctx context.Context, cli *migration.CLI) error {
		return cli.RunGoto(ctx, uint(version))
	})
}

func runMigrateForce(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: switchboard migrate force <version>")
		os.Exit(1)
	}

	version, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid version number: %s\n", args[0])
		os.Exit(1)
	}

	withMigratorCLI("migrate force", args[1:], func(ctx context.Context, cli *migration.CLI) error {
		return cli.RunForce(ctx, int(version))
	})
}
