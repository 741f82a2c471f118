// Package main applies the embedded schema migrations.
//
// Usage:
//
//	migrate up
//	migrate down
//	migrate steps N
//	migrate force V
//	migrate version
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"shopstock/internal/app"
	"shopstock/internal/infrastructure/storage/postgres"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate up | down | steps N | force V | version")
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	m, err := postgres.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("failed to open migrator", "error", err)
	}

	err = run(context.Background(), m, flag.Args())
	if closeErr := m.Close(); closeErr != nil {
		log.Warnw("close migrator", "error", closeErr)
	}
	if err != nil {
		log.Fatalw("migration failed", "command", flag.Arg(0), "error", err)
	}
}

func run(ctx context.Context, m *postgres.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return m.Up(ctx)
	case "down":
		return m.Down(ctx)
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(ctx, n)
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(ctx, v)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires an integer argument", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", args[0], err)
	}
	return n, nil
}
