package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/presence/go/internal/dbconfig"
	"github.com/mcdev12/presence/go/internal/sharedstate"
	"github.com/mcdev12/presence/go/internal/tuning"
)

func main() {
	ctx := context.Background()

	// 1) Load the catalogue from the shared config file
	configPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}
	config, err := tuning.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Make sure the tables exist
	schemaPath := "go/internal/db/schema.sql"
	if v := os.Getenv("SCHEMA_PATH"); v != "" {
		schemaPath = v
	}
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read schema: %v\n", err)
		os.Exit(1)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
		os.Exit(1)
	}

	// 4) Insert and count
	var (
		total    = len(config.Servers)
		inserted int
		skipped  int
		errs     int
	)

	for _, s := range config.Servers {
		if err := sharedstate.ValidateID("server", s.ID); err != nil {
			fmt.Fprintf(os.Stderr, "skipping server: %v\n", err)
			errs++
			continue
		}
		cmdTag, err := pool.Exec(ctx, `
            INSERT INTO servers (id, name, region)
            VALUES ($1, $2, $3)
            ON CONFLICT (id) DO NOTHING
        `, s.ID, s.Name, s.Region)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting server %s: %v\n", s.ID, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 5) Print summary
	fmt.Printf(
		"Servers seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
