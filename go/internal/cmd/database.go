package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/dbconfig"
)

func setupDatabase(ctx context.Context) (*sql.DB, error) {
	dbCfg := dbconfig.NewConfigFromEnv()

	database, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	database.SetMaxOpenConns(getEnvAsInt("DB_MAX_OPEN_CONNS", 10))
	database.SetConnMaxIdleTime(5 * time.Minute)

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("dsn", dbCfg.Redacted()).
		Msg("connected to database")
	return database, nil
}
