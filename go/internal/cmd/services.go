package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/servers"
	"github.com/mcdev12/presence/go/internal/tuning"
	"github.com/mcdev12/presence/go/internal/users"
	usersdb "github.com/mcdev12/presence/go/internal/users/db"
)

type Services struct {
	Users   *users.Service
	Servers *servers.Service
	DB      *sql.DB
	Redis   *redis.Client
}

func setupServices(ctx context.Context, database *sql.DB, config *tuning.File) (*Services, func(), error) {
	// Database layer → Repository layer → App layer → Service layer

	sessions, rdb, err := setupSessionStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if rdb != nil {
			rdb.Close()
		}
	}

	// Users
	userQueries := usersdb.New(database)
	userRepo := users.NewRepository(userQueries)
	userApp := users.NewApp(userRepo, sessions)
	userService := users.NewService(userApp)

	// Servers
	serversRepo := servers.NewRepository(database)
	serversApp := servers.NewApp(serversRepo, config.Servers)
	if err := serversApp.Sync(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to sync server catalogue: %w", err)
	}
	serversService := servers.NewService(serversApp, os.Getenv("PUBLIC_URL"))

	return &Services{
		Users:   userService,
		Servers: serversService,
		DB:      database,
		Redis:   rdb,
	}, cleanup, nil
}

// setupSessionStore uses Redis when REDIS_URL is set so the gateway can
// resolve the same tokens
func setupSessionStore(ctx context.Context) (users.SessionStore, *redis.Client, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Warn().Msg("REDIS_URL not set, sessions are kept in process")
		return users.NewMemorySessionStore(nil), nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Msg("using redis session store")
	return users.NewRedisSessionStore(rdb), rdb, nil
}
