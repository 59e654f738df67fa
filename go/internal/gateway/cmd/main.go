package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/gateway"
	"github.com/mcdev12/presence/go/internal/sharedstate"
	"github.com/mcdev12/presence/go/internal/tuning"
	"github.com/mcdev12/presence/go/internal/users"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	port := getEnv("GATEWAY_PORT", "8081")
	backendKind := getEnv("SHARED_BACKEND", sharedstate.BackendMemory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := gateway.DefaultConfig()
	if file, err := tuning.LoadFile(getEnv("CONFIG_PATH", "config.yaml")); err == nil {
		config.Tuning = file.Presence
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	backend := sharedstate.DefaultBackendConfig()
	backend.Kind = backendKind
	backend.NATS.URL = getEnv("NATS_URL", backend.NATS.URL)
	backend.NATS.Bucket = getEnv("NATS_BUCKET", backend.NATS.Bucket)
	backend.RedisURL = getEnv("REDIS_URL", backend.RedisURL)
	if backend.Kind == sharedstate.BackendGateway {
		log.Fatal().Msg("the gateway cannot use itself as its backend")
	}

	channel, closeBackend, err := sharedstate.Open(ctx, backend)
	if err != nil {
		log.Fatal().Err(err).Str("backend", backendKind).Msg("failed to open shared state backend")
	}
	defer closeBackend()

	sessions, closeSessions := setupSessions(ctx)
	defer closeSessions()

	log.Info().
		Str("backend", backendKind).
		Str("port", port).
		Msg("starting presence gateway")

	gatewayService := gateway.NewService(config, channel, sessions)

	router := httprouter.New()
	gatewayService.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         86400,
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", port),
		Handler:     c.Handler(router),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	if getEnv("GATEWAY_MDNS", "false") == "true" {
		p, _ := strconv.Atoi(port)
		hostname, _ := os.Hostname()
		mdns, err := gateway.Advertise(getEnv("GATEWAY_INSTANCE", "presence-"+hostname), p)
		if err != nil {
			log.Error().Err(err).Msg("mDNS advertisement disabled")
		} else {
			defer mdns.Shutdown()
		}
	}

	go gatewayService.Start(ctx)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Closing connections leaves every joined actor
	cancel()
	time.Sleep(500 * time.Millisecond)

	log.Info().Msg("presence gateway shutdown complete")
}

// setupSessions resolves tokens against the API server's session store.
// Without REDIS_URL no token resolves, since sessions live in the API process.
func setupSessions(ctx context.Context) (users.SessionStore, func()) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Warn().Msg("REDIS_URL not set, using an in-process session store")
		return users.NewMemorySessionStore(nil), func() {}
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	return users.NewRedisSessionStore(rdb), func() { rdb.Close() }
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
