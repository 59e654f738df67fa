package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/presence/go/internal/apiutil"
)

func setupServer(services *Services) *http.Server {
	router := httprouter.New()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerServices(router, services)
	setupHealthCheck(router, services)

	handler := c.Handler(router)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerServices(router *httprouter.Router, services *Services) {
	services.Users.RegisterRoutes(router)
	services.Servers.RegisterRoutes(router)
}

func setupHealthCheck(router *httprouter.Router, services *Services) {
	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := map[string]any{"healthy": true, "database": "ok"}
		code := http.StatusOK
		if err := services.DB.PingContext(ctx); err != nil {
			log.Error().Err(err).Msg("database health check failed")
			status["healthy"], status["database"] = false, err.Error()
			code = http.StatusServiceUnavailable
		}
		if services.Redis != nil {
			status["redis"] = "ok"
			if err := services.Redis.Ping(ctx).Err(); err != nil {
				status["healthy"], status["redis"] = false, err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		apiutil.WriteJSON(w, code, status)
	})
}
