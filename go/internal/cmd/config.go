package main

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/tuning"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML config. Running without a file serves the
// default tuning and an empty fallback catalogue.
func loadConfig(path string) (*tuning.File, error) {
	config, err := tuning.LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
		return &tuning.File{Presence: tuning.DefaultConfig()}, nil
	}
	return config, err
}
