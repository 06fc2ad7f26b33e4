// Package config loads server configuration from the environment, with
// sane defaults for every field — unlike a game engine's wire protocol
// constants, these are meant to be overridden per-deployment without a
// rebuild.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"snakearena.live/engine"
)

// Config holds the server's deployment-tunable values. Grid dimensions
// default to the engine's own published constants
// (spec.md §6) but can be overridden for local testing of smaller arenas.
type Config struct {
	Port int

	GridWidth  int
	GridHeight int

	StaticDir string
}

// Load reads a .env file if present, then environment variables, falling
// back to defaults for anything unset. It never calls log.Fatal: a missing
// .env or missing var is the expected, supported case.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[APP] [INFO] .env file not found or could not be loaded: %v", err)
	}

	return Config{
		Port:       getEnvAsInt("PORT", 8080),
		GridWidth:  getEnvAsInt("GRID_WIDTH", engine.GridWidth),
		GridHeight: getEnvAsInt("GRID_HEIGHT", engine.GridHeight),
		StaticDir:  getEnv("STATIC_DIR", ""),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[APP] [WARN] %s=%q is not an integer, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
