// Package config loads the engine configuration from environment
// variables, with a .env file as an optional local override source.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// HTTP server
	ListenAddr string

	// Upstream feed
	Symbols []string

	// Optional Redis mirror; empty addr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Capacities
	TickBufferSize int
	MaxBars        int
	MaxAlerts      int

	// Analytics windows
	RollingWindow     int
	CorrelationWindow int

	// Optional alert webhook; empty disables it.
	AlertWebhookURL string

	// Logging
	LogLevel string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is merged in first, if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8000"),

		Symbols: splitList(getEnv("SYMBOLS", "BTCUSDT,ETHUSDT,SOLUSDT")),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		TickBufferSize: getInt("TICK_BUFFER_SIZE", 10000),
		MaxBars:        getInt("MAX_BARS", 1000),
		MaxAlerts:      getInt("MAX_ALERTS", 100),

		RollingWindow:     getInt("ROLLING_WINDOW", 20),
		CorrelationWindow: getInt("CORRELATION_WINDOW", 60),

		AlertWebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
