package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting read from the environment. Empty URLs turn
// the matching backend off.
type Config struct {
	Port        string
	LedgerFile  string
	DatabaseURL string
	RedisURL    string
	AMQPURL     string
	JWTSecret   string
	LogLevel    string
	DraftTTL    time.Duration

	// Bootstrap login used when no database is configured.
	StaffUsername     string
	StaffPasswordHash string

	CORSOrigins []string
}

// Load reads the environment, after loading .env if one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8081"),
		LedgerFile:        getEnv("LEDGER_FILE", "pedidos.json"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		AMQPURL:           getEnv("AMQP_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DraftTTL:          getEnvAsDuration("DRAFT_TTL", 2*time.Hour),
		StaffUsername:     getEnv("STAFF_USERNAME", ""),
		StaffPasswordHash: getEnv("STAFF_PASSWORD_HASH", ""),
		CORSOrigins:       getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173"}),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90m") or whole seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
