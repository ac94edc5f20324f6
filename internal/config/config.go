package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Addr           string
	MongoURI       string
	MongoDatabase  string
	SessionSecret  string
	SessionTTL     time.Duration
	AllowedOrigins []string
}

// Load reads configuration from the environment. Values mirror the
// deployment's .env file; every key has a dev-friendly default.
func Load() Config {
	ttl := 24 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}
	return Config{
		Addr:           env("ADDR", ":4000"),
		MongoURI:       env("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  env("MONGO_DB", "league"),
		SessionSecret:  env("SESSION_SECRET", "fallback-secret"),
		SessionTTL:     ttl,
		AllowedOrigins: split(env("ALLOWED_ORIGINS", "localhost:5173,localhost:3000")),
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func split(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
