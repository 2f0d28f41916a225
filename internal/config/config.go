package config

import (
	"os"
	"time"
)

type Config struct {
	NatsURL          string
	StorageBackend   string
	RedisURL         string
	MongoURL         string
	MongoDatabase    string
	DevToolsURL      string
	HTTPPort         string
	FetchTimeout     time.Duration
	PollInterval     time.Duration
	DebounceDelay    time.Duration
	SelfUpdateWindow time.Duration
}

func Load() *Config {
	return &Config{
		NatsURL:          getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		StorageBackend:   getEnv("STORAGE_BACKEND", "redis"),
		RedisURL:         getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		MongoURL:         getEnv("MONGO_URL", ""),
		MongoDatabase:    getEnv("MONGO_DB", "customplacedb"),
		DevToolsURL:      getEnv("DEVTOOLS_URL", ""),
		HTTPPort:         getEnv("HTTP_PORT", "8082"),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		PollInterval:     getEnvDuration("POLL_INTERVAL", time.Second),
		DebounceDelay:    getEnvDuration("DEBOUNCE_DELAY", 500*time.Millisecond),
		SelfUpdateWindow: getEnvDuration("SELF_UPDATE_WINDOW", 100*time.Millisecond),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
