package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage kinds for the reference task server.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// ServerConfig holds the reference task server settings.
type ServerConfig struct {
	Addr            string
	Storage         string
	DBPath          string
	LogLevel        string
	LogEncoding     string
	ShutdownTimeout time.Duration
}

// LoadServer reads the server settings from the environment (optionally .env).
func LoadServer() (*ServerConfig, error) {
	_ = godotenv.Load(".env")

	cfg := &ServerConfig{
		Addr:            getString("TASKSERVER_ADDR", ":8000"),
		Storage:         getString("TASKSERVER_STORAGE", StorageMemory),
		DBPath:          getString("TASKSERVER_DB_PATH", "data/tasks.db"),
		LogLevel:        getString("LOG_LEVEL", "info"),
		LogEncoding:     getString("LOG_ENCODING", "json"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}

	switch cfg.Storage {
	case StorageMemory, StorageSQLite:
	default:
		return nil, fmt.Errorf("unknown storage: %q", cfg.Storage)
	}
	return cfg, nil
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
