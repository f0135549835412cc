// Package env reads typed configuration values from the process
// environment, after loading a .env file when one is present.
package env

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load pulls a .env file into the environment. Missing files are fine;
// real environments set variables directly.
func Load() {
	_ = godotenv.Load()
}

func GetString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

