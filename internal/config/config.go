package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds application configuration values.
type Config struct {
	DatabaseDSN   string
	HTTPPort      string
	UploadDir     string
	GeocodeAPIKey string
	LogLevel      string
	LogFormat     string
	Timezone      string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	port := getenv("HTTP_PORT", "8080")
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		host := getenv("DB_HOST", "localhost")
		user := getenv("DB_USER", "postgres")
		dbPort := getenv("DB_PORT", "5432")
		name := getenv("DB_NAME", "fieldforce")
		password := getenv("DB_PASSWORD", "postgres")
		dsn = "postgresql://" + user + ":" + password + "@" + host + ":" + dbPort + "/" + name + "?sslmode=disable"
	}

	return Config{
		DatabaseDSN:   dsn,
		HTTPPort:      port,
		UploadDir:     getenv("UPLOAD_DIR", "uploads"),
		GeocodeAPIKey: os.Getenv("GEOCODE_API_KEY"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFormat:     getenv("LOG_FORMAT", "console"),
		Timezone:      getenv("TIMEZONE", "Asia/Kolkata"),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
