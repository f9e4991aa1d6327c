package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// SeedEnabled controls the one-time CSV import at startup.
	SeedEnabled      bool
	SeedLocationsCSV string
	SeedWeatherCSV   string

	// MQTTBroker empty disables MQTT ingestion.
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

// LoadFromEnv reads the process environment. A .env file in the working
// directory, if present, fills in variables that are not already set.
func LoadFromEnv() (Config, error) {
	_ = godotenv.Load()

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := getEnvAsInt("DB_MAX_OPEN_CONNS", 4)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := getEnvAsInt("DB_MAX_IDLE_CONNS", 2)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := getEnvAsDuration("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}

	seedEnabled, err := getEnvAsBool("SEED_ENABLED", true)
	if err != nil {
		return Config{}, err
	}

	mqttPort, err := getEnvAsInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}

	return Config{
		AppEnv:           appEnv,
		LogLevel:         level,
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		Driver:           getEnv("DB_DRIVER", "sqlite3"),
		DSN:              getEnv("DB_DSN", ""),
		Path:             getEnv("SQLITE_PATH", "data/weather_data.db"),
		MaxOpenConns:     maxOpenConns,
		MaxIdleConns:     maxIdleConns,
		ConnMaxLifetime:  connMaxLifetime,
		SeedEnabled:      seedEnabled,
		SeedLocationsCSV: getEnv("SEED_LOCATIONS_CSV", "data/locations.csv"),
		SeedWeatherCSV:   getEnv("SEED_WEATHER_CSV", "data/weather_data.csv"),
		MQTTBroker:       getEnv("MQTT_BROKER", ""),
		MQTTPort:         mqttPort,
		MQTTTopic:        getEnv("MQTT_TOPIC", "weather/measurements"),
		MQTTClientID:     getEnv("MQTT_CLIENT_ID", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvAsInt(key string, fallback int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
