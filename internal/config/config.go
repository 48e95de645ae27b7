// Package config assembles pipeline settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds everything the backfill and reference-data commands need.
// Every field has an environment default so a local run against the
// docker-compose Postgres works with no configuration at all.
type Config struct {
	// DatabaseURL is a full pgx connection string. When set it takes
	// precedence over the discrete DB_* fields.
	DatabaseURL string
	DBHost      string
	DBPort      int
	DBName      string
	DBUser      string
	DBPassword  string
	Schema      string

	BackfillSpec string
	ChunkSize    int
	DataDir      string

	TripDataBaseURL string
	ZoneLookupURL   string
	ZoneShapesURL   string

	MetricsPort int
}

const (
	defaultChunkSize   = 10000
	defaultMetricsPort = 9105

	defaultTripDataBaseURL = "https://d37ci6vzurychx.cloudfront.net/trip-data"
	defaultZoneLookupURL   = "https://d37ci6vzurychx.cloudfront.net/misc/taxi_zone_lookup.csv"
	defaultZoneShapesURL   = "https://d37ci6vzurychx.cloudfront.net/misc/taxi_zones.zip"
)

// Load reads configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DBHost:          getenv("DB_HOST", "localhost"),
		DBName:          getenv("DB_NAME", "nyc_taxi"),
		DBUser:          getenv("DB_USER", "postgres"),
		DBPassword:      getenv("DB_PASSWORD", "postgres"),
		Schema:          getenv("DB_SCHEMA", "nyc_taxi"),
		BackfillSpec:    getenv("BACKFILL_MONTHS", "all"),
		DataDir:         getenv("DATA_DIR", "./data"),
		TripDataBaseURL: getenv("TRIP_DATA_BASE_URL", defaultTripDataBaseURL),
		ZoneLookupURL:   getenv("ZONE_LOOKUP_URL", defaultZoneLookupURL),
		ZoneShapesURL:   getenv("ZONE_SHAPES_URL", defaultZoneShapesURL),
	}

	var err error
	if cfg.DBPort, err = getenvInt("DB_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.ChunkSize, err = getenvInt("CHUNK_SIZE", defaultChunkSize); err != nil {
		return Config{}, err
	}
	if cfg.ChunkSize <= 0 {
		return Config{}, fmt.Errorf("config.Load: CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.MetricsPort, err = getenvInt("METRICS_PORT", defaultMetricsPort); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConnString returns the pgx connection string, preferring DATABASE_URL.
func (c Config) ConnString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config.Load: %s: %w", key, err)
	}
	return n, nil
}
