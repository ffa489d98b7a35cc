// Package dbutil provides the shared Postgres connection-pool wiring used by
// every service's durable adapter. Each service keeps its own embedded
// migration set (see e.g. knowledgestore/store/postgres/migrations) and
// passes it to Open; the pool, defaults, and health-check shape are common.
package dbutil

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds Postgres connection-pool configuration.
type Config struct {
	URI string // full DSN; takes precedence over the discrete fields below

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfigFromEnv reads <prefix>_URI first; if unset it falls back to the
// discrete <prefix>_HOST/_PORT/... variables. prefix is e.g. "DOCUMENT_STORE"
// so each service can be pointed at its own database independently.
func LoadConfigFromEnv(prefix string) (Config, error) {
	if uri := os.Getenv(prefix + "_URI"); uri != "" {
		return Config{URI: uri, MaxConns: 25, MinConns: 2, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 15 * time.Minute}, nil
	}

	port, err := strconv.Atoi(getEnvOrDefault(prefix+"_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s_PORT: %w", prefix, err)
	}
	maxConns, _ := strconv.Atoi(getEnvOrDefault(prefix+"_MAX_CONNS", "25"))
	minConns, _ := strconv.Atoi(getEnvOrDefault(prefix+"_MIN_CONNS", "2"))

	cfg := Config{
		Host:            getEnvOrDefault(prefix+"_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault(prefix+"_USER", "postgres"),
		Password:        os.Getenv(prefix + "_PASSWORD"),
		Database:        getEnvOrDefault(prefix+"_DB", "postgres"),
		SSLMode:         getEnvOrDefault(prefix+"_SSLMODE", "disable"),
		MaxConns:        int32(maxConns),
		MinConns:        int32(minConns),
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants on discrete (non-URI) configuration.
func (c Config) Validate() error {
	if c.URI != "" {
		return nil
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("MIN_CONNS (%d) cannot exceed MAX_CONNS (%d)", c.MinConns, c.MaxConns)
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("MAX_CONNS must be at least 1")
	}
	return nil
}

// DSN renders a postgres:// URL-style connection string. pgxpool and
// golang-migrate's pgx5 driver both accept this form directly.
func (c Config) DSN() string {
	if c.URI != "" {
		return c.URI
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
