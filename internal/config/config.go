// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverValkey   = "valkey"
)

// Config holds server configuration.
type Config struct {
	Addr      string
	LogLevel  slog.Level
	LogFormat string

	StoreDriver      string
	PresentationsDir string
	SQLitePath       string
	DatabaseURL      string
	ValkeyAddr       string
	ValkeyPrefix     string

	JWTSecret               string
	PresenterPassphraseHash string
	TokenTTL                time.Duration

	AllowedOrigin  string
	RelayNavigates bool
	ClientRate     float64
	ClientBurst    int
	PublicURL      string
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, applying defaults for unset keys.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		Addr:                    get("ADDR", ":5555"),
		LogFormat:               strings.ToLower(get("LOG_FORMAT", "text")),
		StoreDriver:             strings.ToLower(get("STORE_DRIVER", DriverFile)),
		PresentationsDir:        get("PRESENTATIONS_DIR", "presentations"),
		SQLitePath:              get("SQLITE_PATH", "data/scenyx.db"),
		DatabaseURL:             get("DATABASE_URL", ""),
		ValkeyAddr:              get("VALKEY_ADDR", "127.0.0.1:6379"),
		ValkeyPrefix:            get("VALKEY_PREFIX", "scenyx:"),
		JWTSecret:               get("JWT_SECRET", ""),
		PresenterPassphraseHash: get("PRESENTER_PASSPHRASE_HASH", ""),
		AllowedOrigin:           get("ALLOWED_ORIGIN", "*"),
		PublicURL:               strings.TrimRight(get("PUBLIC_URL", ""), "/"),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(get("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want text or json", cfg.LogFormat)
	}
	switch cfg.StoreDriver {
	case DriverMemory, DriverFile, DriverSQLite, DriverValkey:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("STORE_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.TokenTTL, err = time.ParseDuration(get("TOKEN_TTL", "12h")); err != nil || cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL %q", get("TOKEN_TTL", ""))
	}
	if cfg.RelayNavigates, err = strconv.ParseBool(get("RELAY_NAVIGATES", "false")); err != nil {
		return nil, fmt.Errorf("invalid RELAY_NAVIGATES: %w", err)
	}
	if cfg.ClientRate, err = strconv.ParseFloat(get("CLIENT_RATE", "20"), 64); err != nil || cfg.ClientRate <= 0 {
		return nil, fmt.Errorf("invalid CLIENT_RATE %q", get("CLIENT_RATE", ""))
	}
	if cfg.ClientBurst, err = strconv.Atoi(get("CLIENT_BURST", "40")); err != nil || cfg.ClientBurst <= 0 {
		return nil, fmt.Errorf("invalid CLIENT_BURST %q", get("CLIENT_BURST", ""))
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

// Logger builds the process logger described by the config.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
