package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// Config holds service configuration.
type Config struct {
	StoreDriver       string
	BoltPath          string
	DatabaseURL       string
	MigrationsDir     string
	ServerAddr        string
	VisitTickInterval time.Duration
	DefaultTimeZone   string
	PushWebhookURL    string
	PushRatePerSecond float64
	PushBurst         int
	AuditSigningKey   string
	LogLevel          string
}

// fileConfig is the optional YAML overlay named by RENTAL_HUB_CONFIG. Environment
// variables take precedence over it.
type fileConfig struct {
	Store struct {
		Driver        string `yaml:"driver"`
		BoltPath      string `yaml:"bolt_path"`
		DatabaseURL   string `yaml:"database_url"`
		MigrationsDir string `yaml:"migrations_dir"`
	} `yaml:"store"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Visits struct {
		TickInterval    string `yaml:"tick_interval"`
		DefaultTimeZone string `yaml:"default_timezone"`
	} `yaml:"visits"`
	Push struct {
		WebhookURL    string `yaml:"webhook_url"`
		RatePerSecond string `yaml:"rate_per_second"`
		Burst         string `yaml:"burst"`
	} `yaml:"push"`
	Audit struct {
		SigningKey string `yaml:"signing_key"`
	} `yaml:"audit"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads configuration from the environment, overlaid on the YAML file named by
// RENTAL_HUB_CONFIG when set.
func Load() (*Config, error) {
	var fc fileConfig
	if path := os.Getenv("RENTAL_HUB_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	dsn := getenv("DATABASE_URL", fc.Store.DatabaseURL)
	if dsn == "" {
		user := getenv("POSTGRES_USER", "rental_hub")
		pass := getenv("POSTGRES_PASSWORD", "rental_hub_pass")
		db := getenv("POSTGRES_DB", "rental_hub")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	cfg := &Config{
		StoreDriver:       getenv("STORE_DRIVER", or(fc.Store.Driver, DriverBolt)),
		BoltPath:          getenv("BOLT_PATH", or(fc.Store.BoltPath, "data/rental-hub.db")),
		DatabaseURL:       dsn,
		MigrationsDir:     getenv("MIGRATIONS_DIR", or(fc.Store.MigrationsDir, "internal/migrations")),
		ServerAddr:        getenv("SERVER_ADDR", or(fc.Server.Addr, "0.0.0.0:8080")),
		VisitTickInterval: parseDuration(getenv("VISIT_TICK_INTERVAL", fc.Visits.TickInterval), 60*time.Second),
		DefaultTimeZone:   getenv("DEFAULT_TIMEZONE", or(fc.Visits.DefaultTimeZone, "UTC")),
		PushWebhookURL:    getenv("PUSH_WEBHOOK_URL", fc.Push.WebhookURL),
		PushRatePerSecond: parseFloat(getenv("PUSH_RATE_PER_SECOND", fc.Push.RatePerSecond), 10),
		PushBurst:         parseInt(getenv("PUSH_BURST", fc.Push.Burst), 20),
		AuditSigningKey:   getenv("AUDIT_SIGNING_KEY", fc.Audit.SigningKey),
		LogLevel:          getenv("LOG_LEVEL", or(fc.Log.Level, "info")),
	}

	if cfg.StoreDriver != DriverBolt && cfg.StoreDriver != DriverPostgres {
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if _, err := time.LoadLocation(cfg.DefaultTimeZone); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimeZone, err)
	}
	return cfg, nil
}

// Location returns the zone used for properties without their own.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func or(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseFloat(val string, def float64) float64 {
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return f
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
