package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Database struct {
	Host            string
	Port            string
	Username        string
	Password        string
	Database        string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN is the pgx connection string for the configured database.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.Schema,
	)
}

type AMQP struct {
	URL      string
	Exchange string
}

type Config struct {
	Port             string
	GinMode          string
	LogLevel         string
	JWTSecret        string
	CORSOrigins      []string
	SessionBuffer    int
	ReminderInterval time.Duration
	ReminderAfter    time.Duration
	DB               Database
	AMQP             AMQP
}

// Load reads the process environment (after .env autoload) and reports every
// missing or malformed key at once.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "release"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		DB: Database{
			Host:     getEnv("BLUEPRINT_DB_HOST", "localhost"),
			Port:     getEnv("BLUEPRINT_DB_PORT", "5432"),
			Username: os.Getenv("BLUEPRINT_DB_USERNAME"),
			Password: os.Getenv("BLUEPRINT_DB_PASSWORD"),
			Database: os.Getenv("BLUEPRINT_DB_DATABASE"),
			Schema:   getEnv("BLUEPRINT_DB_SCHEMA", "public"),
		},
		AMQP: AMQP{
			URL:      os.Getenv("AMQP_URL"),
			Exchange: getEnv("AMQP_EXCHANGE", "notifications_fanout"),
		},
	}

	cfg.SessionBuffer = getInt("SESSION_BUFFER", 32, &errs)
	cfg.DB.MaxOpenConns = getInt("DB_MAX_OPEN_CONNS", 25, &errs)
	cfg.DB.MaxIdleConns = getInt("DB_MAX_IDLE_CONNS", 5, &errs)
	cfg.DB.ConnMaxLifetime = getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute, &errs)
	cfg.ReminderInterval = getDuration("REMINDER_INTERVAL", time.Minute, &errs)
	cfg.ReminderAfter = getDuration("REMINDER_AFTER", 10*time.Minute, &errs)

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.DB.Username == "" {
		errs = append(errs, errors.New("BLUEPRINT_DB_USERNAME is required"))
	}
	if cfg.DB.Database == "" {
		errs = append(errs, errors.New("BLUEPRINT_DB_DATABASE is required"))
	}
	if cfg.SessionBuffer <= 0 {
		errs = append(errs, errors.New("SESSION_BUFFER must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func getDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
