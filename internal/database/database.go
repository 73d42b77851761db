package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"marketplace/internal/config"
	"marketplace/internal/logger"
)

//go:embed schema.sql
var schema string

// Service represents a service that interacts with a database.
type Service interface {
	// DB exposes the pool to repositories.
	DB() *sql.DB

	// WithinTx runs fn inside a transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error

	// Migrate creates the schema if it does not exist yet.
	Migrate(ctx context.Context) error

	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health(ctx context.Context) map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error
}

type service struct {
	db  *sql.DB
	log *logrus.Entry
}

// New opens a pool against cfg and verifies it with a ping.
func New(ctx context.Context, cfg config.Database, log logrus.FieldLogger) (Service, error) {
	return Open(ctx, cfg.DSN(), cfg, log)
}

// Open is New with an explicit DSN, used when the DSN comes from elsewhere
// (a test container, for instance).
func Open(ctx context.Context, dsn string, cfg config.Database, log logrus.FieldLogger) (Service, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	entry := logger.Component(log, "database")
	entry.WithFields(logrus.Fields{"host": cfg.Host, "database": cfg.Database}).Info("connected to database")
	return &service{db: db, log: entry}, nil
}

func (s *service) DB() *sql.DB {
	return s.db
}

func (s *service) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *service) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info("schema up to date")
	return nil
}

// Health reports "status" (up or down) plus pool counters for /health.
func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.log.WithError(err).Error("health check failed")
		return map[string]string{"status": "down", "error": err.Error()}
	}

	pool := s.db.Stats()
	return map[string]string{
		"status":         "up",
		"open":           strconv.Itoa(pool.OpenConnections),
		"in_use":         strconv.Itoa(pool.InUse),
		"idle":           strconv.Itoa(pool.Idle),
		"max_open":       strconv.Itoa(pool.MaxOpenConnections),
		"wait_count":     strconv.FormatInt(pool.WaitCount, 10),
		"wait_duration":  pool.WaitDuration.String(),
		"closed_on_idle": strconv.FormatInt(pool.MaxIdleClosed+pool.MaxIdleTimeClosed, 10),
	}
}

// Close closes the database connection.
func (s *service) Close() error {
	s.log.Info("disconnected from database")
	return s.db.Close()
}
