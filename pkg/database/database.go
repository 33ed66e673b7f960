// Package database holds the Postgres connection behind the trust-anchor
// store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/tddproof/tddproof-backend/pkg/config"
	"github.com/tddproof/tddproof-backend/pkg/logger"
)

// defaultConnectTimeout applies when the config leaves connect_timeout unset
const defaultConnectTimeout = 5 * time.Second

// DB wraps sqlx.DB with health reporting and transactions
type DB struct {
	*sqlx.DB
	logger *logger.Logger
}

// New opens the pool and pings it within the configured connect timeout
func New(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	wrapped := Wrap(db, log)
	wrapped.logger.Info().
		Str("application_name", cfg.ApplicationName).
		Int("max_open_conns", cfg.MaxOpenConns).
		Dur("statement_timeout", cfg.StatementTimeout).
		Msg("connected to trust-anchor database")
	return wrapped, nil
}

// Wrap adopts an existing connection, e.g. a sqlmock-backed one in tests
func Wrap(db *sqlx.DB, log *logger.Logger) *DB {
	return &DB{
		DB:     db,
		logger: log.WithComponent("database"),
	}
}

// Close closes the pool
func (db *DB) Close() error {
	return db.DB.Close()
}

// Health pings the database and reports pool usage
func (db *DB) Health(ctx context.Context) map[string]string {
	stats := db.Stats()
	status := map[string]string{
		"status":           "up",
		"open_connections": strconv.Itoa(stats.OpenConnections),
		"in_use":           strconv.Itoa(stats.InUse),
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
	}

	return status
}

// Transaction runs fn in a read-write transaction
func (db *DB) Transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return db.transaction(ctx, nil, fn)
}

// ReadOnly runs fn in a read-only transaction, which Postgres enforces
func (db *DB) ReadOnly(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return db.transaction(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (db *DB) transaction(ctx context.Context, opts *sql.TxOptions, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
