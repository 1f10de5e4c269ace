// Package sqldb opens the relational store holding projects, vendors and matches.
// Postgres (lib/pq) is the production driver; SQLite (modernc) serves single-node setups and tests.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

// Driver names a supported SQL backend.
type Driver string

const (
	// DriverPostgres uses github.com/lib/pq.
	DriverPostgres Driver = "postgres"
	// DriverSQLite uses modernc.org/sqlite.
	DriverSQLite Driver = "sqlite"
)

// Config holds connection parameters for the relational store.
type Config struct {
	Driver       Driver
	DSN          string
	MaxOpenConns int
}

// DB wraps *sql.DB with the dialect of its driver.
type DB struct {
	*sql.DB
	dialect Dialect
}

// Open creates a connection pool. It does not wait for the server; see WaitForReady.
func Open(cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown sql driver %q", cfg.Driver)
	}

	db, err := sql.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer; serialize through one connection.
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	return &DB{DB: db, dialect: NewDialect(cfg.Driver)}, nil
}

// Dialect returns the SQL dialect of the underlying driver.
func (d *DB) Dialect() Dialect { return d.dialect }

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (d *DB) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := d.Ping(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := d.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}
