package sqldb

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id              BIGSERIAL PRIMARY KEY,
		client_id       BIGINT NOT NULL DEFAULT 0,
		country         TEXT NOT NULL,
		services_needed JSONB NOT NULL DEFAULT '[]'::jsonb,
		budget          NUMERIC(12,2) NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'active',
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_status ON projects (status)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_country ON projects (country)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id                  BIGSERIAL PRIMARY KEY,
		name                TEXT NOT NULL,
		countries_supported JSONB NOT NULL DEFAULT '[]'::jsonb,
		services_offered    JSONB NOT NULL DEFAULT '[]'::jsonb,
		rating              NUMERIC(3,2) NOT NULL DEFAULT 0,
		response_sla_hours  INTEGER NOT NULL DEFAULT 24,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vendors_countries ON vendors USING GIN (countries_supported)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id         BIGSERIAL PRIMARY KEY,
		project_id BIGINT NOT NULL,
		vendor_id  BIGINT NOT NULL,
		score      NUMERIC(5,2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_matches_project_vendor ON matches (project_id, vendor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_created_at ON matches (created_at)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id       INTEGER NOT NULL DEFAULT 0,
		country         TEXT NOT NULL,
		services_needed TEXT NOT NULL DEFAULT '[]',
		budget          REAL NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'active',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_status ON projects (status)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_country ON projects (country)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		name                TEXT NOT NULL,
		countries_supported TEXT NOT NULL DEFAULT '[]',
		services_offered    TEXT NOT NULL DEFAULT '[]',
		rating              REAL NOT NULL DEFAULT 0,
		response_sla_hours  INTEGER NOT NULL DEFAULT 24,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		vendor_id  INTEGER NOT NULL,
		score      REAL NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_matches_project_vendor ON matches (project_id, vendor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_created_at ON matches (created_at)`,
}

// Migrate creates tables and indexes if they do not exist. Safe to run on every start.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if d.dialect.Driver() == DriverPostgres {
		stmts = postgresSchema
	}
	for i, stmt := range stmts {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
