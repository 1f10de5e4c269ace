package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	sqldb "github.com/ahmedoothman/expanders360-api/internal/db/sql"
	"github.com/ahmedoothman/expanders360-api/internal/domain"
	domproject "github.com/ahmedoothman/expanders360-api/internal/domain/project"
)

const projectColumns = `id, client_id, country, services_needed, budget, status, created_at, updated_at`

const (
	queryInsert = `INSERT INTO projects (client_id, country, services_needed, budget, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`
	queryGet              = `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	queryListByStatus     = `SELECT ` + projectColumns + ` FROM projects WHERE status = ? ORDER BY id`
	queryListIDsByCountry = `SELECT id FROM projects WHERE country = ? ORDER BY id`
)

// querier is the consumer interface for SQL access (ISP).
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo is the relational ProjectStore.
type Repo struct {
	db      querier
	dialect sqldb.Dialect
}

// New creates a project repository.
func New(db querier, dialect sqldb.Dialect) *Repo {
	return &Repo{db: db, dialect: dialect}
}

// Create inserts a project and returns it with its assigned id.
func (r *Repo) Create(ctx context.Context, p domproject.Project) (domproject.Project, error) {
	services, err := json.Marshal(nonNil(p.ServicesNeeded()))
	if err != nil {
		return domproject.Project{}, fmt.Errorf("marshal services: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, r.dialect.Rebind(queryInsert),
		p.ClientID(), p.Country(), string(services), p.Budget(), string(p.Status()),
		r.dialect.Time(p.CreatedAt()), r.dialect.Time(p.UpdatedAt()),
	).Scan(&id)
	if err != nil {
		return domproject.Project{}, domain.StoreError("insert project", err)
	}

	return domproject.Reconstruct(id, p.ClientID(), p.Country(), p.ServicesNeeded(), p.Budget(),
		p.Status(), p.CreatedAt(), p.UpdatedAt()), nil
}

// Get returns a project by id or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id int64) (domproject.Project, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(queryGet), id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domproject.Project{}, domain.NewNotFound("project", strconv.FormatInt(id, 10))
		}
		return domproject.Project{}, domain.StoreError("get project", err)
	}
	return p, nil
}

// ListByStatus returns all projects with the given status, ordered by id.
func (r *Repo) ListByStatus(ctx context.Context, status domproject.Status) ([]domproject.Project, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(queryListByStatus), string(status))
	if err != nil {
		return nil, domain.StoreError("list projects by status", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domproject.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, domain.StoreError("scan project", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("list projects by status", err)
	}
	return out, nil
}

// ListIDsByCountry returns the ids of all projects targeting country.
func (r *Repo) ListIDsByCountry(ctx context.Context, country string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(queryListIDsByCountry), country)
	if err != nil {
		return nil, domain.StoreError("list project ids by country", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, domain.StoreError("scan project id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("list project ids by country", err)
	}
	return ids, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (domproject.Project, error) {
	var (
		id, clientID     int64
		country, status  string
		services         []byte
		budget           float64
		created, updated sqldb.Timestamp
	)
	if err := s.Scan(&id, &clientID, &country, &services, &budget, &status, &created, &updated); err != nil {
		return domproject.Project{}, err
	}
	var needed []string
	if len(services) > 0 {
		if err := json.Unmarshal(services, &needed); err != nil {
			return domproject.Project{}, fmt.Errorf("decode services_needed of project %d: %w", id, err)
		}
	}
	return domproject.Reconstruct(id, clientID, country, needed, budget,
		domproject.Status(status), created.Time, updated.Time), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
