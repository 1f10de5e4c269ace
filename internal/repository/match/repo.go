package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqldb "github.com/ahmedoothman/expanders360-api/internal/db/sql"
	"github.com/ahmedoothman/expanders360-api/internal/domain"
	domanalytics "github.com/ahmedoothman/expanders360-api/internal/domain/analytics"
	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
)

const matchColumns = `id, project_id, vendor_id, score, created_at, updated_at`

// The unique index on (project_id, vendor_id) resolves concurrent upserts of the same
// pair: the last statement to commit wins and no second row can appear.
const queryUpsert = `INSERT INTO matches (project_id, vendor_id, score, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (project_id, vendor_id) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at
	RETURNING ` + matchColumns

const (
	queryGet           = `SELECT ` + matchColumns + ` FROM matches WHERE project_id = ? AND vendor_id = ?`
	queryListByProject = `SELECT ` + matchColumns + ` FROM matches WHERE project_id = ? ORDER BY score DESC, vendor_id`
	queryTopVendors    = `SELECT p.country, v.id, v.name, AVG(m.score) AS avg_score
	FROM matches m
	JOIN projects p ON p.id = m.project_id
	JOIN vendors v ON v.id = m.vendor_id
	WHERE m.created_at >= ?
	GROUP BY p.country, v.id, v.name
	ORDER BY p.country, avg_score DESC, v.id`
)

// querier is the consumer interface for SQL access (ISP).
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo is the relational MatchStore. It never deletes rows.
type Repo struct {
	db      querier
	dialect sqldb.Dialect
	now     func() time.Time
}

// New creates a match repository.
func New(db querier, dialect sqldb.Dialect) *Repo {
	return &Repo{db: db, dialect: dialect, now: time.Now}
}

// WithClock overrides the time source used for created_at/updated_at.
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// Upsert creates the (projectID, vendorID) match or replaces its score and updated_at.
// created_at of an existing row is preserved.
func (r *Repo) Upsert(ctx context.Context, projectID, vendorID int64, score float64) (dommatch.Match, error) {
	ts := r.dialect.Time(r.now())
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(queryUpsert), projectID, vendorID, score, ts, ts)
	m, err := scanMatch(row)
	if err != nil {
		return dommatch.Match{}, domain.StoreError(fmt.Sprintf("upsert match %d/%d", projectID, vendorID), err)
	}
	return m, nil
}

// FindByProjectAndVendor returns the match for a pair or domain.ErrNotFound.
func (r *Repo) FindByProjectAndVendor(ctx context.Context, projectID, vendorID int64) (dommatch.Match, error) {
	m, err := scanMatch(r.db.QueryRowContext(ctx, r.dialect.Rebind(queryGet), projectID, vendorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dommatch.Match{}, domain.NewNotFound("match", fmt.Sprintf("%d/%d", projectID, vendorID))
		}
		return dommatch.Match{}, domain.StoreError("get match", err)
	}
	return m, nil
}

// FindByProject returns all matches of a project, best score first.
func (r *Repo) FindByProject(ctx context.Context, projectID int64) ([]dommatch.Match, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(queryListByProject), projectID)
	if err != nil {
		return nil, domain.StoreError("list matches", err)
	}
	defer func() { _ = rows.Close() }()

	var out []dommatch.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, domain.StoreError("scan match", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("list matches", err)
	}
	return out, nil
}

// AverageScoresSince returns the average score per (country, vendor) over matches
// created at or after since, ordered by country then average descending.
func (r *Repo) AverageScoresSince(ctx context.Context, since time.Time) ([]domanalytics.VendorAverage, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(queryTopVendors), r.dialect.Time(since))
	if err != nil {
		return nil, domain.StoreError("aggregate match scores", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domanalytics.VendorAverage
	for rows.Next() {
		var va domanalytics.VendorAverage
		if err := rows.Scan(&va.Country, &va.VendorID, &va.VendorName, &va.AvgScore); err != nil {
			return nil, domain.StoreError("scan score aggregate", err)
		}
		out = append(out, va)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("aggregate match scores", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(s scanner) (dommatch.Match, error) {
	var (
		id, projectID, vendorID int64
		score                   float64
		created, updated        sqldb.Timestamp
	)
	if err := s.Scan(&id, &projectID, &vendorID, &score, &created, &updated); err != nil {
		return dommatch.Match{}, err
	}
	return dommatch.Reconstruct(id, projectID, vendorID, score, created.Time, updated.Time), nil
}
