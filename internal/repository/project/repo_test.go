package project

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqldb "github.com/ahmedoothman/expanders360-api/internal/db/sql"
	"github.com/ahmedoothman/expanders360-api/internal/domain"
	domproject "github.com/ahmedoothman/expanders360-api/internal/domain/project"
)

var pg = sqldb.NewDialect(sqldb.DriverPostgres)

func newTestRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, pg), mock
}

func projectRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "client_id", "country", "services_needed", "budget", "status", "created_at", "updated_at",
	})
}

func TestGet_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(pg.Rebind(queryGet))).
		WithArgs(int64(1)).
		WillReturnRows(projectRows().AddRow(1, 3, "Germany", []byte(`["legal","accounting"]`), "50000.00", "active", ts, ts))

	p, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID())
	assert.Equal(t, "Germany", p.Country())
	assert.Equal(t, []string{"legal", "accounting"}, p.ServicesNeeded())
	assert.InDelta(t, 50000.0, p.Budget(), 0.001)
	assert.Equal(t, domproject.StatusActive, p.Status())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(pg.Rebind(queryGet))).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrStoreFailure)
}

func TestGet_StoreFailure(t *testing.T) {
	repo, mock := newTestRepo(t)
	cause := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta(pg.Rebind(queryGet))).
		WithArgs(int64(1)).
		WillReturnError(cause)

	_, err := repo.Get(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrStoreFailure)
	assert.ErrorIs(t, err, cause)
}

func TestListByStatus(t *testing.T) {
	repo, mock := newTestRepo(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(pg.Rebind(queryListByStatus))).
		WithArgs("active").
		WillReturnRows(projectRows().
			AddRow(1, 1, "Germany", []byte(`["legal"]`), 10.0, "active", ts, ts).
			AddRow(2, 1, "France", []byte(`[]`), 20.0, "active", ts, ts))

	got, err := repo.ListByStatus(context.Background(), domproject.StatusActive)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1].ID())
	assert.Empty(t, got[1].ServicesNeeded())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStatus_BadJSON(t *testing.T) {
	repo, mock := newTestRepo(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(pg.Rebind(queryListByStatus))).
		WithArgs("active").
		WillReturnRows(projectRows().AddRow(1, 1, "Germany", []byte(`{not json`), 10.0, "active", ts, ts))

	_, err := repo.ListByStatus(context.Background(), domproject.StatusActive)
	assert.ErrorIs(t, err, domain.ErrStoreFailure)
}

func TestListIDsByCountry(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(pg.Rebind(queryListIDsByCountry))).
		WithArgs("Germany").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(5))

	ids, err := repo.ListIDsByCountry(context.Background(), "Germany")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 5}, ids)
}

func TestCreate(t *testing.T) {
	repo, mock := newTestRepo(t)

	p, err := domproject.New(3, "Germany", []string{"legal"}, 50000, domproject.StatusActive)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(pg.Rebind(queryInsert))).
		WithArgs(int64(3), "Germany", `["legal"]`, 50000.0, "active", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	created, err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID())
	assert.NoError(t, mock.ExpectationsWereMet())
}
