package expanders360

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbRedis "github.com/ahmedoothman/expanders360-api/internal/db/redis"
	sqldb "github.com/ahmedoothman/expanders360-api/internal/db/sql"
	domanalytics "github.com/ahmedoothman/expanders360-api/internal/domain/analytics"
	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
	documentrepo "github.com/ahmedoothman/expanders360-api/internal/repository/document"
	matchrepo "github.com/ahmedoothman/expanders360-api/internal/repository/match"
	projectrepo "github.com/ahmedoothman/expanders360-api/internal/repository/project"
	vendorrepo "github.com/ahmedoothman/expanders360-api/internal/repository/vendor"
	analyticsuc "github.com/ahmedoothman/expanders360-api/internal/usecase/analytics"
	healthuc "github.com/ahmedoothman/expanders360-api/internal/usecase/health"
	matchinguc "github.com/ahmedoothman/expanders360-api/internal/usecase/matching"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for mocks in tests.
type matchingUseCase interface {
	Rebuild(ctx context.Context, projectID int64) ([]dommatch.Match, error)
	Matches(ctx context.Context, projectID int64) ([]dommatch.Match, error)
}

type analyticsUseCase interface {
	TopVendorsByCountry(ctx context.Context, windowDays int) (domanalytics.Report, error)
}

// Client is the expanders360 SDK entry point.
type Client struct {
	db        *sqldb.DB
	redis     *dbRedis.Store
	matchSvc  matchingUseCase
	reportSvc analyticsUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New connects to the configured stores, applies the schema and returns a Client.
// The provided context is used for the readiness checks and migrations.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.dsn == "" {
		return nil, errors.New("expanders360: database required (use WithPostgres or WithSQLite)")
	}

	db, err := sqldb.Open(sqldb.Config{Driver: cfg.driver, DSN: cfg.dsn})
	if err != nil {
		return nil, fmt.Errorf("expanders360: open database: %w", err)
	}
	if err := db.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("expanders360: database not ready: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("expanders360: migrate: %w", err)
	}

	var store *dbRedis.Store
	if len(cfg.redisAddrs) > 0 {
		store, err = openRedis(ctx, cfg)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		if store != nil {
			store.Close()
		}
		_ = db.Close()
		return nil, err
	}
	return wireClient(db, store, cfg, obs), nil
}

func openRedis(ctx context.Context, cfg *clientConfig) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.redisAddrs,
		Password: cfg.redisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("expanders360: create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("expanders360: redis not ready: %w", err)
	}
	if err := documentrepo.New(store).EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("expanders360: ensure document index: %w", err)
	}
	return store, nil
}

func wireClient(db *sqldb.DB, store *dbRedis.Store, cfg *clientConfig, obs *observer) *Client {
	projects := projectrepo.New(db, db.Dialect())
	vendors := vendorrepo.New(db, db.Dialect())
	matches := matchrepo.New(db, db.Dialect())

	// Untyped nils: a typed nil pointer would make the interfaces non-nil.
	var (
		docs      analyticsuc.DocumentCounter
		docsPinger healthuc.Pinger
	)
	if store != nil {
		docs = documentrepo.New(store)
		docsPinger = store
	}

	reportSvc := analyticsuc.New(matches, projects, docs)
	if cfg.topN > 0 {
		reportSvc = reportSvc.WithTopN(cfg.topN)
	}

	return &Client{
		db:        db,
		redis:     store,
		matchSvc:  matchinguc.New(projects, vendors, matches),
		reportSvc: reportSvc,
		healthSvc: healthuc.New(db, docsPinger),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.redis != nil {
		c.redis.Close()
	}
	if c.db != nil {
		_ = c.db.Close()
	}
}

// Rebuild recomputes the matches of a project and returns the ones written by this call.
// It returns ErrNotFound for an unknown project.
func (c *Client) Rebuild(ctx context.Context, projectID int64) (out []Match, err error) {
	start := time.Now()
	defer func() { c.obs.observe("rebuild", start, err) }()

	ms, err := c.matchSvc.Rebuild(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("rebuild project %d: %w", projectID, err)
	}
	return matchesFromDomain(ms), nil
}

// Matches returns the stored matches of a project, best score first.
func (c *Client) Matches(ctx context.Context, projectID int64) (out []Match, err error) {
	start := time.Now()
	defer func() { c.obs.observe("matches", start, err) }()

	ms, err := c.matchSvc.Matches(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list matches of project %d: %w", projectID, err)
	}
	return matchesFromDomain(ms), nil
}

// TopVendorsByCountry reports the best vendors per country over matches created in
// the last windowDays days. windowDays <= 0 selects the 30 day default.
func (c *Client) TopVendorsByCountry(ctx context.Context, windowDays int) (out Report, err error) {
	start := time.Now()
	defer func() { c.obs.observe("top_vendors", start, err) }()

	r, err := c.reportSvc.TopVendorsByCountry(ctx, windowDays)
	if err != nil {
		return nil, fmt.Errorf("top vendors: %w", err)
	}
	return reportFromDomain(r), nil
}
