package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ahmedoothman/expanders360-api/internal/config"
	dbRedis "github.com/ahmedoothman/expanders360-api/internal/db/redis"
	sqldb "github.com/ahmedoothman/expanders360-api/internal/db/sql"
	documentrepo "github.com/ahmedoothman/expanders360-api/internal/repository/document"
	matchrepo "github.com/ahmedoothman/expanders360-api/internal/repository/match"
	projectrepo "github.com/ahmedoothman/expanders360-api/internal/repository/project"
	vendorrepo "github.com/ahmedoothman/expanders360-api/internal/repository/vendor"
	"github.com/ahmedoothman/expanders360-api/internal/transport/email"
	analyticsuc "github.com/ahmedoothman/expanders360-api/internal/usecase/analytics"
	documentuc "github.com/ahmedoothman/expanders360-api/internal/usecase/document"
	healthuc "github.com/ahmedoothman/expanders360-api/internal/usecase/health"
	matchinguc "github.com/ahmedoothman/expanders360-api/internal/usecase/matching"
	"github.com/ahmedoothman/expanders360-api/internal/usecase/notification"
	scheduleruc "github.com/ahmedoothman/expanders360-api/internal/usecase/scheduler"
)

// application is the composition root shared by all subcommands.
type application struct {
	cfg    config.Config
	logger *zap.Logger

	db       *sqldb.DB
	docStore *dbRedis.Store // nil when documents are disabled

	projects *projectrepo.Repo
	vendors  *vendorrepo.Repo

	matching   *matchinguc.Service
	analytics  *analyticsuc.Service
	documents  *documentuc.Service // nil when documents are disabled
	dispatcher *notification.Dispatcher
	scheduler  *scheduleruc.Service
	health     *healthuc.Service
}

func newApplication(ctx context.Context, cfg config.Config, logger *zap.Logger) (*application, error) {
	db, err := sqldb.Open(sqldb.Config{
		Driver:       sqldb.Driver(cfg.Database.Driver),
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	a := &application{cfg: cfg, logger: logger, db: db}

	if cfg.Documents.Enabled() {
		if err := a.openDocuments(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		logger.Info("Document store disabled; document counts report 0")
	}

	a.wire()
	return a, nil
}

func (a *application) openDocuments(ctx context.Context) error {
	dc := a.cfg.Documents
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    dc.Addrs,
		Username: dc.Username,
		Password: dc.Password,
		DB:       dc.DB,
	})
	if err != nil {
		return fmt.Errorf("create document store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(dc.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return fmt.Errorf("document store not ready: %w", err)
	}
	if err := documentrepo.New(store).EnsureIndex(ctx); err != nil {
		store.Close()
		return fmt.Errorf("ensure document index: %w", err)
	}
	a.docStore = store
	a.logger.Info("Connected to document store", zap.Strings("addrs", dc.Addrs))
	return nil
}

func (a *application) wire() {
	cfg := a.cfg
	a.projects = projectrepo.New(a.db, a.db.Dialect())
	a.vendors = vendorrepo.New(a.db, a.db.Dialect())
	matches := matchrepo.New(a.db, a.db.Dialect())

	// Pass nil interfaces (not typed nil pointers) when documents are disabled.
	var (
		docCounter analyticsuc.DocumentCounter
		docPinger   healthuc.Pinger
	)
	if a.docStore != nil {
		docRepo := documentrepo.New(a.docStore)
		docCounter = docRepo
		docPinger = a.docStore
		a.documents = documentuc.New(docRepo).
			WithPagination(cfg.Documents.DefaultPageSize, cfg.Documents.MaxPageSize)
	}

	a.matching = matchinguc.New(a.projects, a.vendors, matches)
	a.analytics = analyticsuc.New(matches, a.projects, docCounter).
		WithDefaultWindow(cfg.Analytics.WindowDays).
		WithTopN(cfg.Analytics.TopN).
		WithCache(time.Duration(cfg.Analytics.CacheTTLSec) * time.Second)

	sender, recipient := a.notificationSender()
	a.dispatcher = notification.NewDispatcher(sender, recipient).
		WithRateLimit(cfg.Notifications.RatePerSec, cfg.Notifications.Burst).
		WithTimeout(time.Duration(cfg.Notifications.TimeoutSec) * time.Second)

	a.scheduler = scheduleruc.New(a.projects, a.matching, a.dispatcher, a.logger).
		WithProjectTimeout(time.Duration(cfg.Scheduler.ProjectTimeoutSec) * time.Second).
		WithInvalidator(a.analytics)

	a.health = healthuc.New(a.db, docPinger)
}

func (a *application) notificationSender() (notification.Sender, string) {
	nc := a.cfg.Notifications
	if nc.Driver == "smtp" {
		a.logger.Info("Match notifications via SMTP",
			zap.String("host", nc.SMTP.Host),
			zap.Int("port", nc.SMTP.Port),
		)
		return email.NewSender(email.Config{
			Host:     nc.SMTP.Host,
			Port:     nc.SMTP.Port,
			Username: nc.SMTP.Username,
			Password: nc.SMTP.Password,
			From:     nc.SMTP.From,
		}), nc.SMTP.To
	}
	return notification.LogSender{}, ""
}

// close drains pending notifications and releases the stores.
func (a *application) close() {
	a.dispatcher.Wait()
	if a.docStore != nil {
		a.docStore.Close()
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Error closing database", zap.Error(err))
	}
}
