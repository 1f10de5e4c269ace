package expanders360

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	sqldb "github.com/ahmedoothman/expanders360-api/internal/db/sql"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver sqldb.Driver
	dsn    string

	redisAddrs    []string
	redisPassword string

	topN int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithPostgres stores projects, vendors and matches in Postgres.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = sqldb.DriverPostgres
		c.dsn = dsn
	})
}

// WithSQLite stores projects, vendors and matches in a SQLite file.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = sqldb.DriverSQLite
		c.dsn = path
	})
}

// WithRedis enables document counts in analytics reports.
// The instance needs RedisJSON and RediSearch (Redis 8 or Redis Stack).
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithTopN sets how many vendors a report keeps per country. Default: 3.
func WithTopN(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topN = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
