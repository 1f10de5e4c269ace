package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the expanders360 API configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Documents     DocumentsConfig     `yaml:"documents"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Analytics     AnalyticsConfig     `yaml:"analytics"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Auth          AuthConfig          `yaml:"auth"`
	Tracing       TracingConfig       `yaml:"tracing"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the relational store settings.
type DatabaseConfig struct {
	Driver           string `yaml:"driver"` // postgres, sqlite (default: postgres)
	DSN              string `yaml:"dsn"`
	MaxOpenConns     int    `yaml:"max_open_conns"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// DocumentsConfig holds the research document store (Redis Stack) settings.
// Leaving addrs empty disables document features; analytics then reports document_count 0.
type DocumentsConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	DefaultPageSize  int      `yaml:"default_page_size"`
	MaxPageSize      int      `yaml:"max_page_size"`
}

// Enabled reports whether a document store is configured.
func (d DocumentsConfig) Enabled() bool { return len(d.Addrs) > 0 }

// SchedulerConfig holds background job settings.
type SchedulerConfig struct {
	Enabled           *bool  `yaml:"enabled"` // default true
	RefreshSchedule   string `yaml:"refresh_schedule"`
	SLASchedule       string `yaml:"sla_schedule"`
	ProjectTimeoutSec int    `yaml:"project_timeout_sec"`
}

// IsEnabled reports whether cron jobs should be started by serve.
func (s SchedulerConfig) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

// AnalyticsConfig holds aggregation settings.
type AnalyticsConfig struct {
	WindowDays  int `yaml:"window_days"`
	TopN        int `yaml:"top_n"`
	CacheTTLSec int `yaml:"cache_ttl_sec"` // negative disables the cache
}

// NotificationsConfig holds match notification settings.
type NotificationsConfig struct {
	Driver     string     `yaml:"driver"` // log, smtp (default: log)
	SMTP       SMTPConfig `yaml:"smtp"`
	RatePerSec float64    `yaml:"rate_per_sec"`
	Burst      int        `yaml:"burst"`
	TimeoutSec int        `yaml:"timeout_sec"`
}

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"` // empty disables export
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120 // on-demand scheduler runs are synchronous
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	addrs := c.Documents.Addrs[:0]
	for _, a := range c.Documents.Addrs {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	c.Documents.Addrs = addrs
	if c.Documents.ReadinessTimeout <= 0 {
		c.Documents.ReadinessTimeout = 10
	}
	if c.Documents.DefaultPageSize <= 0 {
		c.Documents.DefaultPageSize = 20
	}
	if c.Documents.MaxPageSize <= 0 {
		c.Documents.MaxPageSize = 100
	}

	if c.Scheduler.RefreshSchedule == "" {
		c.Scheduler.RefreshSchedule = "@midnight"
	}
	if c.Scheduler.SLASchedule == "" {
		c.Scheduler.SLASchedule = "@hourly"
	}
	if c.Scheduler.ProjectTimeoutSec <= 0 {
		c.Scheduler.ProjectTimeoutSec = 60
	}

	if c.Analytics.WindowDays <= 0 {
		c.Analytics.WindowDays = 30
	}
	if c.Analytics.TopN <= 0 {
		c.Analytics.TopN = 3
	}
	if c.Analytics.CacheTTLSec == 0 {
		c.Analytics.CacheTTLSec = 300
	}

	if c.Notifications.Driver == "" {
		c.Notifications.Driver = "log"
	}
	if c.Notifications.RatePerSec <= 0 {
		c.Notifications.RatePerSec = 5
	}
	if c.Notifications.Burst <= 0 {
		c.Notifications.Burst = 10
	}
	if c.Notifications.TimeoutSec <= 0 {
		c.Notifications.TimeoutSec = 10
	}
	if c.Notifications.SMTP.Port <= 0 {
		c.Notifications.SMTP.Port = 587
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "expanders360-api"
	}
	if c.Tracing.SampleRatio <= 0 {
		c.Tracing.SampleRatio = 1
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be \"postgres\" or \"sqlite\", got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Notifications.Driver {
	case "log":
	case "smtp":
		s := c.Notifications.SMTP
		if s.Host == "" || s.From == "" || s.To == "" {
			return fmt.Errorf("notifications.smtp requires host, from and to")
		}
	default:
		return fmt.Errorf("notifications.driver must be \"log\" or \"smtp\", got %q", c.Notifications.Driver)
	}
	if c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be in (0, 1], got %g", c.Tracing.SampleRatio)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
