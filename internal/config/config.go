// Package config loads service configuration from YAML with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default service configuration values.
const (
	defaultServiceName    = "alerthub"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8090
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

// Default database configuration values.
const (
	defaultDBHost    = "localhost"
	defaultDBPort    = "5432"
	defaultDBUser    = "postgres"
	defaultDBName    = "alerthub"
	defaultDBSSLMode = "disable"
)

// Default ingestion and clustering values.
const (
	defaultClusterWindow      = 72 * time.Hour
	defaultClusterThreshold   = 0.4
	defaultRecencyCutoff      = 12 * time.Hour
	defaultMaxPerFetch        = 50
	defaultPollSchedule       = "*/15 * * * *"
	defaultClassifyConfidence = 0.7
)

// Config holds the application configuration.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Database   DatabaseConfig   `yaml:"database"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Poller     PollerConfig     `yaml:"poller"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServiceConfig holds service identity and runtime settings.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `yaml:"port"`
	Debug   bool   `yaml:"debug"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// ClusteringConfig tunes the story clustering engine.
type ClusteringConfig struct {
	// Window is how far apart in time two alerts may be and still share
	// a cluster.
	Window time.Duration `yaml:"window"`
	// Threshold is the minimum normalized-title similarity for a
	// title-based cluster join.
	Threshold float64 `yaml:"threshold"`
}

// IngestConfig tunes document ingestion.
type IngestConfig struct {
	// RecencyCutoff discards feed items older than this.
	RecencyCutoff time.Duration `yaml:"recency_cutoff"`
	// MaxPerFetch caps feed items ingested per fetch.
	MaxPerFetch int `yaml:"max_per_fetch"`
	// ClassifyConfidence is the minimum classification confidence below
	// which alerts are parked for manual review.
	ClassifyConfidence float64 `yaml:"classify_confidence"`
}

// PollerConfig controls the scheduled RSS poller.
type PollerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file, applies defaults, then
// environment overrides. A missing file is not an error; defaults and
// environment alone are a valid configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, readErr := os.ReadFile(path)
	if readErr != nil && !errors.Is(readErr, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", readErr)
	}
	if readErr == nil {
		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("parse config: %w", unmarshalErr)
		}
	}

	setDefaults(cfg)
	applyEnvOverrides(cfg)

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port: %d is out of range", c.Service.Port)
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Database == "" {
		return errors.New("database.database is required")
	}
	if c.Clustering.Threshold <= 0 || c.Clustering.Threshold > 1 {
		return fmt.Errorf("clustering.threshold: %g must be in (0, 1]", c.Clustering.Threshold)
	}
	if c.Clustering.Window <= 0 {
		return errors.New("clustering.window must be positive")
	}
	return nil
}

// setDefaults applies default values to all configuration sections.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setIngestDefaults(cfg)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}

	if s.Version == "" {
		s.Version = defaultServiceVersion
	}

	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}

	if d.Port == "" {
		d.Port = defaultDBPort
	}

	if d.User == "" {
		d.User = defaultDBUser
	}

	if d.Database == "" {
		d.Database = defaultDBName
	}

	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
}

func setIngestDefaults(cfg *Config) {
	if cfg.Clustering.Window == 0 {
		cfg.Clustering.Window = defaultClusterWindow
	}

	if cfg.Clustering.Threshold == 0 {
		cfg.Clustering.Threshold = defaultClusterThreshold
	}

	if cfg.Ingest.RecencyCutoff == 0 {
		cfg.Ingest.RecencyCutoff = defaultRecencyCutoff
	}

	if cfg.Ingest.MaxPerFetch == 0 {
		cfg.Ingest.MaxPerFetch = defaultMaxPerFetch
	}

	if cfg.Ingest.ClassifyConfidence == 0 {
		cfg.Ingest.ClassifyConfidence = defaultClassifyConfidence
	}

	if cfg.Poller.Schedule == "" {
		cfg.Poller.Schedule = defaultPollSchedule
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}

	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}

// applyEnvOverrides lets the environment win over file values for the
// settings that differ per deployment.
func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Database.Host, "POSTGRES_ALERTHUB_HOST")
	overrideString(&cfg.Database.Port, "POSTGRES_ALERTHUB_PORT")
	overrideString(&cfg.Database.User, "POSTGRES_ALERTHUB_USER")
	overrideString(&cfg.Database.Password, "POSTGRES_ALERTHUB_PASSWORD")
	overrideString(&cfg.Database.Database, "POSTGRES_ALERTHUB_DB")
	overrideString(&cfg.Logging.Level, "LOG_LEVEL")
	overrideString(&cfg.Logging.Format, "LOG_FORMAT")
	overrideString(&cfg.Poller.Schedule, "ALERTHUB_POLL_SCHEDULE")

	overrideInt(&cfg.Service.Port, "ALERTHUB_PORT")
	overrideInt(&cfg.Ingest.MaxPerFetch, "ALERTHUB_MAX_PER_FETCH")

	overrideBool(&cfg.Service.Debug, "APP_DEBUG")
	overrideBool(&cfg.Poller.Enabled, "ALERTHUB_POLLER_ENABLED")

	overrideDuration(&cfg.Clustering.Window, "ALERTHUB_CLUSTER_WINDOW")
	overrideDuration(&cfg.Ingest.RecencyCutoff, "ALERTHUB_RECENCY_CUTOFF")

	overrideFloat(&cfg.Clustering.Threshold, "ALERTHUB_CLUSTER_THRESHOLD")
}

func overrideString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func overrideInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, parseErr := strconv.Atoi(value); parseErr == nil {
			*dst = parsed
		}
	}
}

func overrideBool(dst *bool, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, parseErr := strconv.ParseBool(value); parseErr == nil {
			*dst = parsed
		}
	}
}

func overrideDuration(dst *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, parseErr := time.ParseDuration(value); parseErr == nil {
			*dst = parsed
		}
	}
}

func overrideFloat(dst *float64, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, parseErr := strconv.ParseFloat(value, 64); parseErr == nil {
			*dst = parsed
		}
	}
}
