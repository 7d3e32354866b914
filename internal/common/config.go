package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Schema    SchemaConfig
	Log       LogConfig
	Transform TransformConfig
	Reference ReferenceConfig
	Ingest    IngestConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// SchemaConfig points at the document type bootstrap file
type SchemaConfig struct {
	Path string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// TransformConfig holds pipeline tuning
type TransformConfig struct {
	LookupConcurrency int
}

// ReferenceConfig says where entity lookups come from: database tables,
// static fixture records, or both.
type ReferenceConfig struct {
	TablesPath   string
	FixturesPath string
}

// IngestConfig holds inbox watcher settings
type IngestConfig struct {
	InboxDir  string
	OutboxDir string
	Workers   int
	Debounce  time.Duration
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// NewViper returns a viper instance with every key defaulted and bound to its
// environment variable.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_URL", "")
	v.SetDefault("SQLITE_PATH", "./docforge.db")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", 5*time.Minute)
	v.SetDefault("DB_DIAL_TIMEOUT", 3*time.Second)
	v.SetDefault("DB_STATEMENT_TIMEOUT", time.Duration(0))
	v.SetDefault("SCHEMA_PATH", "./schemas.yaml")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOOKUP_CONCURRENCY", 4)
	v.SetDefault("ENTITY_TABLES", "")
	v.SetDefault("ENTITY_FIXTURES", "")
	v.SetDefault("INBOX_DIR", "./inbox")
	v.SetDefault("OUTBOX_DIR", "./outbox")
	v.SetDefault("INGEST_WORKERS", 2)
	v.SetDefault("INGEST_DEBOUNCE", 250*time.Millisecond)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return LoadConfigFrom(NewViper())
}

// LoadConfigFile layers a config file (yaml, toml or json) under the environment.
func LoadConfigFile(path string) (*Config, error) {
	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return LoadConfigFrom(v), nil
}

// LoadConfigFrom reads every setting out of v.
func LoadConfigFrom(v *viper.Viper) *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:              v.GetString("DB_URL"),
			SQLitePath:       v.GetString("SQLITE_PATH"),
			MaxConns:         v.GetInt32("DB_MAX_CONNS"),
			MinConns:         v.GetInt32("DB_MIN_CONNS"),
			MaxConnLifetime:  v.GetDuration("DB_MAX_CONN_LIFETIME"),
			MaxConnIdleTime:  v.GetDuration("DB_MAX_CONN_IDLE_TIME"),
			DialTimeout:      v.GetDuration("DB_DIAL_TIMEOUT"),
			StatementTimeout: v.GetDuration("DB_STATEMENT_TIMEOUT"),
		},
		Schema: SchemaConfig{
			Path: v.GetString("SCHEMA_PATH"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Transform: TransformConfig{
			LookupConcurrency: v.GetInt("LOOKUP_CONCURRENCY"),
		},
		Reference: ReferenceConfig{
			TablesPath:   v.GetString("ENTITY_TABLES"),
			FixturesPath: v.GetString("ENTITY_FIXTURES"),
		},
		Ingest: IngestConfig{
			InboxDir:  v.GetString("INBOX_DIR"),
			OutboxDir: v.GetString("OUTBOX_DIR"),
			Workers:   v.GetInt("INGEST_WORKERS"),
			Debounce:  v.GetDuration("INGEST_DEBOUNCE"),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres driver", ErrInvalidInput)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return NewAppError("CONFIG_ERROR", "SQLITE_PATH is required for the sqlite driver", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver), ErrInvalidInput)
	}
	if c.Schema.Path == "" {
		return NewAppError("CONFIG_ERROR", "SCHEMA_PATH is required", ErrInvalidInput)
	}
	if c.Transform.LookupConcurrency < 1 {
		return NewAppError("CONFIG_ERROR", "LOOKUP_CONCURRENCY must be at least 1", ErrInvalidInput)
	}
	return nil
}
