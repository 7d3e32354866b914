package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "./docforge.db", cfg.Database.SQLitePath)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 4, cfg.Transform.LookupConcurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingest.Debounce)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("DB_URL", "postgres://localhost/docforge")
	t.Setenv("LOOKUP_CONCURRENCY", "8")
	t.Setenv("ENTITY_FIXTURES", "./fixtures.json")

	cfg := LoadConfig()
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/docforge", cfg.Database.DSN)
	assert.Equal(t, 8, cfg.Transform.LookupConcurrency)
	assert.Equal(t, "./fixtures.json", cfg.Reference.FixturesPath)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("SCHEMA_PATH: ./types.toml\nINGEST_WORKERS: 6\n"), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "./types.toml", cfg.Schema.Path)
	assert.Equal(t, 6, cfg.Ingest.Workers)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres; c.Database.DSN = "" }},
		{"sqlite without path", func(c *Config) { c.Database.SQLitePath = "" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"no schema path", func(c *Config) { c.Schema.Path = "" }},
		{"zero concurrency", func(c *Config) { c.Transform.LookupConcurrency = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestIsInfrastructure(t *testing.T) {
	assert.False(t, IsInfrastructure(nil))
	assert.True(t, IsInfrastructure(DatabaseError("select", errors.New("broken pipe"))))
	assert.True(t, IsInfrastructure(NewAppError("WIRING_ERROR", "no lookup", ErrInternal)))
	assert.True(t, IsInfrastructure(errors.New("unclassified")))
	assert.False(t, IsInfrastructure(ValidationError{Field: "title", Message: "too long"}))
	assert.False(t, IsInfrastructure(NewAppError("RENDER_ERROR", "bad value", ErrInvalidInput)))
	assert.False(t, IsInfrastructure(ErrNotFound))
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.OK, ToStatus(nil).Code())
	assert.Equal(t, codes.Unavailable, ToStatus(DatabaseError("ping", errors.New("refused"))).Code())
	assert.Equal(t, codes.InvalidArgument, ToStatus(ValidationError{Field: "x"}).Code())
	assert.Equal(t, codes.NotFound, ToStatus(WrapError(ErrNotFound, "user 3")).Code())
	assert.Equal(t, codes.Internal, ToStatus(errors.New("boom")).Code())
	assert.Equal(t, codes.InvalidArgument, ToStatus(InvalidArgumentError("bad")).Code())
}

func TestDatabaseErrorNil(t *testing.T) {
	assert.NoError(t, DatabaseError("noop", nil))
	assert.NoError(t, WrapError(nil, "noop"))
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("name", "", Required).
		Field("title", "사업계획서 초안", MaxLength(4)).
		Field("driver", "mysql", OneOf(DriverPostgres, DriverSQLite)).
		Field("table", "users; drop", Identifier).
		Field("path", "approval..lines", DotPath).
		Field("ok", "approval.lines", DotPath)

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 5)
	err := v.Error()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "must be at most 4 characters")

	st := ToStatus(ValidateAndReturnError(v))
	assert.Equal(t, codes.InvalidArgument, st.Code())

	clean := NewValidator().Field("name", "Lee", Required)
	assert.NoError(t, clean.Error())
	assert.NoError(t, ValidateAndReturnError(clean))
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithDocumentType(WithRequestID(ctx, "req-7"), "estimate")
	assert.Equal(t, "req-7", RequestIDFromContext(ctx))
	assert.Equal(t, "estimate", DocumentTypeFromContext(ctx))
	assert.NotEqual(t, NewRequestID(), NewRequestID())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "text", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "k=v")
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
	assert.Same(t, logger, LoggerOrDefault(logger))
	assert.NotNil(t, LoggerOrDefault(nil))
}
