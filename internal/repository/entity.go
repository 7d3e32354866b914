package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/reference"
)

// TableBinding maps an entity type onto a table and the columns a lookup may
// read or filter on.
type TableBinding struct {
	EntityType string   `yaml:"entityType" json:"entityType"`
	Table      string   `yaml:"table" json:"table"`
	Columns    []string `yaml:"columns" json:"columns"`
}

// EntityRepository serves reference lookups from bound tables.
type EntityRepository interface {
	FindOne(ctx context.Context, entityType string, criteria map[string]any) (map[string]any, error)
	EntityTypes() []string
	Bind(b *reference.Bindings) error
}

type entityRepo struct {
	db       *sql.DB
	dialect  Dialect
	bindings map[string]TableBinding
	logger   *slog.Logger
}

// NewEntityRepository validates every table and column name up front; they
// are interpolated into SQL.
func NewEntityRepository(db *sql.DB, dialect Dialect, bindings []TableBinding, logger *slog.Logger) (EntityRepository, error) {
	v := common.NewValidator()
	byType := make(map[string]TableBinding, len(bindings))
	for i, b := range bindings {
		prefix := fmt.Sprintf("tables[%d]", i)
		v.Field(prefix+".entityType", b.EntityType, common.Required)
		v.Field(prefix+".table", b.Table, common.Identifier)
		if len(b.Columns) == 0 {
			v.Add(prefix+".columns", b.Columns, "at least one column is required")
		}
		for j, c := range b.Columns {
			v.Field(fmt.Sprintf("%s.columns[%d]", prefix, j), c, common.Identifier)
		}
		if _, dup := byType[b.EntityType]; dup {
			v.Add(prefix+".entityType", b.EntityType, "bound twice")
		}
		byType[b.EntityType] = b
	}
	if err := v.Error(); err != nil {
		return nil, err
	}
	return &entityRepo{
		db:       db,
		dialect:  dialect,
		bindings: byType,
		logger:   common.LoggerOrDefault(logger),
	}, nil
}

func (r *entityRepo) EntityTypes() []string {
	return slices.Sorted(maps.Keys(r.bindings))
}

// Bind registers a finder for every bound entity type.
func (r *entityRepo) Bind(b *reference.Bindings) error {
	for _, et := range r.EntityTypes() {
		if err := b.Bind(et, r.finder(et)); err != nil {
			return err
		}
	}
	return nil
}

func (r *entityRepo) finder(entityType string) reference.Finder {
	return func(ctx context.Context, criteria map[string]any) (map[string]any, error) {
		return r.FindOne(ctx, entityType, criteria)
	}
}

// FindOne returns the first row matching every criteria column, or nil when
// there is none. Criteria naming undeclared columns, or carrying a map or list
// value, match nothing.
func (r *entityRepo) FindOne(ctx context.Context, entityType string, criteria map[string]any) (map[string]any, error) {
	b, ok := r.bindings[entityType]
	if !ok {
		return nil, common.NewAppError("WIRING_ERROR", fmt.Sprintf("no table bound for entity type %q", entityType), common.ErrInternal)
	}
	if len(criteria) == 0 {
		return nil, nil
	}

	keys := slices.Sorted(maps.Keys(criteria))
	where := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		if !slices.Contains(b.Columns, k) {
			r.logger.Warn("entity.lookup.undeclared_column", "entity_type", entityType, "column", k)
			return nil, nil
		}
		if !reference.IsScalarKey(criteria[k]) {
			r.logger.Warn("entity.lookup.unsupported_value", "entity_type", entityType, "column", k, "value", criteria[k])
			return nil, nil
		}
		where[i] = fmt.Sprintf("%s = %s", k, r.dialect.placeholder(i+1))
		args[i] = sqlArg(criteria[k])
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1",
		strings.Join(b.Columns, ", "), b.Table, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query entity", "entity_type", entityType, "error", err)
		return nil, common.DatabaseError("find "+entityType, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, common.DatabaseError("find "+entityType, err)
		}
		return nil, nil
	}

	values := make([]any, len(b.Columns))
	ptrs := make([]any, len(b.Columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, common.DatabaseError("scan "+entityType, err)
	}

	out := make(map[string]any, len(b.Columns))
	for i, c := range b.Columns {
		if raw, isBytes := values[i].([]byte); isBytes {
			out[c] = string(raw)
			continue
		}
		out[c] = values[i]
	}
	return out, nil
}

// sqlArg turns decoded JSON numbers into Go numbers before they reach the driver.
func sqlArg(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

type tablesFile struct {
	Tables []TableBinding `yaml:"tables"`
}

// LoadTableBindings reads a YAML (or JSON) file of the form
// {tables: [{entityType, table, columns}]}.
func LoadTableBindings(path string) ([]TableBinding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table bindings %s: %w", path, err)
	}
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "parse table bindings", errors.Join(common.ErrInvalidInput, err))
	}
	return f.Tables, nil
}
