package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/reference"
	"github.com/joseph-ayodele/docforge/internal/schema"
)

var userTable = TableBinding{EntityType: "user", Table: "users", Columns: []string{"id", "name", "position"}}

func TestEntityLookupOnSQLite(t *testing.T) {
	store := openTestSQLite(t)
	_, err := store.DB.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, position TEXT, salary INTEGER)`)
	require.NoError(t, err)
	_, err = store.DB.Exec(`INSERT INTO users (id, name, position, salary) VALUES (1, 'Lee', 'Manager', 100), (2, 'Park', 'Director', 200)`)
	require.NoError(t, err)

	repo, err := NewEntityRepository(store.DB, store.Dialect, []TableBinding{userTable}, nil)
	require.NoError(t, err)

	bindings := reference.NewBindings()
	require.NoError(t, repo.Bind(bindings))
	assert.Equal(t, []string{"user"}, bindings.EntityTypes())

	found, err := bindings.FindOne(context.Background(), "user", map[string]any{"id": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(2), "name": "Park", "position": "Director"}, found)

	missing, err := repo.FindOne(context.Background(), "user", map[string]any{"id": 9})
	require.NoError(t, err)
	assert.Nil(t, missing)

	undeclared, err := repo.FindOne(context.Background(), "user", map[string]any{"salary": 100})
	require.NoError(t, err)
	assert.Nil(t, undeclared)
}

func TestEntityLookupFailureIsInfrastructure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, position FROM users WHERE id = $1 LIMIT 1")).
		WithArgs(1).
		WillReturnError(errors.New("connection refused"))

	repo, err := NewEntityRepository(db, DialectPostgres, []TableBinding{userTable}, nil)
	require.NoError(t, err)

	_, err = repo.FindOne(context.Background(), "user", map[string]any{"id": 1})
	require.Error(t, err)
	assert.True(t, common.IsInfrastructure(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewEntityRepositoryValidatesIdentifiers(t *testing.T) {
	_, err := NewEntityRepository(nil, DialectSQLite, []TableBinding{
		{EntityType: "user", Table: "users; DROP TABLE x", Columns: []string{"id"}},
		{EntityType: "dept", Table: "departments", Columns: []string{"name-with-dash"}},
		{EntityType: "empty", Table: "t"},
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestLoadTableBindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tables:
  - entityType: user
    table: users
    columns: [id, name, position]
`), 0o644))

	got, err := LoadTableBindings(path)
	require.NoError(t, err)
	assert.Equal(t, []TableBinding{userTable}, got)
}

func TestEntityLookupNonScalarValueIsNotFound(t *testing.T) {
	store := openTestSQLite(t)
	_, err := store.DB.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, position TEXT)`)
	require.NoError(t, err)
	_, err = store.DB.Exec(`INSERT INTO users (id, name, position) VALUES (1, 'Lee', 'Manager')`)
	require.NoError(t, err)

	repo, err := NewEntityRepository(store.DB, store.Dialect, []TableBinding{userTable}, nil)
	require.NoError(t, err)

	found, err := repo.FindOne(context.Background(), "user", map[string]any{"id": map[string]any{"id": 1}})
	require.NoError(t, err)
	assert.Nil(t, found)
	found, err = repo.FindOne(context.Background(), "user", map[string]any{"id": []any{1}})
	require.NoError(t, err)
	assert.Nil(t, found)

	bindings := reference.NewBindings()
	require.NoError(t, repo.Bind(bindings))
	resolver := reference.NewResolver(bindings, nil, nil)
	refs := []schema.ReferenceFieldSpec{
		{Field: "requester", EntityType: "user", LookupField: "id", TargetPath: "requester", Fields: []string{"name"}},
		{Field: "approvers", EntityType: "user", LookupField: "id", TargetPath: "approvers", Fields: []string{"name"}, IsArray: true},
	}
	out, issues, err := resolver.Resolve(context.Background(), refs, map[string]any{
		"requester": map[string]any{"id": 1},
		"approvers": []any{map[string]any{"id": map[string]any{"id": 1}}, map[string]any{"id": 1}},
	})
	require.NoError(t, err)
	assert.False(t, common.IsInfrastructure(err))
	assert.Len(t, issues, 2)
	assert.NotContains(t, out, "requester")
	assert.Equal(t, []map[string]any{{"name": "Lee"}}, out["approvers"])
}
