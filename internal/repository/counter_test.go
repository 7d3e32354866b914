package repository

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"slices"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docforge/internal/common"
)

func openTestSQLite(t *testing.T) *Store {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "docforge.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(nil) })
	return store
}

func TestCounterIssuesUpsertInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS atomic_counters")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO atomic_counters (counter_id, seq) VALUES ($1, 1)")).
		WithArgs("estimate_2023").
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(7)))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (counter_id) DO UPDATE SET seq = atomic_counters.seq + 1")).
		WithArgs("estimate_2023").
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(8)))
	mock.ExpectCommit()

	repo := NewCounterRepository(db, DialectPostgres, nil)
	first, err := repo.NextValue(context.Background(), "estimate_2023")
	require.NoError(t, err)
	second, err := repo.NextValue(context.Background(), "estimate_2023")
	require.NoError(t, err)

	assert.Equal(t, int64(7), first)
	assert.Equal(t, int64(8), second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterFailureIsInfrastructure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO atomic_counters").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	repo := NewCounterRepository(db, DialectPostgres, nil)
	_, err = repo.NextValue(context.Background(), "invoice_2024")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.True(t, common.IsInfrastructure(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterRejectsEmptyKey(t *testing.T) {
	repo := NewCounterRepository(nil, DialectSQLite, nil)
	_, err := repo.NextValue(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestCounterConcurrentCallsAreDistinctAndGapFree(t *testing.T) {
	store := openTestSQLite(t)
	repo := NewCounterRepository(store.DB, store.Dialect, nil)

	const n = 25
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		got  []int64
		errs []error
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := repo.NextValue(context.Background(), "문서유형_2023")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			got = append(got, v)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	slices.Sort(got)
	want := make([]int64, n)
	for i := range want {
		want[i] = int64(i + 1)
	}
	assert.Equal(t, want, got)

	other, err := repo.NextValue(context.Background(), "estimate_2023")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}
