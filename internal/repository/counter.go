package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/docforge/internal/common"
)

const createCountersTable = `CREATE TABLE IF NOT EXISTS atomic_counters (
	counter_id TEXT PRIMARY KEY,
	seq BIGINT NOT NULL
)`

// CounterRepository hands out gap-free sequence values per series key.
type CounterRepository interface {
	NextValue(ctx context.Context, seriesKey string) (int64, error)
}

type counterRepo struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger

	mu      sync.Mutex
	ensured bool
}

func NewCounterRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) CounterRepository {
	return &counterRepo{
		db:      db,
		dialect: dialect,
		logger:  common.LoggerOrDefault(logger),
	}
}

// NextValue increments and returns the counter in one upsert, so concurrent
// callers on the same key never see the same value. The first value of a new
// key is 1.
func (r *counterRepo) NextValue(ctx context.Context, seriesKey string) (int64, error) {
	if seriesKey == "" {
		return 0, common.NewAppError("INVALID_INPUT", "series key is required", common.ErrInvalidInput)
	}
	if err := r.ensureTable(ctx); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("failed to begin counter transaction", "series_key", seriesKey, "error", err)
		return 0, common.DatabaseError("begin counter tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`INSERT INTO atomic_counters (counter_id, seq) VALUES (%s, 1)
ON CONFLICT (counter_id) DO UPDATE SET seq = atomic_counters.seq + 1
RETURNING seq`, r.dialect.placeholder(1))

	var seq int64
	if err := tx.QueryRowContext(ctx, query, seriesKey).Scan(&seq); err != nil {
		r.logger.Error("failed to increment counter", "series_key", seriesKey, "error", err)
		return 0, common.DatabaseError("increment counter", err)
	}
	if err := tx.Commit(); err != nil {
		r.logger.Error("failed to commit counter", "series_key", seriesKey, "error", err)
		return 0, common.DatabaseError("commit counter", err)
	}

	r.logger.Debug("counter.next", "series_key", seriesKey, "seq", seq)
	return seq, nil
}

func (r *counterRepo) ensureTable(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ensured {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, createCountersTable); err != nil {
		r.logger.Error("failed to create counters table", "error", err)
		return common.DatabaseError("create atomic_counters", err)
	}
	r.ensured = true
	return nil
}
