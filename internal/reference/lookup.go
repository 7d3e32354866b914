// Package reference joins entity data owned by other tables into a document
// payload at configured target paths.
package reference

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/joseph-ayodele/docforge/internal/common"
)

// EntityLookup finds a single entity matching criteria. A missing entity is
// (nil, nil); a non-nil error means the store could not answer and the whole
// transformation must abort.
type EntityLookup interface {
	FindOne(ctx context.Context, entityType string, criteria map[string]any) (map[string]any, error)
}

// Finder looks up one entity of a type fixed at binding time.
type Finder func(ctx context.Context, criteria map[string]any) (map[string]any, error)

// Bindings is an EntityLookup assembled from one Finder per entity type.
// Every entity type a schema references must be bound before the pipeline is
// built; see Supports.
type Bindings struct {
	mu      sync.RWMutex
	finders map[string]Finder
}

func NewBindings() *Bindings {
	return &Bindings{finders: make(map[string]Finder)}
}

// Bind registers the finder for entityType. Binding a type twice is an error.
func (b *Bindings) Bind(entityType string, f Finder) error {
	if entityType == "" || f == nil {
		return common.NewAppError("WIRING_ERROR", "entity type and finder are required", common.ErrInvalidInput)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.finders[entityType]; ok {
		return common.NewAppError("WIRING_ERROR", fmt.Sprintf("entity type %q already bound", entityType), common.ErrInvalidInput)
	}
	b.finders[entityType] = f
	return nil
}

// MustBind is Bind for static wiring code; it panics on a duplicate.
func (b *Bindings) MustBind(entityType string, f Finder) *Bindings {
	if err := b.Bind(entityType, f); err != nil {
		panic(err)
	}
	return b
}

// Supports reports whether entityType has a finder.
func (b *Bindings) Supports(entityType string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.finders[entityType]
	return ok
}

// EntityTypes lists bound entity types, sorted.
func (b *Bindings) EntityTypes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.finders))
}

func (b *Bindings) FindOne(ctx context.Context, entityType string, criteria map[string]any) (map[string]any, error) {
	b.mu.RLock()
	f, ok := b.finders[entityType]
	b.mu.RUnlock()
	if !ok {
		return nil, common.NewAppError("WIRING_ERROR", fmt.Sprintf("no finder bound for entity type %q", entityType), common.ErrInternal)
	}
	return f(ctx, criteria)
}

// StaticFinder serves lookups from an in-memory record list. Values are
// compared by their string form so "7" matches 7.
func StaticFinder(records []map[string]any) Finder {
	return func(_ context.Context, criteria map[string]any) (map[string]any, error) {
		for _, rec := range records {
			if matches(rec, criteria) {
				return maps.Clone(rec), nil
			}
		}
		return nil, nil
	}
}

func matches(rec, criteria map[string]any) bool {
	for k, want := range criteria {
		got, ok := rec[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
