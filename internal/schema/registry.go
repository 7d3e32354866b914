package schema

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/joseph-ayodele/docforge/internal/common"
)

// Registry maps document type names to their configs. It is built once at
// startup and then read concurrently by transformations.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]DocumentTypeConfig
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		configs: make(map[string]DocumentTypeConfig),
		logger:  common.LoggerOrDefault(logger),
	}
}

// Register stores cfg under documentType, replacing any previous config whole.
func (r *Registry) Register(documentType string, cfg DocumentTypeConfig) {
	stored := cfg.Clone()
	r.mu.Lock()
	_, replaced := r.configs[documentType]
	r.configs[documentType] = stored
	r.mu.Unlock()

	r.logger.Debug("schema registered",
		"document_type", documentType,
		"direct_fields", len(stored.DirectFields),
		"reference_fields", len(stored.ReferenceFields),
		"post_processors", len(stored.PostProcessors),
		"replaced", replaced,
	)
}

// Get returns the config for documentType. An unknown type yields an empty
// config and false; callers treat that as "nothing to transform".
func (r *Registry) Get(documentType string) (DocumentTypeConfig, bool) {
	r.mu.RLock()
	cfg, ok := r.configs[documentType]
	r.mu.RUnlock()
	if !ok {
		return EmptyConfig(), false
	}
	return cfg.Clone(), true
}

// ListTypes returns every registered document type, sorted.
func (r *Registry) ListTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.configs))
}

// Each calls fn for every registered config, in ListTypes order.
func (r *Registry) Each(fn func(documentType string, cfg DocumentTypeConfig)) {
	for _, name := range r.ListTypes() {
		cfg, ok := r.Get(name)
		if ok {
			fn(name, cfg)
		}
	}
}
