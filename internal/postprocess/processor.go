// Package postprocess holds the named stages run, in configured order, over a
// merged transformation result: document numbering, amounts, tax, duration.
package postprocess

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/common"
)

// Processor transforms the working result. Returning an error aborts the
// transformation and is reserved for infrastructure failures; business
// problems are logged and the data returned unchanged.
type Processor interface {
	Process(ctx context.Context, data map[string]any) (map[string]any, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, data map[string]any) (map[string]any, error)

func (f ProcessorFunc) Process(ctx context.Context, data map[string]any) (map[string]any, error) {
	return f(ctx, data)
}

// Counter allocates the next value of a named sequence atomically.
type Counter interface {
	NextValue(ctx context.Context, seriesKey string) (int64, error)
}

// Registry maps post-processor names to implementations. Each pipeline owns one.
type Registry struct {
	byName map[string]Processor
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Processor)}
}

func (r *Registry) Register(name string, p Processor) {
	r.byName[name] = p
}

func (r *Registry) Get(name string) (Processor, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Names lists registered processors, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.byName))
}

// Options tunes the default processors.
type Options struct {
	Prefixes map[string]string
	Now      func() time.Time
	TaxRate  float64
}

// Default registers every shipped post-processor under its constants name.
func Default(counter Counter, logger *slog.Logger, opts Options) *Registry {
	logger = common.LoggerOrDefault(logger)
	if opts.TaxRate == 0 {
		opts.TaxRate = constants.TaxRate
	}
	r := NewRegistry()
	r.Register(constants.PostGenerateDocumentNumber, NewDocumentNumberGenerator(counter, opts.Prefixes, opts.Now, logger))
	r.Register(constants.PostCalculateItemAmounts, &ItemAmountCalculator{logger: logger})
	r.Register(constants.PostCalculateTotalAmount, &TotalAmountCalculator{logger: logger})
	r.Register(constants.PostCalculateTax, &TaxCalculator{Rate: opts.TaxRate, logger: logger})
	r.Register(constants.PostCalculateDuration, &DurationCalculator{logger: logger})
	return r
}
