package reference

import (
	"maps"
	"slices"
	"sort"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/fields"
)

// ArrayTransform post-processes the joined items of an array reference.
type ArrayTransform func(items []map[string]any) []map[string]any

// Transforms is the registered set of additionalProcessing strategies.
type Transforms struct {
	byName map[string]ArrayTransform
}

// NewTransforms returns an empty set.
func NewTransforms() *Transforms {
	return &Transforms{byName: make(map[string]ArrayTransform)}
}

// DefaultTransforms returns the shipped strategies (addApprovalOrder).
func DefaultTransforms() *Transforms {
	t := NewTransforms()
	t.Register(constants.TransformAddApprovalOrder, AddApprovalOrder)
	return t
}

func (t *Transforms) Register(name string, fn ArrayTransform) {
	t.byName[name] = fn
}

func (t *Transforms) Get(name string) (ArrayTransform, bool) {
	fn, ok := t.byName[name]
	return fn, ok
}

// Names lists registered strategies, sorted.
func (t *Transforms) Names() []string {
	return slices.Sorted(maps.Keys(t.byName))
}

const missingOrder = 99

// AddApprovalOrder orders approval lines. When any item already carries
// "order", items are stable-sorted by it with missing values counted as 99;
// otherwise each item gets order = position + 1.
func AddApprovalOrder(items []map[string]any) []map[string]any {
	out := slices.Clone(items)

	hasOrder := false
	for _, item := range out {
		if _, ok := item["order"]; ok {
			hasOrder = true
			break
		}
	}

	if !hasOrder {
		for i, item := range out {
			item["order"] = i + 1
		}
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		return orderOf(out[i]) < orderOf(out[j])
	})
	return out
}

func orderOf(item map[string]any) float64 {
	v, ok := item["order"]
	if !ok {
		return missingOrder
	}
	n, ok := fields.ParseNumber(v)
	if !ok {
		return missingOrder
	}
	return n.Float()
}
