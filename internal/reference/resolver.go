package reference

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"reflect"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/schema"
)

const defaultConcurrency = 4

// Resolver runs the reference-field pass of a transformation.
type Resolver struct {
	lookup      EntityLookup
	transforms  *Transforms
	logger      *slog.Logger
	concurrency int
}

type Option func(*Resolver)

// WithConcurrency bounds how many lookups of one request run at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func NewResolver(lookup EntityLookup, transforms *Transforms, logger *slog.Logger, opts ...Option) *Resolver {
	if transforms == nil {
		transforms = DefaultTransforms()
	}
	r := &Resolver{
		lookup:      lookup,
		transforms:  transforms,
		logger:      common.LoggerOrDefault(logger),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate checks at wiring time that every entity type has a binding and
// every additionalProcessing name is registered.
func (r *Resolver) Validate(documentType string, refs []schema.ReferenceFieldSpec) error {
	v := common.NewValidator()
	supporter, canCheck := r.lookup.(interface{ Supports(string) bool })
	for i, ref := range refs {
		field := fmt.Sprintf("%s.referenceFields[%d]", documentType, i)
		if r.lookup == nil {
			v.Add(field+".entityType", ref.EntityType, "no entity lookup configured")
		} else if canCheck && !supporter.Supports(ref.EntityType) {
			v.Add(field+".entityType", ref.EntityType, "no finder bound for entity type")
		}
		if ref.AdditionalProcessing != "" {
			if _, ok := r.transforms.Get(ref.AdditionalProcessing); !ok {
				v.Add(field+".additionalProcessing", ref.AdditionalProcessing, "unknown transform")
			}
		}
	}
	return v.Error()
}

// resolved is the outcome for one reference spec, filled concurrently and
// applied in config order.
type resolved struct {
	present bool
	value   any
	issues  []common.ValidationError
}

// Resolve looks up every reference in refs that has a value in data and
// returns the map of target-path writes. Business problems (entity not found,
// malformed items) come back as issues; a lookup error aborts with an error.
func (r *Resolver) Resolve(ctx context.Context, refs []schema.ReferenceFieldSpec, data map[string]any) (map[string]any, []common.ValidationError, error) {
	out := map[string]any{}
	if len(refs) == 0 {
		return out, nil, nil
	}

	results := make([]resolved, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, ref := range refs {
		raw, ok := data[ref.Field]
		if !ok {
			continue
		}
		g.Go(func() error {
			var err error
			if ref.IsArray {
				results[i], err = r.resolveArray(gctx, ref, raw)
			} else {
				results[i], err = r.resolveScalar(gctx, ref, raw)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var issues []common.ValidationError
	for i, ref := range refs {
		res := results[i]
		issues = append(issues, res.issues...)
		if !res.present {
			continue
		}

		value := res.value
		if ref.IsArray && ref.AdditionalProcessing != "" {
			items, _ := value.([]map[string]any)
			if fn, ok := r.transforms.Get(ref.AdditionalProcessing); ok {
				items = fn(items)
			} else {
				issues = append(issues, refIssue(ref, ref.AdditionalProcessing, "unknown transform; items left as resolved"))
			}
			value = items
		}

		if err := SetPath(out, ref.TargetPath, value); err != nil {
			r.logger.Warn("reference.write_skipped", "field", ref.Field, "target_path", ref.TargetPath, "error", err)
			issues = append(issues, refIssue(ref, ref.TargetPath, err.Error()))
		}
	}
	return out, issues, nil
}

func (r *Resolver) resolveScalar(ctx context.Context, ref schema.ReferenceFieldSpec, raw any) (resolved, error) {
	if raw == nil {
		return resolved{issues: []common.ValidationError{refIssue(ref, raw, "empty reference value")}}, nil
	}
	if !IsScalarKey(raw) {
		return resolved{issues: []common.ValidationError{refIssue(ref, raw, "lookup value must be a scalar")}}, nil
	}
	entity, err := r.find(ctx, ref, raw)
	if err != nil {
		return resolved{}, err
	}
	if entity == nil {
		r.logger.Warn("reference.not_found", "field", ref.Field, "entity_type", ref.EntityType, "lookup_field", ref.LookupField, "value", raw)
		return resolved{issues: []common.ValidationError{refIssue(ref, raw, "entity not found")}}, nil
	}
	return resolved{present: true, value: project(entity, ref.Fields)}, nil
}

func (r *Resolver) resolveArray(ctx context.Context, ref schema.ReferenceFieldSpec, raw any) (resolved, error) {
	list, ok := asList(raw)
	if !ok {
		return resolved{issues: []common.ValidationError{refIssue(ref, raw, "expected a list")}}, nil
	}

	res := resolved{present: true}
	items := make([]map[string]any, 0, len(list))
	for idx, el := range list {
		item, ok := el.(map[string]any)
		if !ok {
			res.issues = append(res.issues, refIssue(ref, el, fmt.Sprintf("item %d is not an object", idx)))
			continue
		}
		key, ok := item[ref.LookupField]
		if !ok {
			res.issues = append(res.issues, refIssue(ref, item, fmt.Sprintf("item %d has no %q", idx, ref.LookupField)))
			continue
		}
		if !IsScalarKey(key) {
			res.issues = append(res.issues, refIssue(ref, key, fmt.Sprintf("item %d: lookup value must be a scalar", idx)))
			continue
		}

		entity, err := r.find(ctx, ref, key)
		if err != nil {
			return resolved{}, err
		}
		if entity == nil {
			r.logger.Warn("reference.not_found", "field", ref.Field, "entity_type", ref.EntityType, "lookup_field", ref.LookupField, "value", key)
			res.issues = append(res.issues, refIssue(ref, key, fmt.Sprintf("item %d: entity not found", idx)))
			continue
		}

		joined := project(entity, ref.Fields)
		for k, v := range item {
			if k == ref.LookupField {
				continue
			}
			if _, exists := joined[k]; !exists {
				joined[k] = v
			}
		}
		items = append(items, joined)
	}
	res.value = items
	return res, nil
}

func (r *Resolver) find(ctx context.Context, ref schema.ReferenceFieldSpec, key any) (map[string]any, error) {
	if r.lookup == nil {
		return nil, common.NewAppError("WIRING_ERROR", "no entity lookup configured", common.ErrInternal)
	}
	entity, err := r.lookup.FindOne(ctx, ref.EntityType, map[string]any{ref.LookupField: key})
	if err != nil {
		r.logger.Error("reference.lookup_failed", "field", ref.Field, "entity_type", ref.EntityType, "error", err)
		return nil, fmt.Errorf("resolve %s via %s.%s: %w", ref.Field, ref.EntityType, ref.LookupField, err)
	}
	return entity, nil
}

// project keeps the requested fields that exist on entity; an empty
// allow-list keeps every field.
func project(entity map[string]any, allow []string) map[string]any {
	if len(allow) == 0 {
		return maps.Clone(entity)
	}
	out := make(map[string]any, len(allow))
	for _, f := range allow {
		if v, ok := entity[f]; ok {
			out[f] = v
		}
	}
	return out
}

// IsScalarKey reports whether v can be used as a lookup key: a non-nil
// string, number or bool.
func IsScalarKey(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if v == nil || rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func refIssue(ref schema.ReferenceFieldSpec, value any, message string) common.ValidationError {
	return common.ValidationError{Field: ref.Field, Value: value, Message: message}
}
