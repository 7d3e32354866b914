// Package pipeline orchestrates a document transformation: direct field
// coercion, reference resolution, merge, then the ordered post-processor chain.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/fields"
	"github.com/joseph-ayodele/docforge/internal/postprocess"
	"github.com/joseph-ayodele/docforge/internal/schema"
)

// ReferenceResolver is the reference pass as seen by the transformer.
type ReferenceResolver interface {
	Validate(documentType string, refs []schema.ReferenceFieldSpec) error
	Resolve(ctx context.Context, refs []schema.ReferenceFieldSpec, data map[string]any) (map[string]any, []common.ValidationError, error)
}

// Processor transforms requests against one set of registries. It holds no
// per-request state and is safe for concurrent use once built.
type Processor struct {
	Logger   *slog.Logger
	Schemas  *schema.Registry
	Fields   *fields.Set
	Resolver ReferenceResolver
	Post     *postprocess.Registry

	batchConcurrency int
}

type Option func(*Processor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.Logger = logger }
}

// WithBatchConcurrency bounds TransformBatch; default 4.
func WithBatchConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.batchConcurrency = n
		}
	}
}

// New wires a Processor and checks every registered document type against it:
// each reference must have a bound entity lookup and a registered transform.
func New(schemas *schema.Registry, fieldSet *fields.Set, resolver ReferenceResolver, post *postprocess.Registry, opts ...Option) (*Processor, error) {
	p := &Processor{
		Schemas:          schemas,
		Fields:           fieldSet,
		Resolver:         resolver,
		Post:             post,
		batchConcurrency: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.Logger = common.LoggerOrDefault(p.Logger)
	if schemas == nil || fieldSet == nil || resolver == nil || post == nil {
		return nil, common.NewAppError("WIRING_ERROR", "pipeline requires schemas, fields, resolver and post-processors", common.ErrInternal)
	}

	var errs []error
	schemas.Each(func(documentType string, cfg schema.DocumentTypeConfig) {
		if err := resolver.Validate(documentType, cfg.ReferenceFields); err != nil {
			errs = append(errs, err)
		}
		for _, name := range cfg.PostProcessors {
			if _, ok := post.Get(name); !ok {
				p.Logger.Warn("pipeline.unknown_post_processor", "document_type", documentType, "name", name)
			}
		}
	})
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("pipeline wiring: %w", err)
	}
	return p, nil
}

// Transform runs one request. Business problems are reported on
// Result.Issues; a returned error is an infrastructure failure and no partial
// result is produced.
func (p *Processor) Transform(ctx context.Context, req TransformationRequest) (*Result, error) {
	if req.RequestID == "" {
		req.RequestID = common.NewRequestID()
	}
	ctx = common.WithRequestID(ctx, req.RequestID)
	ctx = common.WithDocumentType(ctx, req.DocumentType)
	log := p.Logger.With("request_id", req.RequestID, "document_type", req.DocumentType)

	res := &Result{DocumentType: req.DocumentType, RequestID: req.RequestID}

	cfg, known := p.Schemas.Get(req.DocumentType)
	if !known {
		log.Warn("transform.unknown_document_type")
		res.addIssue(constants.StageSchema, constants.KeyDocumentType, req.DocumentType, "unknown document type; nothing to transform")
	}

	direct := p.applyDirect(log, cfg, req.DirectData, res)

	refData, _ := cloneValue(req.ReferenceData).(map[string]any)
	refs, refIssues, err := p.Resolver.Resolve(ctx, cfg.ReferenceFields, refData)
	if err != nil {
		log.Error("transform.reference.failed", "err", err)
		return nil, fmt.Errorf("resolve references for %q: %w", req.DocumentType, err)
	}
	for _, is := range refIssues {
		res.addValidation(constants.StageReference, is)
	}

	merged := make(map[string]any, 1+len(direct)+len(refs))
	merged[constants.KeyDocumentType] = req.DocumentType
	maps.Copy(merged, direct)
	maps.Copy(merged, refs)

	for _, name := range cfg.PostProcessors {
		proc, ok := p.Post.Get(name)
		if !ok {
			log.Warn("transform.post.unknown", "name", name)
			res.addIssue(constants.StagePost, name, nil, "unknown post-processor; skipped")
			continue
		}
		out, err := proc.Process(ctx, merged)
		if err != nil {
			log.Error("transform.post.failed", "name", name, "err", err)
			return nil, fmt.Errorf("post-processor %s: %w", name, err)
		}
		if out != nil {
			merged = out
		}
	}

	res.Data = merged
	log.Info("transform.ok", "keys", len(merged), "issues", len(res.Issues))
	return res, nil
}

// applyDirect coerces the declared direct fields and copies undeclared keys
// through unchanged. Values are deep copies, so post-processors never write
// into the caller's request. A missing required field is logged and recorded, and the
// field stays absent.
func (p *Processor) applyDirect(log *slog.Logger, cfg schema.DocumentTypeConfig, data map[string]any, res *Result) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		if _, declared := cfg.DirectFields[key]; !declared {
			out[key] = cloneValue(value)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.DirectFields)) {
		spec := cfg.DirectFields[name]
		value, present := data[name]
		if !present {
			if spec.Required {
				log.Error("transform.required_missing", "field", name)
				res.addIssue(constants.StageDirect, name, nil, "required field missing")
			}
			continue
		}
		coerced, issue := p.Fields.Process(name, cloneValue(value), spec)
		if issue != nil {
			res.addValidation(constants.StageDirect, *issue)
		}
		out[name] = coerced
	}
	return out
}

// BatchResult pairs a request's result with its infrastructure error, if any.
type BatchResult struct {
	Result *Result
	Err    error
}

// TransformBatch runs independent requests concurrently. One request failing
// does not stop the others; results come back in request order.
func (p *Processor) TransformBatch(ctx context.Context, reqs []TransformationRequest) []BatchResult {
	out := make([]BatchResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(p.batchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := p.Transform(ctx, req)
			out[i] = BatchResult{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
