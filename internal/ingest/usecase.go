package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/docforge/internal/async"
	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/pipeline"
	"github.com/joseph-ayodele/docforge/internal/render"
)

// Transformer is the pipeline as seen by the inbox.
type Transformer interface {
	Transform(ctx context.Context, req pipeline.TransformationRequest) (*pipeline.Result, error)
}

// Usecase reads request files, transforms them and writes the results to the
// outbox. Files whose content was already processed are skipped.
type Usecase struct {
	Transformer Transformer
	OutboxDir   string
	logger      *slog.Logger

	mu   sync.Mutex
	seen map[string]string // content hash -> output path, "" while in flight
}

func NewUsecase(t Transformer, outboxDir string, logger *slog.Logger) *Usecase {
	return &Usecase{
		Transformer: t,
		OutboxDir:   outboxDir,
		logger:      common.LoggerOrDefault(logger),
		seen:        map[string]string{},
	}
}

type output struct {
	RequestID    string           `json:"requestId"`
	DocumentType string           `json:"documentType"`
	Issues       []pipeline.Issue `json:"issues,omitempty"`
	Data         json.RawMessage  `json:"data"`
}

// IngestPath transforms one request file. A malformed request is reported on
// the result and returns no error; infrastructure failures return an error and
// leave no output behind.
func (u *Usecase) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs
	if !IsRequestFile(abs) {
		out.Err = "not a request file"
		return out, nil
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		u.logger.Error("ingest.read.failed", "path", abs, "err", err)
		return out, fmt.Errorf("read %s: %w", abs, err)
	}
	sum := sha256.Sum256(raw)
	out.HashHex = hex.EncodeToString(sum[:])

	// Claim the hash before transforming so that concurrent copies of the same
	// content produce one output. The claim is dropped if no output is written.
	u.mu.Lock()
	prev, dup := u.seen[out.HashHex]
	if !dup {
		u.seen[out.HashHex] = ""
	}
	u.mu.Unlock()
	if dup {
		out.Deduplicated = true
		out.OutputPath = prev
		u.logger.Info("ingest.deduplicated", "path", abs, "output", prev, "in_flight", prev == "")
		return out, nil
	}
	published := false
	defer func() {
		if !published {
			u.mu.Lock()
			delete(u.seen, out.HashHex)
			u.mu.Unlock()
		}
	}()

	var req pipeline.TransformationRequest
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		u.logger.Warn("ingest.decode.failed", "path", abs, "err", err)
		out.Err = fmt.Sprintf("invalid request: %v", err)
		return out, nil
	}
	if req.DocumentType == "" {
		u.logger.Warn("ingest.decode.failed", "path", abs, "reason", "documentType missing")
		out.Err = "invalid request: documentType missing"
		return out, nil
	}

	if req.RequestID == "" {
		req.RequestID = common.RequestIDFromContext(ctx)
	}
	res, err := u.Transformer.Transform(ctx, req)
	if err != nil {
		u.logger.Error("ingest.transform.failed", "path", abs, "err", err)
		return out, err
	}
	out.RequestID = res.RequestID
	out.DocumentType = res.DocumentType
	out.Issues = len(res.Issues)

	data, err := render.MarshalJSON(res.Data, false)
	if err != nil {
		return out, err
	}
	body, err := json.MarshalIndent(output{
		RequestID:    res.RequestID,
		DocumentType: res.DocumentType,
		Issues:       res.Issues,
		Data:         data,
	}, "", "  ")
	if err != nil {
		return out, fmt.Errorf("encode output: %w", err)
	}

	if err := os.MkdirAll(u.OutboxDir, 0o755); err != nil {
		return out, fmt.Errorf("create outbox: %w", err)
	}
	target := OutputPath(u.OutboxDir, abs)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return out, fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return out, fmt.Errorf("publish output: %w", err)
	}

	u.mu.Lock()
	u.seen[out.HashHex] = target
	u.mu.Unlock()
	published = true

	out.OutputPath = target
	out.ProcessedAt = time.Now().UTC()
	u.logger.Info("ingest.ok",
		"path", abs,
		"output", target,
		"request_id", res.RequestID,
		"document_type", res.DocumentType,
		"issues", out.Issues,
	)
	return out, nil
}

// Handle lets the usecase drain an async.Queue.
func (u *Usecase) Handle(ctx context.Context, job async.Job) error {
	ctx = common.WithRequestID(ctx, job.TraceID)
	res, err := u.IngestPath(ctx, job.Path)
	if err != nil {
		return err
	}
	if res.Err != "" {
		u.logger.Warn("ingest.job.rejected", "job_id", job.ID, "path", job.Path, "reason", res.Err)
	}
	return nil
}
