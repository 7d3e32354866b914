package postprocess

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/common"
)

// DefaultPrefixes are the document number prefixes of the known document types.
var DefaultPrefixes = map[string]string{
	"estimate":       "EST",
	"quotation":      "QUO",
	"invoice":        "INV",
	"purchase_order": "PO",
	"travel_request": "TRV",
	"expense_report": "EXP",
}

// DocumentNumberGenerator assigns "{prefix}-{year}-{seq:03d}" from a per
// type-and-year counter. A result that already has a number is left alone.
type DocumentNumberGenerator struct {
	counter  Counter
	prefixes map[string]string
	now      func() time.Time
	logger   *slog.Logger
}

func NewDocumentNumberGenerator(counter Counter, prefixes map[string]string, now func() time.Time, logger *slog.Logger) *DocumentNumberGenerator {
	if prefixes == nil {
		prefixes = DefaultPrefixes
	}
	if now == nil {
		now = time.Now
	}
	return &DocumentNumberGenerator{
		counter:  counter,
		prefixes: prefixes,
		now:      now,
		logger:   common.LoggerOrDefault(logger),
	}
}

func (g *DocumentNumberGenerator) Process(ctx context.Context, data map[string]any) (map[string]any, error) {
	if _, ok := data[constants.KeyDocumentNumber]; ok {
		return data, nil
	}

	documentType, _ := data[constants.KeyDocumentType].(string)
	if documentType == "" {
		g.logger.Warn("document_number.skipped", "reason", "no document type")
		return data, nil
	}
	if g.counter == nil {
		return nil, common.NewAppError("WIRING_ERROR", "document number counter not configured", common.ErrInternal)
	}

	year := g.now().Year()
	seq, err := g.counter.NextValue(ctx, SeriesKey(documentType, year))
	if err != nil {
		g.logger.Error("document_number.counter_failed", "document_type", documentType, "year", year, "error", err)
		return nil, fmt.Errorf("allocate document number: %w", err)
	}

	data[constants.KeyDocumentNumber] = FormatDocumentNumber(g.Prefix(documentType), year, seq)
	return data, nil
}

// Prefix returns the configured prefix, or the first four characters of the
// document type upper-cased.
func (g *DocumentNumberGenerator) Prefix(documentType string) string {
	if p, ok := g.prefixes[documentType]; ok {
		return p
	}
	runes := []rune(documentType)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	return strings.ToUpper(string(runes))
}

// SeriesKey is the counter id for a document type and year.
func SeriesKey(documentType string, year int) string {
	return fmt.Sprintf("%s_%d", documentType, year)
}

func FormatDocumentNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, seq)
}
