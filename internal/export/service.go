package export

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/fields"
	"github.com/joseph-ayodele/docforge/internal/pipeline"
)

const (
	itemsSheet   = "Items"
	amountsSheet = "Amounts"
)

// leadingColumns come first in the Items sheet when present; other item keys
// follow alphabetically.
var leadingColumns = []string{"order", "name", "description", "quantity", "unitPrice", "unit_price", "amount"}

// Service produces XLSX bytes for a transformed document.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	return &Service{logger: common.LoggerOrDefault(logger)}
}

// ItemsXLSX returns a workbook with the document's line items and its amounts
// block. A result without items still gets both sheets.
func (s *Service) ItemsXLSX(ctx context.Context, res *pipeline.Result) ([]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res == nil || res.Data == nil {
		return nil, common.NewAppError("INVALID_INPUT", "nothing to export", common.ErrInvalidInput)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", itemsSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	if _, err := f.NewSheet(amountsSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	items := ItemRows(res.Data[constants.KeyItems])
	headers := ItemColumns(items)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemsSheet, cell, h)
	}
	for r, item := range items {
		for c, h := range headers {
			v, ok := item[h]
			if !ok || v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(itemsSheet, cell, cellValue(v))
		}
	}

	amounts, _ := res.Data[constants.KeyAmounts].(map[string]any)
	row := 1
	for _, key := range []string{constants.KeySubtotal, constants.KeyTax, constants.KeyTotal, constants.KeyTotalInWords} {
		v, ok := amounts[key]
		if !ok {
			continue
		}
		_ = f.SetCellValue(amountsSheet, fmt.Sprintf("A%d", row), key)
		_ = f.SetCellValue(amountsSheet, fmt.Sprintf("B%d", row), cellValue(v))
		row++
	}

	_ = f.SetColWidth(itemsSheet, "A", "Z", 16)
	_ = f.SetColWidth(amountsSheet, "A", "A", 16)
	_ = f.SetColWidth(amountsSheet, "B", "B", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"request_id", res.RequestID,
		"document_type", res.DocumentType,
		"rows", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ItemRows returns the map elements of an items value.
func ItemRows(v any) []map[string]any {
	switch items := v.(type) {
	case []map[string]any:
		return items
	case []any:
		out := make([]map[string]any, 0, len(items))
		for _, it := range items {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// ItemColumns is the union of item keys, leading columns first.
func ItemColumns(items []map[string]any) []string {
	seen := map[string]bool{}
	for _, it := range items {
		for k := range it {
			seen[k] = true
		}
	}
	var cols, rest []string
	for _, c := range leadingColumns {
		if seen[c] {
			cols = append(cols, c)
		}
	}
	for k := range seen {
		if !slices.Contains(leadingColumns, k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case string, bool, int, int64, float64:
		return t
	case map[string]any:
		if formatted, ok := t["formatted"].(string); ok {
			return formatted
		}
		if value, ok := t["value"]; ok {
			return fields.Stringify(value)
		}
		return fmt.Sprint(t)
	default:
		return fields.Stringify(t)
	}
}
