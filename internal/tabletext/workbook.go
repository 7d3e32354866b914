package tabletext

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docforge/internal/common"
)

// ParseWorkbook reads one sheet of an XLSX attachment with the same rules as
// Parse: the first non-empty row is the header, cells are typed, empty rows
// are dropped. Short rows are padded; rows wider than the header are dropped.
// An empty sheet name selects the first sheet.
func (p *Parser) ParseWorkbook(r io.Reader, sheet string) ([]map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, common.NewAppError("INVALID_WORKBOOK", "open workbook", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			p.logger.Warn("tabletext.workbook.close", "err", cerr)
		}
	}()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, common.NewAppError("INVALID_WORKBOOK", fmt.Sprintf("read sheet %q", sheet), fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}

	rows := []map[string]any{}
	var header []string
	for i, raw := range grid {
		cells := make([]string, len(raw))
		for j, c := range raw {
			cells[j] = strings.TrimSpace(c)
		}
		if header == nil {
			if allEmpty(cells) {
				continue
			}
			header = cells
			continue
		}
		if len(cells) > len(header) {
			p.logger.Warn("tabletext.row_dropped", "sheet", sheet, "row", i+1, "cells", len(cells), "want", len(header))
			continue
		}
		for len(cells) < len(header) {
			cells = append(cells, "")
		}
		if row, ok := buildRow(header, cells); ok {
			rows = append(rows, row)
		}
	}
	p.logger.Info("tabletext.workbook.ok", "sheet", sheet, "rows", len(rows))
	return rows, nil
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
