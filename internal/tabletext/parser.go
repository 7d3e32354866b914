// Package tabletext turns pipe-delimited table text and spreadsheet
// attachments into row maps keyed by header.
package tabletext

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docforge/internal/common"
)

var (
	separatorCell = regexp.MustCompile(`^:?-+:?$`)
	integerCell   = regexp.MustCompile(`^[+-]?\d+$`)
	decimalCell   = regexp.MustCompile(`^[+-]?\d*\.\d+$`)
)

type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: common.LoggerOrDefault(logger)}
}

// Parse parses text with the default logger.
func Parse(text string) []map[string]any {
	return NewParser(nil).Parse(text)
}

// Parse reads a header row, a dash separator row and any number of data rows.
// Text that is not shaped like that yields an empty result. Rows whose cell
// count differs from the header's, and rows with only empty cells, are
// dropped.
func (p *Parser) Parse(text string) []map[string]any {
	rows := []map[string]any{}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		p.logger.Warn("tabletext.not_a_table", "reason", "fewer than two lines", "lines", len(lines))
		return rows
	}

	header := splitRow(lines[0])
	for _, h := range header {
		if h == "" {
			p.logger.Warn("tabletext.not_a_table", "reason", "empty header cell")
			return rows
		}
	}
	for _, cell := range splitRow(lines[1]) {
		if !separatorCell.MatchString(cell) {
			p.logger.Warn("tabletext.not_a_table", "reason", "bad separator row", "row", lines[1])
			return rows
		}
	}

	for i, line := range lines[2:] {
		cells := splitRow(line)
		if len(cells) != len(header) {
			p.logger.Warn("tabletext.row_dropped", "line", i+3, "cells", len(cells), "want", len(header))
			continue
		}
		if row, ok := buildRow(header, cells); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// PreprocessTables replaces every listed string value of data that parses as
// a table with its rows. Other values are left alone. data is not modified.
func (p *Parser) PreprocessTables(data map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	for _, key := range keys {
		text, ok := data[key].(string)
		if !ok {
			continue
		}
		rows := p.Parse(text)
		if len(rows) == 0 {
			continue
		}
		list := make([]any, len(rows))
		for i, r := range rows {
			list[i] = r
		}
		out[key] = list
		p.logger.Debug("tabletext.preprocessed", "field", key, "rows", len(rows))
	}
	return out
}

func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	cells := strings.Split(line, "|")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

func buildRow(header, cells []string) (map[string]any, bool) {
	row := make(map[string]any, len(header))
	empty := true
	for i, h := range header {
		if cells[i] != "" {
			empty = false
		}
		row[h] = TypeCell(cells[i])
	}
	return row, !empty
}

// TypeCell returns int64 for integer text, float64 for decimal text and the
// string otherwise.
func TypeCell(s string) any {
	switch {
	case integerCell.MatchString(s):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case decimalCell.MatchString(s):
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
