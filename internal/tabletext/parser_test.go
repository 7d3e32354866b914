package tabletext

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docforge/internal/common"
)

const itemsTable = `| name | quantity | unit_price |
|------|:--------:|-----------:|
| A    | 2        | 1000       |
| B    | 3        | 1500       |`

func TestParseTypedRows(t *testing.T) {
	rows := Parse(itemsTable)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"name": "A", "quantity": int64(2), "unit_price": int64(1000)}, rows[0])
	assert.Equal(t, map[string]any{"name": "B", "quantity": int64(3), "unit_price": int64(1500)}, rows[1])
}

func TestParseDropsMismatchedRows(t *testing.T) {
	text := "name | quantity | unit_price\n--- | --- | ---\nA | 2 | 1000\nB | 3\n"
	rows := Parse(text)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0]["name"])
}

func TestParseCellTyping(t *testing.T) {
	rows := Parse("| a | b | c | d |\n|---|---|---|---|\n| -4 | 2.50 | .5 | 1,000 |\n|  |  |  |  |\n\n")
	require.Len(t, rows, 1)
	assert.Equal(t, int64(-4), rows[0]["a"])
	assert.Equal(t, 2.5, rows[0]["b"])
	assert.Equal(t, 0.5, rows[0]["c"])
	assert.Equal(t, "1,000", rows[0]["d"])
}

func TestParseRejectsNonTables(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"header only":   "| a | b |",
		"bad separator": "| a | b |\n| x | y |\n| 1 | 2 |",
		"empty header":  "| a | |\n|---|---|\n| 1 | 2 |",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			rows := Parse(text)
			assert.NotNil(t, rows)
			assert.Empty(t, rows)
		})
	}
}

func TestPreprocessTables(t *testing.T) {
	in := map[string]any{"items": itemsTable, "note": "plain text", "count": 3}
	out := NewParser(nil).PreprocessTables(in, "items", "note", "count", "absent")

	items, ok := out["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)
	assert.Equal(t, "plain text", out["note"])
	assert.Equal(t, 3, out["count"])
	assert.Equal(t, itemsTable, in["items"])
}

func TestParseWorkbook(t *testing.T) {
	f := excelize.NewFile()
	const sheet = "Items"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"name", "quantity", "unit_price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"A", "2", "1000"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"B", "3"}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]any{"C", "1", "5", "extra"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := NewParser(nil).ParseWorkbook(bytes.NewReader(buf.Bytes()), sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"name": "A", "quantity": int64(2), "unit_price": int64(1000)}, rows[0])
	assert.Equal(t, map[string]any{"name": "B", "quantity": int64(3), "unit_price": ""}, rows[1])
}

func TestParseWorkbookRejectsGarbage(t *testing.T) {
	_, err := NewParser(nil).ParseWorkbook(bytes.NewReader([]byte("not a zip")), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
