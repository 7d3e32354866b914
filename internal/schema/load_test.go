package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/common"
)

const estimateYAML = `
estimate:
  directFields:
    title:
      type: string
      required: true
      maxLength: 100
    estimated_expense:
      type: number
      minValue: 0
    travel_period:
      type: date_range
    tags:
      type: array
      items:
        type: string
  referenceFields:
    - field: approvers
      entityType: user
      lookupField: id
      targetPath: approval.lines
      fields: [name, position]
      isArray: true
      additionalProcessing: addApprovalOrder
  postProcessors:
    - generateDocumentNumber
    - calculateTax
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileYAML(t *testing.T) {
	configs, err := LoadFile(writeFile(t, "schemas.yaml", estimateYAML))
	require.NoError(t, err)
	require.Contains(t, configs, "estimate")

	cfg := configs["estimate"]
	assert.True(t, cfg.DirectFields["title"].Required)
	require.NotNil(t, cfg.DirectFields["title"].MaxLength)
	assert.Equal(t, 100, *cfg.DirectFields["title"].MaxLength)
	assert.Equal(t, constants.FieldDateRange, cfg.DirectFields["travel_period"].Type)
	require.Len(t, cfg.ReferenceFields, 1)
	assert.Equal(t, "approval.lines", cfg.ReferenceFields[0].TargetPath)
	assert.Equal(t, []string{"name", "position"}, cfg.ReferenceFields[0].Fields)
	assert.Equal(t, []string{"generateDocumentNumber", "calculateTax"}, cfg.PostProcessors)
}

func TestLoadFileTOML(t *testing.T) {
	doc := `
[invoice.directFields.amount]
type = "number"
integer = true

[[invoice.referenceFields]]
field = "customer"
entityType = "customer"
lookupField = "code"
targetPath = "customer"
fields = ["name"]
`
	configs, err := LoadFile(writeFile(t, "schemas.toml", doc))
	require.NoError(t, err)
	assert.True(t, configs["invoice"].DirectFields["amount"].Integer)
	assert.Equal(t, "customer", configs["invoice"].ReferenceFields[0].EntityType)
}

func TestLoadFileJSONAndRegister(t *testing.T) {
	doc := `{"quotation": {"directFields": {"memo": {"type": "string"}}, "referenceFields": []}}`
	reg := NewRegistry(nil)
	names, err := LoadInto(reg, writeFile(t, "schemas.json", doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"quotation"}, names)
	assert.Equal(t, []string{"quotation"}, reg.ListTypes())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(map[string]any{
		"estimate": map[string]any{
			"directFields": map[string]any{
				"title": map[string]any{"type": "string", "pattern": "^x$"},
			},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestLoadRejectsMissingReferenceKeys(t *testing.T) {
	_, err := Load(map[string]any{
		"estimate": map[string]any{
			"referenceFields": []any{map[string]any{"field": "dept"}},
		},
	})
	require.Error(t, err)
}

func TestLoadRejectsUnknownFieldType(t *testing.T) {
	_, err := Load(map[string]any{
		"estimate": map[string]any{
			"directFields": map[string]any{"x": map[string]any{"type": "currency"}},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field type")
}

func TestLoadFileUnsupportedExtension(t *testing.T) {
	_, err := LoadFile(writeFile(t, "schemas.ini", "x=1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestLoadIntegerSynonymForcesWholeNumbers(t *testing.T) {
	configs, err := Load(map[string]any{
		"timesheet": map[string]any{
			"directFields": map[string]any{
				"hours":  map[string]any{"type": "integer"},
				"counts": map[string]any{"type": "list", "items": map[string]any{"type": "int"}},
				"rate":   map[string]any{"type": "float"},
			},
		},
	})
	require.NoError(t, err)

	fields := configs["timesheet"].DirectFields
	assert.Equal(t, constants.FieldNumber, fields["hours"].Type)
	assert.True(t, fields["hours"].Integer)
	require.NotNil(t, fields["counts"].Items)
	assert.True(t, fields["counts"].Items.Integer)
	assert.False(t, fields["rate"].Integer)
}
