package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/fields"
	"github.com/joseph-ayodele/docforge/internal/pipeline"
	"github.com/joseph-ayodele/docforge/internal/postprocess"
	"github.com/joseph-ayodele/docforge/internal/reference"
	"github.com/joseph-ayodele/docforge/internal/schema"
)

type seqCounter struct{ n atomic.Int64 }

func (c *seqCounter) NextValue(context.Context, string) (int64, error) {
	return c.n.Add(1), nil
}

func testApp(t *testing.T) *app {
	t.Helper()
	reg := schema.NewRegistry(nil)
	reg.Register("memo", schema.DocumentTypeConfig{
		DirectFields:   map[string]schema.FieldSpec{"title": {Type: constants.FieldString, Required: true}},
		PostProcessors: []string{constants.PostGenerateDocumentNumber},
	})
	proc, err := pipeline.New(reg, fields.NewSet(nil),
		reference.NewResolver(reference.NewBindings(), nil, nil),
		postprocess.Default(&seqCounter{}, nil, postprocess.Options{}))
	require.NoError(t, err)
	return &app{logger: common.NewLogger("error", "text", nil), schemas: reg, processor: proc}
}

func TestTransformBatchWritesOutputsInInputOrder(t *testing.T) {
	a := testApp(t)
	dir := t.TempDir()
	transformOut = filepath.Join(dir, "out.json")
	t.Cleanup(func() { transformOut = "" })

	inputs := []string{"a.json", "b.json", "c.json"}
	reqs := []pipeline.TransformationRequest{
		{DocumentType: "memo", DirectData: map[string]any{"title": "first"}},
		{DocumentType: "memo"},
		{DocumentType: "unknown", DirectData: map[string]any{"body": "x"}},
	}
	require.NoError(t, transformBatch(context.Background(), a, inputs, reqs))

	raw, err := os.ReadFile(transformOut)
	require.NoError(t, err)
	var outs []transformOutput
	require.NoError(t, json.Unmarshal(raw, &outs))
	require.Len(t, outs, 3)

	for i, out := range outs {
		assert.Equal(t, inputs[i], out.Source)
		assert.Empty(t, out.Error)
		assert.NotEmpty(t, out.RequestID)
	}
	var first map[string]any
	require.NoError(t, json.Unmarshal(outs[0].Data, &first))
	assert.Equal(t, "first", first["title"])
	assert.Regexp(t, `^MEMO-\d{4}-00[12]$`, first["documentNumber"])
	assert.Len(t, outs[1].Issues, 1)
	assert.Len(t, outs[2].Issues, 1)
}

func TestReadRequestRequiresDocumentType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"directData":{"amount":1000}}`), 0o644))

	_, err := readRequest(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	require.NoError(t, os.WriteFile(path, []byte(`{"documentType":"memo","directData":{"amount":1000}}`), 0o644))
	req, err := readRequest(path)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1000"), req.DirectData["amount"])
}
