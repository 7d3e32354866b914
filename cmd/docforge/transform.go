package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/export"
	"github.com/joseph-ayodele/docforge/internal/pipeline"
	"github.com/joseph-ayodele/docforge/internal/render"
	"github.com/joseph-ayodele/docforge/internal/tabletext"
)

var (
	transformInputs      []string
	transformOut         string
	transformXLSX        string
	transformTableFields []string
)

var transformCmd = &cobra.Command{
	Use:   "transform [request.json...]",
	Short: "Transform request files",
	Long: `Transform TransformationRequest JSON documents:

  {"documentType": "...", "directData": {...}, "referenceData": {...}}

The result (data plus soft issues) is written as JSON to --out or stdout.
Several inputs are transformed concurrently and written as a JSON array in
input order. Direct fields listed with --table-field are parsed from pipe
table text first.`,
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().StringSliceVarP(&transformInputs, "input", "i", nil, "request file, - for stdin (repeatable)")
	transformCmd.Flags().StringVarP(&transformOut, "out", "o", "", "output file (default stdout)")
	transformCmd.Flags().StringVar(&transformXLSX, "xlsx", "", "also write the line items to this XLSX file (single input only)")
	transformCmd.Flags().StringSliceVar(&transformTableFields, "table-field", nil, "direct fields holding pipe table text")
}

type transformOutput struct {
	RequestID    string           `json:"requestId"`
	DocumentType string           `json:"documentType"`
	Issues       []pipeline.Issue `json:"issues,omitempty"`
	Data         json.RawMessage  `json:"data,omitempty"`
	Source       string           `json:"source,omitempty"`
	Error        string           `json:"error,omitempty"`
}

func runTransform(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	inputs := append(slices.Clone(transformInputs), args...)
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	if len(inputs) > 1 && transformXLSX != "" {
		return common.NewAppError("INVALID_INPUT", "--xlsx needs exactly one input", common.ErrInvalidInput)
	}
	reqs := make([]pipeline.TransformationRequest, len(inputs))
	for i, in := range inputs {
		req, err := readRequest(in)
		if err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}
		reqs[i] = req
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(transformTableFields) > 0 {
		parser := tabletext.NewParser(a.logger)
		for i := range reqs {
			reqs[i].DirectData = parser.PreprocessTables(reqs[i].DirectData, transformTableFields...)
		}
	}

	if len(reqs) > 1 {
		return transformBatch(ctx, a, inputs, reqs)
	}

	res, err := a.processor.Transform(ctx, reqs[0])
	if err != nil {
		return fmt.Errorf("transform failed (%s): %w", common.ToStatus(err).Code(), err)
	}

	data, err := render.MarshalJSON(res.Data, false)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(transformOutput{
		RequestID:    res.RequestID,
		DocumentType: res.DocumentType,
		Issues:       res.Issues,
		Data:         data,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeOutput(transformOut, append(body, '\n')); err != nil {
		return err
	}

	if transformXLSX != "" {
		xlsx, err := export.NewService(a.logger).ItemsXLSX(ctx, res)
		if err != nil {
			return err
		}
		if err := os.WriteFile(transformXLSX, xlsx, 0o644); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}
	return nil
}

// transformBatch writes one output per input, in input order. A failed input
// is reported in its entry; the command fails after writing if any did.
func transformBatch(ctx context.Context, a *app, inputs []string, reqs []pipeline.TransformationRequest) error {
	results := a.processor.TransformBatch(ctx, reqs)
	outs := make([]transformOutput, len(results))
	failed := 0
	for i, br := range results {
		out := transformOutput{Source: inputs[i], DocumentType: reqs[i].DocumentType}
		if br.Err != nil {
			failed++
			out.Error = fmt.Sprintf("%s: %v", common.ToStatus(br.Err).Code(), br.Err)
			outs[i] = out
			continue
		}
		data, err := render.MarshalJSON(br.Result.Data, false)
		if err != nil {
			return err
		}
		out.RequestID = br.Result.RequestID
		out.Issues = br.Result.Issues
		out.Data = data
		outs[i] = out
	}

	body, err := json.MarshalIndent(outs, "", "  ")
	if err != nil {
		return err
	}
	if err := writeOutput(transformOut, append(body, '\n')); err != nil {
		return err
	}
	a.logger.Info("batch transformed", "inputs", len(inputs), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d transforms failed", failed, len(inputs))
	}
	return nil
}

func readRequest(path string) (pipeline.TransformationRequest, error) {
	var req pipeline.TransformationRequest
	var r io.Reader = os.Stdin
	if path != "-" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("read request: %w", err)
		}
		r = bytes.NewReader(raw)
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return req, common.NewAppError("INVALID_INPUT", "decode request", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	if req.DocumentType == "" {
		return req, common.NewAppError("INVALID_INPUT", "documentType is required", common.ErrInvalidInput)
	}
	return req, nil
}

func writeOutput(path string, body []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(body)
		return err
	}
	return os.WriteFile(path, body, 0o644)
}

