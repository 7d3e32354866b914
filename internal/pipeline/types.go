package pipeline

import (
	"github.com/joseph-ayodele/docforge/internal/common"
)

// TransformationRequest is one record to turn into a document payload.
type TransformationRequest struct {
	DocumentType  string         `json:"documentType"`
	RequestID     string         `json:"requestId,omitempty"`
	DirectData    map[string]any `json:"directData"`
	ReferenceData map[string]any `json:"referenceData"`
}

// Issue is a soft problem met during a transformation. Issues never abort.
type Issue struct {
	Stage   string `json:"stage"`
	Field   string `json:"field,omitempty"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// Result is the output handed to the renderer plus the issues collected on
// the way. Data always contains documentType.
type Result struct {
	DocumentType string         `json:"documentType"`
	RequestID    string         `json:"requestId"`
	Data         map[string]any `json:"data"`
	Issues       []Issue        `json:"issues,omitempty"`
}

func (r *Result) addIssue(stage, field string, value any, message string) {
	r.Issues = append(r.Issues, Issue{Stage: stage, Field: field, Value: value, Message: message})
}

func (r *Result) addValidation(stage string, ve common.ValidationError) {
	r.addIssue(stage, ve.Field, ve.Value, ve.Message)
}

// IssuesFor returns the issues recorded by one stage.
func (r *Result) IssuesFor(stage string) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Stage == stage {
			out = append(out, is)
		}
	}
	return out
}

// cloneValue deep-copies the maps and slices of a decoded request. Other
// values are returned as they are.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []map[string]any:
		if t == nil {
			return t
		}
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i], _ = cloneValue(e).(map[string]any)
		}
		return out
	default:
		return v
	}
}
