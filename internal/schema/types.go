// Package schema holds the per-document-type field contracts and the registry
// the transformer reads them from.
package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/common"
)

// FieldSpec declares how one direct field is coerced and validated.
type FieldSpec struct {
	Type     constants.FieldType `json:"type"`
	Required bool                `json:"required,omitempty"`

	// string
	MaxLength *int     `json:"maxLength,omitempty"`
	Choices   []string `json:"choices,omitempty"`

	// string and number
	Default any `json:"default,omitempty"`

	// number
	MinValue *float64 `json:"minValue,omitempty"`
	MaxValue *float64 `json:"maxValue,omitempty"`
	Integer  bool     `json:"integer,omitempty"`

	// date
	Format string `json:"format,omitempty"`

	// array
	Items *FieldSpec `json:"items,omitempty"`
}

// ReferenceFieldSpec declares a value that is a key into another entity's data.
type ReferenceFieldSpec struct {
	Field                string   `json:"field"`
	EntityType           string   `json:"entityType"`
	LookupField          string   `json:"lookupField"`
	TargetPath           string   `json:"targetPath"`
	Fields               []string `json:"fields,omitempty"`
	IsArray              bool     `json:"isArray,omitempty"`
	AdditionalProcessing string   `json:"additionalProcessing,omitempty"`
}

// DocumentTypeConfig is everything the transformer needs for one document type.
type DocumentTypeConfig struct {
	DirectFields    map[string]FieldSpec `json:"directFields"`
	ReferenceFields []ReferenceFieldSpec `json:"referenceFields"`
	PostProcessors  []string             `json:"postProcessors,omitempty"`
}

// EmptyConfig is what Get hands back for an unknown document type.
func EmptyConfig() DocumentTypeConfig {
	return DocumentTypeConfig{
		DirectFields:    map[string]FieldSpec{},
		ReferenceFields: []ReferenceFieldSpec{},
	}
}

// IsEmpty reports whether the config would transform nothing.
func (c DocumentTypeConfig) IsEmpty() bool {
	return len(c.DirectFields) == 0 && len(c.ReferenceFields) == 0 && len(c.PostProcessors) == 0
}

// Clone returns a deep copy so registry contents cannot be mutated through a caller's copy.
func (c DocumentTypeConfig) Clone() DocumentTypeConfig {
	out := DocumentTypeConfig{
		DirectFields:    make(map[string]FieldSpec, len(c.DirectFields)),
		ReferenceFields: make([]ReferenceFieldSpec, len(c.ReferenceFields)),
		PostProcessors:  slices.Clone(c.PostProcessors),
	}
	for name, spec := range c.DirectFields {
		out.DirectFields[name] = spec.Clone()
	}
	for i, ref := range c.ReferenceFields {
		ref.Fields = slices.Clone(ref.Fields)
		out.ReferenceFields[i] = ref
	}
	return out
}

// Clone returns a deep copy of the spec.
func (s FieldSpec) Clone() FieldSpec {
	out := s
	if s.MaxLength != nil {
		v := *s.MaxLength
		out.MaxLength = &v
	}
	if s.MinValue != nil {
		v := *s.MinValue
		out.MinValue = &v
	}
	if s.MaxValue != nil {
		v := *s.MaxValue
		out.MaxValue = &v
	}
	out.Choices = slices.Clone(s.Choices)
	if s.Items != nil {
		items := s.Items.Clone()
		out.Items = &items
	}
	return out
}

// Validate checks one field spec, recursing into array items.
func (s *FieldSpec) Validate(name string) []common.ValidationError {
	v := common.NewValidator()
	s.validateInto(v, name)
	return v.Errors()
}

func (s *FieldSpec) validateInto(v *common.Validator, name string) {
	ft, ok := constants.CanonicalFieldType(string(s.Type))
	if !ok {
		v.Add(name+".type", s.Type, "unknown field type")
		return
	}
	switch strings.ToLower(strings.TrimSpace(string(s.Type))) {
	case "int", "integer":
		s.Integer = true
	}
	s.Type = ft

	if s.MaxLength != nil && *s.MaxLength < 0 {
		v.Add(name+".maxLength", *s.MaxLength, "must not be negative")
	}
	if s.MinValue != nil && s.MaxValue != nil && *s.MinValue > *s.MaxValue {
		v.Add(name+".minValue", *s.MinValue, fmt.Sprintf("must not exceed maxValue %v", *s.MaxValue))
	}
	if ft == constants.FieldArray {
		if s.Items == nil {
			// items default to strings
			s.Items = &FieldSpec{Type: constants.FieldString}
		} else {
			s.Items.validateInto(v, name+".items")
		}
	}
}

// Validate checks the structural shape of a reference spec.
func (r ReferenceFieldSpec) Validate(prefix string) []common.ValidationError {
	v := common.NewValidator()
	v.Field(prefix+".field", r.Field, common.Required)
	v.Field(prefix+".entityType", r.EntityType, common.Required)
	v.Field(prefix+".lookupField", r.LookupField, common.Required)
	v.Field(prefix+".targetPath", r.TargetPath, common.DotPath)
	if r.AdditionalProcessing != "" && !r.IsArray {
		v.Add(prefix+".additionalProcessing", r.AdditionalProcessing, "only applies to array references")
	}
	return v.Errors()
}

// Validate normalises field types in place and reports every structural problem.
func (c *DocumentTypeConfig) Validate(documentType string) error {
	v := common.NewValidator()
	v.Field("documentType", documentType, common.Required)
	if c.DirectFields == nil {
		c.DirectFields = map[string]FieldSpec{}
	}
	if c.ReferenceFields == nil {
		c.ReferenceFields = []ReferenceFieldSpec{}
	}

	for _, name := range slices.Sorted(maps.Keys(c.DirectFields)) {
		spec := c.DirectFields[name]
		spec.validateInto(v, documentType+".directFields."+name)
		c.DirectFields[name] = spec
	}
	for i, ref := range c.ReferenceFields {
		for _, e := range ref.Validate(fmt.Sprintf("%s.referenceFields[%d]", documentType, i)) {
			v.Add(e.Field, e.Value, e.Message)
		}
	}
	for i, name := range c.PostProcessors {
		v.Field(fmt.Sprintf("%s.postProcessors[%d]", documentType, i), name, common.Required)
	}
	return v.Error()
}
