// Package fields coerces raw direct-field values according to a FieldSpec.
// Processors never fail: a bad value degrades to a default or an embedded
// error marker, and the problem is reported as a soft ValidationError.
package fields

import (
	"log/slog"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/schema"
)

// Processor coerces one raw value. The returned value is always usable; a
// non-nil ValidationError describes what was adjusted or rejected.
type Processor interface {
	Process(value any, spec schema.FieldSpec) (any, *common.ValidationError)
}

// ProcessorFunc adapts a plain function to Processor.
type ProcessorFunc func(value any, spec schema.FieldSpec) (any, *common.ValidationError)

func (f ProcessorFunc) Process(value any, spec schema.FieldSpec) (any, *common.ValidationError) {
	return f(value, spec)
}

// Set dispatches to the processor registered for a spec's type. Each pipeline
// owns its own Set.
type Set struct {
	processors map[constants.FieldType]Processor
	logger     *slog.Logger
}

// NewSet returns a Set with the string, number, date, date_range and array
// processors registered.
func NewSet(logger *slog.Logger) *Set {
	s := &Set{
		processors: make(map[constants.FieldType]Processor),
		logger:     common.LoggerOrDefault(logger),
	}
	s.Register(constants.FieldString, StringProcessor{})
	s.Register(constants.FieldNumber, NumberProcessor{})
	s.Register(constants.FieldDate, DateProcessor{})
	s.Register(constants.FieldDateRange, DateRangeProcessor{})
	s.Register(constants.FieldArray, &ArrayProcessor{set: s})
	return s
}

// Register installs or replaces the processor for ft.
func (s *Set) Register(ft constants.FieldType, p Processor) {
	s.processors[ft] = p
}

// Supports reports whether a processor is registered for ft.
func (s *Set) Supports(ft constants.FieldType) bool {
	_, ok := s.processors[ft]
	return ok
}

// Process runs the processor for spec.Type on value. Types without a
// processor pass the value through unchanged.
func (s *Set) Process(name string, value any, spec schema.FieldSpec) (any, *common.ValidationError) {
	p, ok := s.processors[spec.Type]
	if !ok {
		s.logger.Debug("no field processor; passing value through", "field", name, "type", spec.Type)
		return value, nil
	}
	out, issue := p.Process(value, spec)
	if issue != nil {
		issue.Field = name
		s.logger.Warn("field.coerce", "field", name, "type", spec.Type, "issue", issue.Message)
	}
	return out, issue
}

func issue(value any, message string) *common.ValidationError {
	return &common.ValidationError{Value: value, Message: message}
}
