package fields

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/schema"
)

// StringProcessor stringifies, truncates to maxLength and checks choices.
// Choices are advisory: a value outside them falls back to the default when
// one is configured and is otherwise kept as is.
type StringProcessor struct{}

func (StringProcessor) Process(value any, spec schema.FieldSpec) (any, *common.ValidationError) {
	s := Stringify(value)
	var problem *common.ValidationError

	if spec.MaxLength != nil {
		if runes := []rune(s); len(runes) > *spec.MaxLength {
			s = string(runes[:*spec.MaxLength])
			problem = issue(value, fmt.Sprintf("truncated to %d characters", *spec.MaxLength))
		}
	}

	if len(spec.Choices) > 0 && !slices.Contains(spec.Choices, s) {
		if spec.Default != nil {
			return spec.Default, issue(value, fmt.Sprintf("not one of [%s]; default used", strings.Join(spec.Choices, ", ")))
		}
		return s, issue(value, fmt.Sprintf("not one of [%s]", strings.Join(spec.Choices, ", ")))
	}
	return s, problem
}

// Stringify renders scalars without exponent notation; nil becomes "".
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
