package fields

import (
	"reflect"

	"github.com/joseph-ayodele/docforge/constants"
	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/schema"
)

// ArrayProcessor applies the items spec to every element. Non-sequence input
// becomes an empty list.
type ArrayProcessor struct {
	set *Set
}

func (a *ArrayProcessor) Process(value any, spec schema.FieldSpec) (any, *common.ValidationError) {
	rv := reflect.ValueOf(value)
	if value == nil || rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{}, issue(value, "not a list")
	}
	if _, isBytes := value.([]byte); isBytes {
		return []any{}, issue(value, "not a list")
	}

	itemSpec := schema.FieldSpec{Type: constants.FieldString}
	if spec.Items != nil {
		itemSpec = *spec.Items
	}
	if !a.set.Supports(itemSpec.Type) {
		itemSpec.Type = constants.FieldString
	}
	p := a.set.processors[itemSpec.Type]

	out := make([]any, rv.Len())
	var first *common.ValidationError
	for i := range rv.Len() {
		v, problem := p.Process(rv.Index(i).Interface(), itemSpec)
		out[i] = v
		if problem != nil && first == nil {
			first = problem
		}
	}
	return out, first
}
