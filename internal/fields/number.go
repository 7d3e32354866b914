package fields

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/schema"
)

// NumberProcessor parses numbers, tolerating thousands separators.
// Integer-looking input yields int64, anything else float64; the integer flag
// truncates to int64. Unparsable input falls back to the default, or 0.
type NumberProcessor struct{}

func (NumberProcessor) Process(value any, spec schema.FieldSpec) (any, *common.ValidationError) {
	n, ok := ParseNumber(value)
	var problem *common.ValidationError
	if !ok {
		problem = issue(value, "not a number; default used")
		n, ok = ParseNumber(spec.Default)
		if !ok {
			n = Number{Int: 0, IsInt: true}
		}
	}

	if spec.MinValue != nil && n.Float() < *spec.MinValue {
		n = FromFloat(*spec.MinValue)
		problem = issue(value, "raised to minValue")
	}
	if spec.MaxValue != nil && n.Float() > *spec.MaxValue {
		n = FromFloat(*spec.MaxValue)
		problem = issue(value, "lowered to maxValue")
	}
	if spec.Integer && !n.IsInt {
		n = Number{Int: int64(math.Trunc(n.Flt)), IsInt: true}
	}
	return n.Value(), problem
}

// Number keeps integers exact instead of routing them through float64.
type Number struct {
	Int   int64
	Flt   float64
	IsInt bool
}

// FromFloat returns an integral Number when f has no fractional part.
func FromFloat(f float64) Number {
	if f == math.Trunc(f) && math.Abs(f) < 1<<62 {
		return Number{Int: int64(f), IsInt: true}
	}
	return Number{Flt: f}
}

func (n Number) Float() float64 {
	if n.IsInt {
		return float64(n.Int)
	}
	return n.Flt
}

// Value returns int64 or float64.
func (n Number) Value() any {
	if n.IsInt {
		return n.Int
	}
	return n.Flt
}

// ParseNumber accepts Go numeric types, json.Number and strings such as
// "1,000,000" or " 12.5 ".
func ParseNumber(value any) (Number, bool) {
	switch v := value.(type) {
	case int:
		return Number{Int: int64(v), IsInt: true}, true
	case int8:
		return Number{Int: int64(v), IsInt: true}, true
	case int16:
		return Number{Int: int64(v), IsInt: true}, true
	case int32:
		return Number{Int: int64(v), IsInt: true}, true
	case int64:
		return Number{Int: v, IsInt: true}, true
	case uint:
		return Number{Int: int64(v), IsInt: true}, true
	case uint8:
		return Number{Int: int64(v), IsInt: true}, true
	case uint16:
		return Number{Int: int64(v), IsInt: true}, true
	case uint32:
		return Number{Int: int64(v), IsInt: true}, true
	case uint64:
		return Number{Int: int64(v), IsInt: true}, true
	case float32:
		return Number{Flt: float64(v)}, !math.IsNaN(float64(v))
	case float64:
		return Number{Flt: v}, !math.IsNaN(v)
	case json.Number:
		return parseNumberString(v.String())
	case string:
		return parseNumberString(v)
	default:
		return Number{}, false
	}
}

func parseNumberString(s string) (Number, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return Number{}, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Number{Int: i, IsInt: true}, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}, false
	}
	return Number{Flt: f}, true
}
