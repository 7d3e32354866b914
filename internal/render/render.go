// Package render hands a transformation result to the document renderer as a
// protobuf Struct or its canonical JSON.
package render

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docforge/internal/common"
)

// Normalize rewrites data into the shapes structpb accepts: typed slices and
// maps become []any and map[string]any, integers and json.Number become
// float64 and times become RFC 3339 strings.
func Normalize(data map[string]any) map[string]any {
	out, _ := normalize(reflect.ValueOf(data)).(map[string]any)
	return out
}

func normalize(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		return normalize(v.Elem())
	}
	switch t := v.Interface().(type) {
	case time.Time:
		return t.Format(time.RFC3339)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	}

	switch v.Kind() {
	case reflect.Map:
		m := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = normalize(iter.Value())
		}
		return m
	case reflect.Slice, reflect.Array:
		if b, ok := v.Interface().([]byte); ok {
			return string(b)
		}
		s := make([]any, v.Len())
		for i := range v.Len() {
			s[i] = normalize(v.Index(i))
		}
		return s
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Bool:
		return v.Bool()
	case reflect.String:
		return v.String()
	default:
		return fmt.Sprint(v.Interface())
	}
}

// ToStruct converts a result map into a protobuf Struct.
func ToStruct(data map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(Normalize(data))
	if err != nil {
		return nil, common.NewAppError("RENDER_ERROR", "convert result to struct", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	return s, nil
}

// MarshalJSON renders data as protojson, the payload format of the renderer.
func MarshalJSON(data map[string]any, indent bool) ([]byte, error) {
	s, err := ToStruct(data)
	if err != nil {
		return nil, err
	}
	opts := protojson.MarshalOptions{}
	if indent {
		opts.Multiline = true
		opts.Indent = "  "
	}
	b, err := opts.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return b, nil
}
