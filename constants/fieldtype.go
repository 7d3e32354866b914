package constants

import "strings"

// FieldType names the coercion rule applied to a direct field.
type FieldType string

const (
	FieldString    FieldType = "string"
	FieldNumber    FieldType = "number"
	FieldDate      FieldType = "date"
	FieldDateRange FieldType = "date_range"
	FieldArray     FieldType = "array"
)

var allFieldTypes = []FieldType{
	FieldString,
	FieldNumber,
	FieldDate,
	FieldDateRange,
	FieldArray,
}

// FieldTypesAsStrings returns the known field type names, in declaration order.
func FieldTypesAsStrings() []string {
	result := make([]string, len(allFieldTypes))
	for i, ft := range allFieldTypes {
		result[i] = string(ft)
	}
	return result
}

// CanonicalFieldType maps loose spellings ("daterange", "Number", "list") to a FieldType.
// The second return value is false when the input is not recognised.
func CanonicalFieldType(input string) (FieldType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]FieldType{
		"str":        FieldString,
		"text":       FieldString,
		"int":        FieldNumber,
		"integer":    FieldNumber,
		"float":      FieldNumber,
		"daterange":  FieldDateRange,
		"date-range": FieldDateRange,
		"period":     FieldDateRange,
		"list":       FieldArray,
	}
	if ft, ok := synonyms[normalized]; ok {
		return ft, true
	}

	for _, ft := range allFieldTypes {
		if normalized == string(ft) {
			return ft, true
		}
	}
	return "", false
}
