package schema

// BuildBootstrapJSONSchema returns the JSON-Schema every bootstrap document is
// checked against before it is decoded into typed configs. It recognises exactly
// the keys a DocumentTypeConfig understands; anything else is rejected.
func BuildBootstrapJSONSchema() map[string]any {
	fieldSpec := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type":      map[string]any{"type": "string", "minLength": 1},
			"required":  map[string]any{"type": "boolean"},
			"maxLength": map[string]any{"type": "integer", "minimum": 0},
			"choices":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"default":   map[string]any{},
			"minValue":  map[string]any{"type": "number"},
			"maxValue":  map[string]any{"type": "number"},
			"integer":   map[string]any{"type": "boolean"},
			"format":    map[string]any{"type": "string", "minLength": 1},
			"items":     map[string]any{"$ref": "#/$defs/fieldSpec"},
		},
		"required":             []string{"type"},
		"additionalProperties": false,
	}

	referenceSpec := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field":                map[string]any{"type": "string", "minLength": 1},
			"entityType":           map[string]any{"type": "string", "minLength": 1},
			"lookupField":          map[string]any{"type": "string", "minLength": 1},
			"targetPath":           map[string]any{"type": "string", "minLength": 1},
			"fields":               map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"isArray":              map[string]any{"type": "boolean"},
			"additionalProcessing": map[string]any{"type": "string"},
		},
		"required":             []string{"field", "entityType", "lookupField", "targetPath"},
		"additionalProperties": false,
	}

	documentType := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"directFields": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"$ref": "#/$defs/fieldSpec"},
			},
			"referenceFields": map[string]any{
				"type":  "array",
				"items": map[string]any{"$ref": "#/$defs/referenceSpec"},
			},
			"postProcessors": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "minLength": 1},
			},
		},
		"additionalProperties": false,
	}

	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": map[string]any{"$ref": "#/$defs/documentType"},
		"$defs": map[string]any{
			"fieldSpec":     fieldSpec,
			"referenceSpec": referenceSpec,
			"documentType":  documentType,
		},
	}
}
