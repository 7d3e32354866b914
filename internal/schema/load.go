package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docforge/internal/common"
)

var (
	bootstrapOnce   sync.Once
	bootstrapSchema *jsonschema.Schema
	bootstrapErr    error
)

func compiledBootstrapSchema() (*jsonschema.Schema, error) {
	bootstrapOnce.Do(func() {
		b, err := json.Marshal(BuildBootstrapJSONSchema())
		if err != nil {
			bootstrapErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("bootstrap.json", bytes.NewReader(b)); err != nil {
			bootstrapErr = fmt.Errorf("add schema: %w", err)
			return
		}
		bootstrapSchema, bootstrapErr = compiler.Compile("bootstrap.json")
		if bootstrapErr != nil {
			bootstrapErr = fmt.Errorf("compile schema: %w", bootstrapErr)
		}
	})
	return bootstrapSchema, bootstrapErr
}

// Parse decodes a bootstrap document (JSON bytes) into validated, typed configs.
func Parse(data []byte) (map[string]DocumentTypeConfig, error) {
	schema, err := compiledBootstrapSchema()
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, common.NewAppError("SCHEMA_ERROR", "decode bootstrap document", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	if err := schema.Validate(generic); err != nil {
		return nil, common.NewAppError("SCHEMA_ERROR", "bootstrap document does not match schema", fmt.Errorf("%w: %w", common.ErrValidation, err))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	configs := map[string]DocumentTypeConfig{}
	if err := dec.Decode(&configs); err != nil {
		return nil, common.NewAppError("SCHEMA_ERROR", "decode document types", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}

	v := common.NewValidator()
	for name, cfg := range configs {
		if err := cfg.Validate(name); err != nil {
			v.Add(name, nil, err.Error())
			continue
		}
		configs[name] = cfg
	}
	if v.HasErrors() {
		return nil, common.NewAppError("SCHEMA_ERROR", "invalid document type config", v.Error())
	}
	return configs, nil
}

// Load validates an already-decoded bootstrap structure (as produced by a YAML,
// TOML or JSON decoder) and returns typed configs.
func Load(raw map[string]any) (map[string]DocumentTypeConfig, error) {
	b, err := json.Marshal(normalizeKeys(raw))
	if err != nil {
		return nil, common.NewAppError("SCHEMA_ERROR", "encode bootstrap document", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	return Parse(b)
}

// LoadFile reads a .yaml/.yml, .toml or .json bootstrap file.
func LoadFile(path string) (map[string]DocumentTypeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var raw map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		_, err = toml.Decode(string(data), &raw)
	case ".json":
		return Parse(data)
	default:
		return nil, common.NewAppError("SCHEMA_ERROR", fmt.Sprintf("unsupported schema file extension %q", ext), common.ErrInvalidInput)
	}
	if err != nil {
		return nil, common.NewAppError("SCHEMA_ERROR", "decode "+filepath.Base(path), fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	return Load(raw)
}

// LoadInto registers every config of a bootstrap file and returns the type names.
func LoadInto(reg *Registry, path string) ([]string, error) {
	configs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(configs))
	for name, cfg := range configs {
		reg.Register(name, cfg)
		names = append(names, name)
	}
	return names, nil
}

// normalizeKeys turns map[any]any (older YAML decoders) into map[string]any so
// the document can be re-encoded as JSON.
func normalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeKeys(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeKeys(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeKeys(val)
		}
		return out
	default:
		return v
	}
}
