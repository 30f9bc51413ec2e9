package grader

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a named JSON schema definition.
type Schema struct {
	Name       string
	Definition map[string]any
}

// ArtifactSchema describes a check artifact file.
var ArtifactSchema = &Schema{
	Name: "dnd-check-artifact",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cfn": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"formula": map[string]any{
				"type":    "string",
				"pattern": `\[\d+\]`,
			},
			"draggable_map": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"samples": map[string]any{
				"type":    "string",
				"pattern": `^[^@#]*@[^:#]*:[^#]*#\d+$`,
			},
			"expect": map[string]any{"type": "string"},
			"options": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"allow_empty":        map[string]any{"type": "boolean"},
					"hide_formula_input": map[string]any{"type": "boolean"},
					"err_msg":            map[string]any{"type": "string"},
				},
				"additionalProperties": false,
			},
			"answer": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"minProperties":        1,
					"maxProperties":        1,
					"additionalProperties": map[string]any{"type": "string"},
				},
			},
			"can_reuse": map[string]any{"type": "boolean"},
		},
		"required": []any{"cfn", "options"},
		"dependentRequired": map[string]any{
			"formula": []any{"draggable_map", "samples", "expect"},
		},
		"additionalProperties": false,
	},
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// ArtifactError reports an artifact file that fails to load.
type ArtifactError struct {
	Err error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("invalid check artifact: %v", e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// LoadArtifact validates raw JSON against ArtifactSchema and decodes it.
func LoadArtifact(raw []byte) (*Artifact, error) {
	if err := validate(ArtifactSchema, raw); err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, &ArtifactError{Err: err}
	}
	return &a, nil
}

func validate(schema *Schema, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ArtifactError{Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := compiledSchema(schema)
	if err != nil {
		return &ArtifactError{Err: fmt.Errorf("compile schema %q: %w", schema.Name, err)}
	}

	if err := compiled.Validate(parsed); err != nil {
		return &ArtifactError{Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}

func compiledSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a decoded JSON value, not Go maps with typed slices.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
