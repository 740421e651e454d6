// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the generated config schema.
const SchemaID = "https://holomush.dev/schemas/portal-config.schema.json"

// durationPattern matches strings accepted by time.ParseDuration.
const durationPattern = `^-?([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

var (
	schemaOnce     sync.Once
	compiledSchema *jschema.Schema
	schemaErr      error
)

// GenerateSchema generates a JSON Schema from the Config struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     durationPattern,
					Description: "Go duration, for example 30s or 24h",
				}
			}
			return nil
		},
	}
	schema := r.Reflect(&Config{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Portal Configuration"
	schema.Description = "Schema for portal config.yaml files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").With("operation", "marshal schema").Wrap(err)
	}
	return data, nil
}

// ValidateYAML validates YAML data against the config JSON Schema.
func ValidateYAML(data []byte) error {
	var yamlData any
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}
	if yamlData == nil {
		return nil
	}

	sch, err := getCompiledSchema()
	if err != nil {
		return err
	}

	if err := sch.Validate(convertToJSONTypes(yamlData)); err != nil {
		return oops.Code("CONFIG_SCHEMA_INVALID").Wrap(err)
	}
	return nil
}

func getCompiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = compileSchema()
	})
	return compiledSchema, schemaErr
}

func compileSchema() (*jschema.Schema, error) {
	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").With("operation", "parse schema").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("config.schema.json", schemaData); err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").With("operation", "add schema resource").Wrap(err)
	}
	sch, err := c.Compile("config.schema.json")
	if err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").With("operation", "compile schema").Wrap(err)
	}
	return sch, nil
}

// convertToJSONTypes rewrites YAML-decoded values into the types a JSON
// decoder would produce.
func convertToJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = convertToJSONTypes(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = convertToJSONTypes(v)
		}
		return result
	case string, int, int64, float64, bool, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var result any
			if err := json.Unmarshal(b, &result); err == nil {
				return result
			}
		}
		return val
	}
}

// FormatSchemaError formats a schema validation error for display.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	var verr *jschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	return strings.TrimSpace(verr.Error())
}
