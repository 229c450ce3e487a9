package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var documentSchema string

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(documentSchema)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return schema, nil
})

// CheckDocument validates the shape of a raw experiment document against the
// embedded JSON schema. Violations are returned as *ValidationErrors.
func CheckDocument(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &ConfigError{Message: fmt.Sprintf("failed to parse config: %v", err)}
	}
	if doc == nil {
		return &ConfigError{Message: "config is empty"}
	}

	// The validator expects values shaped like encoding/json output.
	raw, err := json.Marshal(jsonCompatible(doc))
	if err != nil {
		return &ConfigError{Message: fmt.Sprintf("config cannot be represented as JSON: %v", err)}
	}
	var instance interface{}
	if err := json.Unmarshal(raw, &instance); err != nil {
		return &ConfigError{Message: fmt.Sprintf("config cannot be represented as JSON: %v", err)}
	}

	schema, err := compileSchema()
	if err != nil {
		return err
	}

	if err := schema.Validate(instance); err != nil {
		errs := &ValidationErrors{}
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			collectSchemaErrors(verr, errs)
		}
		if !errs.HasErrors() {
			errs.Add("", err.Error())
		}
		return errs
	}

	return nil
}

// collectSchemaErrors flattens a validation error tree into its leaves.
func collectSchemaErrors(err *jsonschema.ValidationError, errs *ValidationErrors) {
	if len(err.Causes) == 0 {
		errs.Add(pointerToPath(err.InstanceLocation), err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, errs)
	}
}

// pointerToPath turns a JSON pointer like /experiments/demo/url into
// experiments.demo.url.
func pointerToPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return "(root)"
	}
	parts := strings.Split(pointer, "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return strings.Join(parts, ".")
}

// jsonCompatible converts yaml.v3 generic values so encoding/json can
// marshal them. Mappings with non-string keys get their keys stringified.
func jsonCompatible(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = jsonCompatible(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = jsonCompatible(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = jsonCompatible(item)
		}
		return out
	default:
		return val
	}
}
