// Package schema generates JSON schemas for the host configuration.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cfxwasm/sdk/application/config"
	"github.com/invopop/jsonschema"
)

// GenerateSchema creates a JSON schema from a Go struct.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateSchema(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
	}
	return marshal(reflector.Reflect(v))
}

// ConfigSchema returns the schema of config.Config, titled and with the
// environment variable of each property in its description.
func ConfigSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	s := reflector.Reflect(config.Config{})
	s.Title = "cfxwasm host configuration"

	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.Description = "env " + config.EnvPrefix + envName(pair.Key)
	}
	return marshal(s)
}

func marshal(s *jsonschema.Schema) ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}

// envName maps a snake_case JSON property to its env variable suffix.
func envName(prop string) string {
	return strings.ToUpper(prop)
}
