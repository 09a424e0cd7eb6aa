package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	schemaOnce   sync.Once
	playerSchema []byte
	hubSchema    []byte
	schemaErr    error
)

// JSONSchema returns the JSON Schema for the player Config struct.
func JSONSchema() ([]byte, error) {
	buildSchemas()
	return playerSchema, schemaErr
}

// HubJSONSchema returns the JSON Schema for the hub HubConfig struct.
func HubJSONSchema() ([]byte, error) {
	buildSchemas()
	return hubSchema, schemaErr
}

func buildSchemas() {
	schemaOnce.Do(func() {
		playerSchema, schemaErr = reflectSchema(&Config{})
		if schemaErr != nil {
			return
		}
		hubSchema, schemaErr = reflectSchema(&HubConfig{})
	})
}

// reflectSchema keys the schema by yaml field names, since that is the
// format both config files are written in.
func reflectSchema(v any) ([]byte, error) {
	r := &jsonschema.Reflector{
		FieldNameTag: "yaml",
	}
	out, err := json.MarshalIndent(r.Reflect(v), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
