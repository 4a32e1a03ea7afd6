// Package config loads and validates forgeconfig.json: the metadata
// source URLs, the multi-color token-highlighting flag, and any
// custom, locally declared functions.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/jsonschema-go/jsonschema"

	fserrors "github.com/Zack-911/forgelsp/internal/errors"
	"github.com/Zack-911/forgelsp/internal/logging"
)

const FileName = "forgeconfig.json"

// DefaultURL is used when no config file is found, or when the found
// one fails to parse or validate.
const DefaultURL = "github:Zack-911/forgescript/metadata/functions.json"

// Param describes one parameter of a CustomFunction.
type Param struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// CustomFunction is a function declared directly in forgeconfig.json
// rather than fetched from a remote metadata source. "params" may be
// given either as a bare list of names or as full Param objects; both
// forms are accepted by UnmarshalJSON.
type CustomFunction struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Params      []Param `json:"params,omitempty"`
}

// UnmarshalJSON accepts "params" as either []string (bare names) or
// []Param (full specs), matching §6's CustomFunction grammar.
func (c *CustomFunction) UnmarshalJSON(data []byte) error {
	type alias CustomFunction
	var raw struct {
		alias
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = CustomFunction(raw.alias)
	if len(raw.Params) == 0 {
		return nil
	}

	var asParams []Param
	if err := json.Unmarshal(raw.Params, &asParams); err == nil {
		c.Params = asParams
		return nil
	}

	var asNames []string
	if err := json.Unmarshal(raw.Params, &asNames); err != nil {
		return err
	}
	c.Params = make([]Param, len(asNames))
	for i, n := range asNames {
		c.Params[i] = Param{Name: n}
	}
	return nil
}

// Config is the parsed, validated contents of forgeconfig.json, or the
// default fallback if none was found or it failed to load.
type Config struct {
	URLs                   []string         `json:"urls"`
	MultipleFunctionColors bool             `json:"multiple_function_colors"`
	CustomFunctionsPath    string           `json:"custom_functions_path,omitempty"`
	CustomFunctions        []CustomFunction `json:"custom_functions,omitempty"`
}

// Default returns the fallback configuration used when no file is
// found, or loading fails (category-1 error per the error handling
// design: silent fallback, no user-visible failure).
func Default() *Config {
	return &Config{
		URLs:                   []string{DefaultURL},
		MultipleFunctionColors: true,
	}
}

var schema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"urls": {
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		},
		"multiple_function_colors": {Type: "boolean"},
		"custom_functions_path":    {Type: "string"},
		"custom_functions": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"name":        {Type: "string"},
					"description": {Type: "string"},
				},
				Required: []string{"name"},
			},
		},
	},
	Required: []string{"urls"},
}

var resolvedSchema *jsonschema.Resolved

func resolveSchema() (*jsonschema.Resolved, error) {
	if resolvedSchema != nil {
		return resolvedSchema, nil
	}
	r, err := schema.Resolve(nil)
	if err != nil {
		return nil, err
	}
	resolvedSchema = r
	return r, nil
}

// Discover walks folders in order and loads the first forgeconfig.json
// found. It returns the Default configuration (never an error) if no
// folder has one, or if the one found fails to parse or validate.
func Discover(folders []string) *Config {
	for _, folder := range folders {
		path := filepath.Join(folder, FileName)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		cfg, err := parseAndValidate(path, data)
		if err != nil {
			logging.Warn("config", "%v", err)
			return Default()
		}
		return cfg
	}
	return Default()
}

func parseAndValidate(path string, data []byte) (*Config, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fserrors.NewConfigError(path, "parse", err)
	}

	resolved, err := resolveSchema()
	if err != nil {
		return nil, fserrors.NewConfigError(path, "compile-schema", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return nil, fserrors.NewConfigError(path, "validate", err)
	}

	// Pre-set the default before unmarshaling: an absent key leaves the
	// field untouched, an explicit false overrides it.
	cfg := Config{MultipleFunctionColors: true}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fserrors.NewConfigError(path, "decode", err)
	}
	if len(cfg.URLs) == 0 {
		cfg.URLs = []string{DefaultURL}
	}
	return &cfg, nil
}
