package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFallsBackToDefaultWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Discover([]string{dir})
	require.Len(t, cfg.URLs, 1)
	assert.Equal(t, DefaultURL, cfg.URLs[0])
}

func TestDiscoverFirstFolderWins(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, a, `{"urls": ["github:foo/bar"]}`)
	writeFile(t, b, `{"urls": ["github:other/repo"]}`)

	cfg := Discover([]string{a, b})
	require.Len(t, cfg.URLs, 1)
	assert.Equal(t, "github:foo/bar", cfg.URLs[0])
}

func TestDiscoverFallsBackOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, `{not valid json`)

	cfg := Discover([]string{dir})
	assert.Equal(t, DefaultURL, cfg.URLs[0])
}

func TestDiscoverFallsBackOnSchemaViolation(t *testing.T) {
	dir := t.TempDir()
	// "urls" must be an array of strings, not a single string.
	writeFile(t, dir, `{"urls": "not-an-array"}`)

	cfg := Discover([]string{dir})
	assert.Equal(t, DefaultURL, cfg.URLs[0])
}

func TestDefaultMultipleFunctionColorsTrue(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, `{"urls": ["github:foo/bar"]}`)

	cfg := Discover([]string{dir})
	assert.True(t, cfg.MultipleFunctionColors)
}

func TestExplicitFalseOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, `{"urls": ["github:foo/bar"], "multiple_function_colors": false}`)

	cfg := Discover([]string{dir})
	assert.False(t, cfg.MultipleFunctionColors)
}

func TestCustomFunctionParamsAcceptsBareNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, `{
		"urls": ["github:foo/bar"],
		"custom_functions": [{"name": "$myFunc", "params": ["a", "b"]}]
	}`)

	cfg := Discover([]string{dir})
	require.Len(t, cfg.CustomFunctions, 1)
	fn := cfg.CustomFunctions[0]
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
}

func TestCustomFunctionParamsAcceptsFullSpecs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, `{
		"urls": ["github:foo/bar"],
		"custom_functions": [{"name": "$myFunc", "params": [{"name": "a", "required": true}]}]
	}`)

	cfg := Discover([]string{dir})
	fn := cfg.CustomFunctions[0]
	require.Len(t, fn.Params, 1)
	assert.True(t, fn.Params[0].Required)
}

func writeFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
