package apidec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSchemaFile(t *testing.T) {
	routes := docsRoutes()
	cfg := DefaultConfig().WithSchemaPath(filepath.Join(t.TempDir(), "api", "schema.json"))

	require.NoError(t, WriteSchemaFile(routes, cfg))

	data, err := os.ReadFile(cfg.SchemaPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"openapi": "3.1.0"`)
	// 4-space indentation with a trailing newline.
	assert.Contains(t, string(data), "\n    \"info\"")
	assert.Equal(t, byte('\n'), data[len(data)-1])
}

func TestWriteSchemaFile_NoPath(t *testing.T) {
	require.Error(t, WriteSchemaFile(docsRoutes(), DefaultConfig()))
}

func TestCheckSchemaFile(t *testing.T) {
	routes := docsRoutes()
	cfg := DefaultConfig().WithSchemaPath(filepath.Join(t.TempDir(), "schema.json"))

	require.NoError(t, WriteSchemaFile(routes, cfg))
	require.NoError(t, CheckSchemaFile(routes, cfg))
}

func TestCheckSchemaFile_Drift(t *testing.T) {
	routes := docsRoutes()
	cfg := DefaultConfig().WithSchemaPath(filepath.Join(t.TempDir(), "schema.json"))

	require.NoError(t, WriteSchemaFile(routes, cfg))
	require.NoError(t, os.WriteFile(cfg.SchemaPath, []byte("{}\n"), 0o644))

	err := CheckSchemaFile(routes, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of date")
}

func TestCheckSchemaFile_Missing(t *testing.T) {
	cfg := DefaultConfig().WithSchemaPath(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, CheckSchemaFile(docsRoutes(), cfg))
}
