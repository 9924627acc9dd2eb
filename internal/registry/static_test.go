package registry_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipevillazon/xelips/internal/registry"
)

const sampleSeedDoc = `
tables:
  systems:
    columns:
      system_id:
        type: integer
seed_rows:
  systems:
    - system_id: 1
      name: line-1
    - system_id: 2
      name: line-2
`

func TestStaticRows_ReturnsDeclaredRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), "schema.yaml", sampleSeedDoc)

	rows, err := registry.StaticRows(path, "systems")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 1, rows[0]["system_id"])
	assert.Equal(t, "line-1", rows[1]["name"])
}

func TestStaticRows_UnknownTableReturnsEmpty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "schema.yaml", sampleSeedDoc)

	rows, err := registry.StaticRows(path, "objects")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStaticRows_NoSeedRowsBlockReturnsEmpty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "schema.yaml", "tables:\n  systems:\n    columns:\n      system_id:\n        type: integer\n")

	rows, err := registry.StaticRows(path, "systems")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStaticRows_MissingFile(t *testing.T) {
	_, err := registry.StaticRows(filepath.Join(t.TempDir(), "absent.yaml"), "systems")
	assert.Error(t, err)
}

func TestStaticRows_MalformedYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "schema.yaml", "not: [valid")
	_, err := registry.StaticRows(path, "systems")
	assert.Error(t, err)
}
