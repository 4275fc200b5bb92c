package space

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVarFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "variables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadVariablesFile(t *testing.T) {
	t.Run("preserves declaration order", func(t *testing.T) {
		path := writeVarFile(t, `
- name: x
  values: [1, 2, 3]
- name: y
  values: [a, b]
`)
		variables, err := LoadVariablesFile(path)
		require.NoError(t, err)
		require.Len(t, variables, 2)
		assert.Equal(t, "x", variables[0].Name)
		assert.Equal(t, []any{1, 2, 3}, variables[0].Values)
		assert.Equal(t, "y", variables[1].Name)
		assert.Equal(t, []any{"a", "b"}, variables[1].Values)
	})

	t.Run("rejects invalid names", func(t *testing.T) {
		path := writeVarFile(t, `
- name: BadName
  values: [1]
`)
		_, err := LoadVariablesFile(path)
		assert.ErrorContains(t, err, "does not conform")
	})

	t.Run("rejects empty value lists", func(t *testing.T) {
		path := writeVarFile(t, `
- name: x
  values: []
`)
		_, err := LoadVariablesFile(path)
		assert.ErrorContains(t, err, "has no values")
	})

	t.Run("rejects empty files", func(t *testing.T) {
		path := writeVarFile(t, "")
		_, err := LoadVariablesFile(path)
		assert.ErrorContains(t, err, "no variables")
	})

	t.Run("fails on missing files", func(t *testing.T) {
		_, err := LoadVariablesFile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "failed to read")
	})
}
