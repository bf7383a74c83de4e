package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"columns", ErrCodeColumns},
		{"columns.Id.pk", ErrCodeColumnType},
		{"from", ErrCodeFrom},
		{"where[0].op", ErrCodeWhere},
		{"limit", ErrCodeLimit},
		{"select", ErrCodeGeneric},
		{"", ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	for _, name := range []string{"a.cue", "nested/b.cue", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("package test\n"), 0644))
	}

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.cue"),
		filepath.Join(dir, "nested", "b.cue"),
	}, files)
}

func TestLoadSpecs(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"shop.cue": shopSpec})

	result, errs := LoadSpecs(dir, LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Entities, 2)
	assert.Equal(t, "Order", result.Entities[0].Name)
	require.Len(t, result.Queries, 4)
	assert.Equal(t, "bigOrders", result.Queries[0].Name)
}

func TestLoadSpecs_CollectAll(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"spec.cue": `package test

entity: A: {}
entity: B: columns: Id: 5
query: q: {from: "A", limit: -1}
`})

	_, failFast := LoadSpecs(dir, LoadModeFailFast)
	assert.Len(t, failFast, 1)

	_, all := LoadSpecs(dir, LoadModeCollectAll)
	require.Len(t, all, 3)

	var loadErr *LoadError
	require.ErrorAs(t, all[0], &loadErr)
	assert.Equal(t, ErrCodeColumns, loadErr.Code)
	require.ErrorAs(t, all[2], &loadErr)
	assert.Equal(t, ErrCodeLimit, loadErr.Code)
}

func TestLoadError_Error(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in /tmp"}
	assert.Equal(t, "E003: no CUE files found in /tmp", err.Error())
}
