package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elq", "nested", "config.toml")

	require.NoError(t, WriteFile(path, []byte("database = \"site.db\"\n"), 0))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "database = \"site.db\"\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestWriteFileKeepsExistingMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, WriteFile(path, []byte("new"), 0))

	st, err := os.Stat(path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())
	}
}
