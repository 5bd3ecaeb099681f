package volume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRename(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.jpg"), []byte("y"), 0644))
	v := NewLocal(root)

	ok, err := v.Exists("a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, v.Rename("a.jpg", "b.jpg"), ErrExists)

	require.NoError(t, v.Rename("a.jpg", "images/c.jpg"))
	ok, err = v.Exists("images/c.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = v.Exists("a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStaysInsideRoot(t *testing.T) {
	v := NewLocal(t.TempDir())
	// Leading ../ is cleaned against the root, never above it.
	ok, err := v.Exists("../../etc/passwd")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	m := NewMemory("a.jpg", "b.jpg")
	assert.ErrorIs(t, m.Rename("a.jpg", "b.jpg"), ErrExists)
	require.NoError(t, m.Rename("a.jpg", "c.jpg"))
	ok, _ := m.Exists("c.jpg")
	assert.True(t, ok)
	assert.Error(t, m.Rename("missing.jpg", "d.jpg"))
}
