// Package volume abstracts the file storage behind an asset source.
package volume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrExists indicates the rename target already exists.
var ErrExists = errors.New("file already exists")

// Volume is the subset of file operations the element engine needs.
type Volume interface {
	Exists(path string) (bool, error)
	Rename(oldPath, newPath string) error
}

// Local is a Volume rooted at a directory.
type Local struct {
	Root string
}

// NewLocal returns a Local volume for root.
func NewLocal(root string) *Local {
	return &Local{Root: root}
}

func (l *Local) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	full := filepath.Join(l.Root, clean)
	if full != l.Root && !strings.HasPrefix(full, l.Root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes volume root", path)
	}
	return full, nil
}

// Exists reports whether path exists under the root.
func (l *Local) Exists(path string) (bool, error) {
	full, err := l.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

// Rename moves oldPath to newPath, refusing to overwrite.
func (l *Local) Rename(oldPath, newPath string) error {
	from, err := l.resolve(oldPath)
	if err != nil {
		return err
	}
	to, err := l.resolve(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, newPath)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", newPath, err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s: %w", oldPath, err)
	}
	return nil
}

// Memory is an in-memory Volume for tests and dry runs.
type Memory struct {
	Files map[string]bool
	// FailRename makes Rename fail for these source paths.
	FailRename map[string]error
}

// NewMemory returns a Memory volume holding files.
func NewMemory(files ...string) *Memory {
	m := &Memory{Files: make(map[string]bool), FailRename: make(map[string]error)}
	for _, f := range files {
		m.Files[f] = true
	}
	return m
}

func (m *Memory) Exists(path string) (bool, error) {
	return m.Files[path], nil
}

func (m *Memory) Rename(oldPath, newPath string) error {
	if err := m.FailRename[oldPath]; err != nil {
		return err
	}
	if !m.Files[oldPath] {
		return fmt.Errorf("rename %s: %w", oldPath, os.ErrNotExist)
	}
	if m.Files[newPath] {
		return fmt.Errorf("%w: %s", ErrExists, newPath)
	}
	delete(m.Files, oldPath)
	m.Files[newPath] = true
	return nil
}
