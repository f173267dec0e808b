// Package scratch provides per-conversion temporary directories whose content
// is removed as a whole when the conversion ends.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Arena is a private temp directory. Close removes it and everything created
// through it; it is safe to call Close more than once.
type Arena struct {
	dir string

	mu     sync.Mutex
	closed bool
}

// New creates an arena below baseDir, or below os.TempDir() when baseDir is empty.
func New(baseDir string) (*Arena, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	dir := filepath.Join(baseDir, "docconv-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Arena{dir: dir}, nil
}

// Dir returns the arena directory.
func (a *Arena) Dir() string { return a.dir }

// Create opens a new file in the arena. pattern follows os.CreateTemp.
func (a *Arena) Create(pattern string) (*os.File, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, os.ErrClosed
	}
	return os.CreateTemp(a.dir, pattern)
}

// WriteFile stores data in a new arena file and returns its path.
func (a *Arena) WriteFile(pattern string, data []byte) (string, error) {
	f, err := a.Create(pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// Close removes the arena directory.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return os.RemoveAll(a.dir)
}
