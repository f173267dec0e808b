package scratch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_CreateAndClose(t *testing.T) {
	base := t.TempDir()
	a, err := New(base)
	require.NoError(t, err)
	assert.Equal(t, base, filepath.Dir(a.Dir()))

	p, err := a.WriteFile("img-*.jpg", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, a.Dir(), filepath.Dir(p))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	_, err = os.Stat(a.Dir())
	assert.True(t, os.IsNotExist(err))

	_, err = a.Create("late-*")
	assert.True(t, errors.Is(err, os.ErrClosed))
}

func TestArena_CleanupOnErrorPath(t *testing.T) {
	base := t.TempDir()
	run := func() (string, error) {
		a, err := New(base)
		if err != nil {
			return "", err
		}
		defer a.Close()
		if _, err := a.WriteFile("x-*", []byte("x")); err != nil {
			return "", err
		}
		return a.Dir(), errors.New("conversion failed")
	}

	dir, err := run()
	require.Error(t, err)
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNew_DefaultBaseAndInvalidBase(t *testing.T) {
	a, err := New("")
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, filepath.Clean(os.TempDir()), filepath.Dir(a.Dir()))

	_, err = New("/dev/null/not-a-dir")
	assert.Error(t, err)
}
