package tetherdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_PathAccessors(t *testing.T) {
	d := New("/project/.tether")

	assert.Equal(t, "/project/.tether", d.Root())
	assert.Equal(t, "/project/.tether/config.yaml", d.ConfigPath())
	assert.Equal(t, "/project/.tether/local", d.LocalDir())
	assert.Equal(t, "/project/.tether/local/sessions", d.SessionsDir())
	assert.Equal(t, "/project/.tether/local/tether.log", d.LogPath())
	assert.Equal(t, "/project/.tether/.gitignore", d.GitignorePath())
}

func TestDir_Exists(t *testing.T) {
	tmp := t.TempDir()

	d := New(filepath.Join(tmp, "missing"))
	assert.False(t, d.Exists())

	d = New(tmp)
	assert.True(t, d.Exists())
}

func TestEnsureStructure(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, ".tether")
	require.NoError(t, os.Mkdir(root, 0o750))

	d := New(root)
	require.NoError(t, EnsureStructure(d))

	// sessions/ (and therefore local/) should exist.
	info, err := os.Stat(d.SessionsDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// .gitignore should exist with correct content.
	data, err := os.ReadFile(d.GitignorePath())
	require.NoError(t, err)
	assert.Equal(t, "local/\n", string(data))
}

func TestEnsureStructure_Idempotent(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, ".tether")
	require.NoError(t, os.Mkdir(root, 0o750))

	d := New(root)
	require.NoError(t, EnsureStructure(d))

	// Write custom content to .gitignore.
	custom := "local/\ncustom-entry\n"
	require.NoError(t, os.WriteFile(d.GitignorePath(), []byte(custom), 0o600))

	// Second call should NOT overwrite the custom .gitignore.
	require.NoError(t, EnsureStructure(d))

	data, err := os.ReadFile(d.GitignorePath())
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestBootstrap(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, ".tether")

	d := New(root)
	require.NoError(t, Bootstrap(d, []byte("providers: {}\n")))

	assert.True(t, d.Exists())

	info, err := os.Stat(d.SessionsDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(d.GitignorePath())
	require.NoError(t, err)

	data, err := os.ReadFile(d.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "providers: {}\n", string(data))
}

func TestBootstrap_DoesNotOverwrite(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, ".tether")

	d := New(root)
	require.NoError(t, Bootstrap(d, []byte("first: true\n")))

	// Second bootstrap with different content should not overwrite.
	require.NoError(t, Bootstrap(d, []byte("second: true\n")))

	data, err := os.ReadFile(d.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "first: true\n", string(data))
}
