package pipeline

import (
	"io/fs"
	"os/exec"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookPath(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/usr/bin/subdir", 0755))
	require.NoError(t, afero.WriteFile(fsys, "/bin/ls", nil, 0755))
	require.NoError(t, afero.WriteFile(fsys, "/usr/bin/ls", nil, 0755))
	require.NoError(t, afero.WriteFile(fsys, "/usr/bin/notes", nil, 0644))

	path, err := LookPath(fsys, "/usr/bin:/bin", "ls")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/ls", path, "first PATH entry wins")

	_, err = LookPath(fsys, "/usr/bin:/bin", "notes")
	assert.ErrorIs(t, err, exec.ErrNotFound, "non-executable files are skipped")

	_, err = LookPath(fsys, "/usr/bin", "subdir")
	assert.ErrorIs(t, err, exec.ErrNotFound, "directories are skipped")

	path, err = LookPath(fsys, "", "/bin/ls")
	require.NoError(t, err)
	assert.Equal(t, "/bin/ls", path)

	_, err = LookPath(fsys, "", "/usr/bin/notes")
	assert.ErrorIs(t, err, fs.ErrPermission)

	_, err = LookPath(fsys, "/usr/bin", "missing")
	assert.ErrorIs(t, err, exec.ErrNotFound)
}
