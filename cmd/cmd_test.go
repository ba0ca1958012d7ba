package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/grsh/core"
	"github.com/josephlewis42/grsh/core/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, string) {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	return stdout.String(), stderr.String()
}

func TestBuiltinsCmd(t *testing.T) {
	out, _ := runRoot(t, "builtins")
	assert.Equal(t, strings.Join(core.BuiltinNames(), "\n")+"\n", out)
	assert.Contains(t, out, "fg\n")
}

func TestVersionCmd(t *testing.T) {
	out, _ := runRoot(t, "version")
	assert.Equal(t, "grsh version dev\n", out)
}

func TestInitCmd(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "grsh")

	_, logs := runRoot(t, "init", "--dir", dir)
	assert.Contains(t, logs, "Writing default configuration")

	cfg, err := config.Load(afero.NewOsFs(), dir)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Prompt, cfg.Prompt)
}
