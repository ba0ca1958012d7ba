package core

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/josephlewis42/grsh/core/config"
	"github.com/josephlewis42/grsh/core/pipeline"
	"github.com/josephlewis42/grsh/core/vars"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testShell struct {
	*Shell
	dir        string
	stdoutPath string
	stderrPath string
}

func (ts *testShell) Out() string {
	out, _ := os.ReadFile(ts.stdoutPath)
	return string(out)
}

func (ts *testShell) Err() string {
	out, _ := os.ReadFile(ts.stderrPath)
	return string(out)
}

// ResetOutput truncates the captured streams.
func (ts *testShell) ResetOutput(t *testing.T) {
	t.Helper()
	for _, f := range []*os.File{ts.Stdout, ts.Stderr} {
		require.NoError(t, f.Truncate(0))
		_, err := f.Seek(0, 0)
		require.NoError(t, err)
	}
}

func newTestShell(t *testing.T) *testShell {
	t.Helper()
	color.NoColor = true

	dir := t.TempDir()
	stdout, err := os.Create(filepath.Join(dir, "stdout"))
	require.NoError(t, err)
	stderr, err := os.Create(filepath.Join(dir, "stderr"))
	require.NoError(t, err)
	t.Cleanup(func() {
		stdout.Close()
		stderr.Close()
	})

	s := NewShell(config.Default(), nil, stdout, stderr)
	t.Cleanup(func() { s.Executor.KillAll() })

	return &testShell{
		Shell:      s,
		dir:        dir,
		stdoutPath: stdout.Name(),
		stderrPath: stderr.Name(),
	}
}

func skipWithoutJobControl(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("job control requires POSIX process groups")
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)
}

func TestHelp(t *testing.T) {
	ts := newTestShell(t)

	assert.Equal(t, pipeline.StatusSuccess, ts.RunLine("help"))
	newGoldie(t).Assert(t, "help", []byte(ts.Out()))
}

func TestHelp_Builtin(t *testing.T) {
	ts := newTestShell(t)

	assert.Equal(t, pipeline.StatusSuccess, ts.RunLine("help jobs"))
	assert.Contains(t, ts.Out(), "usage: jobs [-l]")

	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("help nope"))
	assert.Contains(t, ts.Err(), "grsh: help: no help topics match `nope'")
}

func TestJobs(t *testing.T) {
	ts := newTestShell(t)
	ts.Jobs.Add(4242, "vim notes.txt")
	ts.Jobs.Add(31337, "sleep 100 | cat")

	g := newGoldie(t)

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("jobs"))
	g.Assert(t, "jobs", []byte(ts.Out()))

	ts.ResetOutput(t)
	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("jobs -l"))
	g.Assert(t, "jobs-long", []byte(ts.Out()))

	// These pids aren't ours, forget them before cleanup kills anything.
	ts.Jobs.Clear()
}

func TestJobs_BadFlag(t *testing.T) {
	ts := newTestShell(t)

	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("jobs -z"))
	assert.Contains(t, ts.Err(), "usage: jobs [-l]")
	assert.Equal(t, "1", ts.Vars.Getenv(vars.ExitStatus))
}

func TestRunLine_SkipsBlankAndComments(t *testing.T) {
	ts := newTestShell(t)

	for _, line := range []string{"", "   ", "# printf nope", "  # indented"} {
		assert.Equal(t, pipeline.StatusSuccess, ts.RunLine(line))
	}
	assert.Empty(t, ts.Out())
}

func TestRunLine_ExitStatusVariable(t *testing.T) {
	skipWithoutJobControl(t)
	ts := newTestShell(t)

	ts.RunLine("false")
	assert.Equal(t, "1", ts.Vars.Getenv(vars.ExitStatus))
	ts.RunLine("printf '%s,' $?")

	ts.RunLine("true")
	assert.Equal(t, "0", ts.Vars.Getenv(vars.ExitStatus))
	ts.RunLine("printf '%s' $?")

	assert.Equal(t, "1,0", ts.Out())
	assert.Equal(t, 0, ts.ExitCode())
}

func TestRunLine_SyntaxError(t *testing.T) {
	ts := newTestShell(t)

	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("true && && true"))
	assert.Contains(t, ts.Err(), "grsh: syntax error")
	assert.Equal(t, "1", ts.Vars.Getenv(vars.ExitStatus))
}

func TestRunLine_BuiltinsInAndList(t *testing.T) {
	skipWithoutJobControl(t)
	ts := newTestShell(t)

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(wd) })

	target, err := filepath.EvalSymlinks(ts.dir)
	require.NoError(t, err)

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("cd "+target+" && pwd && printf done"))
	assert.Equal(t, target+"\ndone", ts.Out())
	assert.Equal(t, target, ts.Vars.Getenv(EnvPWD))
	assert.Equal(t, wd, ts.Vars.Getenv(EnvOldPWD))
}

func TestCd_Errors(t *testing.T) {
	ts := newTestShell(t)

	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("cd a b"))
	assert.Contains(t, ts.Err(), "grsh: cd: too many arguments")

	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("cd "+filepath.Join(ts.dir, "missing")))
}

func TestAlias(t *testing.T) {
	skipWithoutJobControl(t)
	ts := newTestShell(t)

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("alias greet='printf hi'"))
	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("greet"))
	assert.Equal(t, "hi", ts.Out())

	ts.ResetOutput(t)
	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("alias greet"))
	assert.Equal(t, "alias greet='printf hi'\n", ts.Out())

	ts.ResetOutput(t)
	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("alias"))
	assert.Equal(t, "alias greet='printf hi'\nalias la='ls -A'\nalias ll='ls -l'\n", ts.Out())

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("unalias greet"))
	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("unalias greet"))
	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("alias greet"))

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("unalias -a"))
	assert.Empty(t, ts.Aliases.List())
}

func TestAlias_ToBuiltin(t *testing.T) {
	ts := newTestShell(t)
	ts.Aliases.Set("bye", "exit 7")

	ts.RunLine("bye")
	assert.True(t, ts.Quit)
	assert.Equal(t, 7, ts.ExitCode())
}

func TestSetenvAndUnset(t *testing.T) {
	skipWithoutJobControl(t)
	ts := newTestShell(t)
	t.Cleanup(func() { os.Unsetenv("GRSH_TEST_VAR") })

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("setenv GRSH_TEST_VAR hello"))
	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("printenv GRSH_TEST_VAR"))
	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("set GRSH_TEST_VAR=world"))
	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("printf '%s' $GRSH_TEST_VAR"))
	assert.Equal(t, "hello\nworld", ts.Out())

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("unset GRSH_TEST_VAR"))
	_, ok := os.LookupEnv("GRSH_TEST_VAR")
	assert.False(t, ok)

	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("setenv =oops"))
}

func TestTypeAndWhich(t *testing.T) {
	skipWithoutJobControl(t)
	ts := newTestShell(t)

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("type cd ll sh"))
	lines := strings.Split(strings.TrimSpace(ts.Out()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "cd is a shell builtin", lines[0])
	assert.Equal(t, "ll is aliased to `ls -l'", lines[1])
	assert.Regexp(t, `^sh is /.*/sh$`, lines[2])

	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("type grsh-no-such-command-xyz"))
	assert.Contains(t, ts.Err(), "grsh: type: grsh-no-such-command-xyz: not found")

	ts.ResetOutput(t)
	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("which sh"))
	assert.Regexp(t, `^/.*/sh\n$`, ts.Out())
	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("which grsh-no-such-command-xyz"))
}

func TestExec(t *testing.T) {
	ts := newTestShell(t)

	assert.Equal(t, pipeline.StatusSuccess, ts.RunLine("exec"))

	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("exec grsh-no-such-command-xyz --flag"))
	assert.Contains(t, ts.Err(), "grsh: exec: grsh-no-such-command-xyz: command not found")
	assert.Equal(t, "1", ts.Vars.Getenv(vars.ExitStatus))
	assert.False(t, ts.Quit)

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("help exec"))
	assert.Contains(t, ts.Out(), "usage: exec PROGRAM [ARG...]")
}

func TestUnsetenv(t *testing.T) {
	ts := newTestShell(t)
	t.Cleanup(func() { os.Unsetenv("GRSH_TEST_VAR") })

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("setenv GRSH_TEST_VAR hello"))
	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("unsetenv GRSH_TEST_VAR"))

	_, ok := os.LookupEnv("GRSH_TEST_VAR")
	assert.False(t, ok)
	assert.Empty(t, ts.Vars.Getenv("GRSH_TEST_VAR"))
}

func TestHistory(t *testing.T) {
	ts := newTestShell(t)
	ts.history = []string{"ls", "cd /tmp"}

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("history"))
	assert.Equal(t, "    1  ls\n    2  cd /tmp\n", ts.Out())

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("history -c"))
	assert.Empty(t, ts.history)
}

func TestFg_NoJob(t *testing.T) {
	ts := newTestShell(t)

	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("fg"))
	assert.Contains(t, ts.Err(), "grsh: fg: job not found")

	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("fg 3"))
	assert.Equal(t, "1", ts.Vars.Getenv(vars.ExitStatus))
}

func TestStopFgAndZap(t *testing.T) {
	skipWithoutJobControl(t)
	ts := newTestShell(t)

	ts.RunLine("true")
	line := "sh -c 'kill -STOP $$; exit 3'"
	require.Equal(t, pipeline.StatusStopped, ts.RunLine(line))
	assert.Equal(t, "0", ts.Vars.Getenv(vars.ExitStatus), "a stop leaves $? alone")
	require.Equal(t, 1, ts.Jobs.Len())

	ts.ResetOutput(t)
	require.Equal(t, pipeline.StatusFailure, ts.RunLine("fg %1"))
	assert.Equal(t, line+"\n", ts.Out())
	assert.Equal(t, "1", ts.Vars.Getenv(vars.ExitStatus))
	assert.Equal(t, 0, ts.Jobs.Len())

	require.Equal(t, pipeline.StatusStopped, ts.RunLine("sh -c 'kill -STOP $$'"))
	require.Equal(t, pipeline.StatusStopped, ts.RunLine("sh -c 'kill -STOP $$'"))

	ts.ResetOutput(t)
	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("zap"))
	assert.Equal(t, 0, ts.Jobs.Len())
	assert.Equal(t,
		"[1]  Killed    sh -c 'kill -STOP $$'\n[2]  Killed    sh -c 'kill -STOP $$'\n",
		ts.Out())
}

func TestExit_WarnsAboutStoppedJobs(t *testing.T) {
	skipWithoutJobControl(t)
	ts := newTestShell(t)

	require.Equal(t, pipeline.StatusStopped, ts.RunLine("sh -c 'kill -STOP $$'"))

	ts.RunLine("exit")
	assert.False(t, ts.Quit)
	assert.Contains(t, ts.Err(), "There are stopped jobs.")

	ts.RunLine("quit")
	assert.True(t, ts.Quit)
}

func TestRunScript(t *testing.T) {
	skipWithoutJobControl(t)
	ts := newTestShell(t)

	script := strings.Join([]string{
		"# a comment",
		"printf one",
		"",
		"printf two",
		"exit",
		"printf never",
	}, "\n")
	require.NoError(t, ts.RunScript(strings.NewReader(script)))
	assert.Equal(t, "onetwo", ts.Out())
	assert.True(t, ts.Quit)
}

func TestSource(t *testing.T) {
	skipWithoutJobControl(t)
	ts := newTestShell(t)

	path := filepath.Join(ts.dir, "script")
	require.NoError(t, os.WriteFile(path, []byte("alias hey='printf hey'\nhey\n"), 0644))

	require.Equal(t, pipeline.StatusSuccess, ts.RunLine("source "+path))
	assert.Equal(t, "hey", ts.Out())

	assert.Equal(t, pipeline.StatusFailure, ts.RunLine("source "+filepath.Join(ts.dir, "missing")))
}

func TestNewShell_StructuredSinksFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.StructuredSinks = []config.StructuredSink{
		{Suffix: ".up", Filters: [][]string{{"tr", "a-z", "A-Z"}}},
	}

	s := NewShell(cfg, nil, nil, nil)
	assert.Equal(t, []pipeline.StructuredFormat{
		{Suffix: ".up", Filters: [][]string{{"tr", "a-z", "A-Z"}}},
	}, s.Executor.Formats)
}

func TestPrompt(t *testing.T) {
	ts := newTestShell(t)

	wd, err := os.Getwd()
	require.NoError(t, err)
	host, err := os.Hostname()
	require.NoError(t, err)

	ts.Vars.Setenv(EnvUser, "alice")
	ts.Vars.Setenv(EnvHome, wd)

	want := "alice@" + host + ":~$ "
	if os.Geteuid() == 0 {
		want = "alice@" + host + ":~# "
	}
	assert.Equal(t, want, ts.prompt())
}
