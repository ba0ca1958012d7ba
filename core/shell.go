// Package core ties the grsh components together into an interactive shell.
package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/anmitsu/go-shlex"
	"github.com/fatih/color"
	"github.com/josephlewis42/grsh/core/alias"
	"github.com/josephlewis42/grsh/core/config"
	"github.com/josephlewis42/grsh/core/jobs"
	"github.com/josephlewis42/grsh/core/pipeline"
	"github.com/josephlewis42/grsh/core/shell"
	"github.com/josephlewis42/grsh/core/vars"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

const (
	EnvHome   = vars.EnvHome
	EnvPWD    = "PWD"
	EnvOldPWD = "OLDPWD"
	EnvPath   = "PATH"
	EnvUser   = "USER"

	DefaultPrompt = `\u@\h:\w\$ `
)

var (
	promptUserColor = color.New(color.FgGreen, color.Bold)
	promptDirColor  = color.New(color.FgBlue, color.Bold)
)

// Shell reads command lines and runs them as builtins or pipelines.
type Shell struct {
	Config   *config.Configuration
	Executor *pipeline.Executor
	Aliases  *alias.Table
	Jobs     *jobs.Table
	Vars     *vars.MapEnv
	Readline *readline.Instance
	Logger   *log.Logger
	Fs       afero.Fs

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	history []string

	// Set to true to quit the shell
	Quit bool

	exitCode   int
	exitWarned bool
}

// NewShell creates a shell using the given configuration and streams.
func NewShell(cfg *config.Configuration, stdin, stdout, stderr *os.File) *Shell {
	if cfg == nil {
		cfg = config.Default()
	}

	aliases := alias.NewTable(cfg.Aliases)
	jobTable := &jobs.Table{}

	executor := pipeline.New(jobTable, aliases)
	executor.Stdin = stdin
	executor.Stdout = stdout
	executor.Stderr = stderr
	if len(cfg.StructuredSinks) > 0 {
		executor.Formats = nil
		for _, sink := range cfg.StructuredSinks {
			executor.Formats = append(executor.Formats, pipeline.StructuredFormat{
				Suffix:  sink.Suffix,
				Filters: sink.Filters,
			})
		}
	}

	s := &Shell{
		Config:   cfg,
		Executor: executor,
		Aliases:  aliases,
		Jobs:     jobTable,
		Vars:     vars.NewMapEnv(),
		Logger:   log.New(io.Discard, "", 0),
		Fs:       afero.NewOsFs(),
		Stdin:    stdin,
		Stdout:   stdout,
		Stderr:   stderr,
	}
	s.Vars.SetExitStatus(true)
	executor.Fs = s.Fs
	executor.Logger = s.Logger

	return s
}

// SetLogger sends internal diagnostics of the shell and its executor to
// logger.
func (s *Shell) SetLogger(logger *log.Logger) {
	s.Logger = logger
	s.Executor.Logger = logger
}

// ExitCode is the status the shell process should exit with.
func (s *Shell) ExitCode() int {
	if s.exitCode != 0 {
		return s.exitCode
	}
	code, err := strconv.Atoi(s.Vars.Getenv(vars.ExitStatus))
	if err != nil {
		return 1
	}
	return code
}

// RunLine expands and runs a single command line. Lines that are empty or
// start with '#' are skipped.
func (s *Shell) RunLine(line string) pipeline.Status {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return pipeline.StatusSuccess
	}

	line = s.Vars.ExpandLine(line)

	commands, err := shell.SplitAnd(line)
	if err != nil {
		s.errorf("%v", err)
		s.Vars.SetExitStatus(false)
		return pipeline.StatusFailure
	}

	status := pipeline.StatusSuccess
	for _, command := range commands {
		status = s.runCommand(command)
		if status != pipeline.StatusSuccess {
			break
		}
	}

	// A stopped pipeline leaves $? alone.
	if status != pipeline.StatusStopped {
		s.Vars.SetExitStatus(status == pipeline.StatusSuccess)
	}
	return status
}

// runCommand runs one entry of an AND list. A single command without
// redirections whose name is a builtin runs in the shell, everything else is
// handed to the executor.
func (s *Shell) runCommand(command string) pipeline.Status {
	if args, builtin, ok := s.lookupBuiltin(command); ok {
		switch ret := builtin.Main(s, args); {
		case ret == builtinStopped:
			return pipeline.StatusStopped
		case ret == 0:
			return pipeline.StatusSuccess
		default:
			return pipeline.StatusFailure
		}
	}

	return s.Executor.Run(command)
}

func (s *Shell) lookupBuiltin(command string) ([]string, ShellBuiltin, bool) {
	stages, err := shell.Parse(command)
	if err != nil || len(stages) != 1 {
		return nil, nil, false
	}
	if stage := stages[0]; stage.Input != "" || stage.Output != nil {
		return nil, nil, false
	}

	args, err := shlex.Split(stages[0].Text, true)
	if err != nil || len(args) == 0 {
		return nil, nil, false
	}

	if replacement, ok := s.Aliases.Resolve(args[0]); ok {
		expanded, err := shlex.Split(replacement, true)
		if err != nil || len(expanded) == 0 {
			return nil, nil, false
		}
		args = append(expanded, args[1:]...)
	}

	builtin, ok := AllBuiltins[args[0]]
	return args, builtin, ok
}

// RunScript runs every line read from r until the input ends or the shell
// quits.
func (s *Shell) RunScript(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() && !s.Quit {
		s.RunLine(scanner.Text())
	}
	return scanner.Err()
}

// RunFile runs the lines of the named file.
func (s *Shell) RunFile(path string) error {
	data, err := afero.ReadFile(s.Fs, path)
	if err != nil {
		return err
	}
	return s.RunScript(bytes.NewReader(data))
}

// RunRC runs the configured startup file, if there is one.
func (s *Shell) RunRC() error {
	data, err := s.Config.ReadRCFile()
	if err != nil {
		return err
	}
	return s.RunScript(bytes.NewReader(data))
}

// RunInteractive reads lines from the terminal until EOF or exit.
func (s *Shell) RunInteractive() error {
	input := newPromptInput(s.Stdin)
	defer input.Close()

	cfg := &readline.Config{
		HistoryFile:  s.Config.HistoryPath(),
		HistoryLimit: s.Config.HistoryLimit,
		Stdin:        readline.NewCancelableStdin(input),
		Stdout:       s.Stdout,
		Stderr:       s.Stderr,
		FuncGetWidth: func() int {
			width, _, err := term.GetSize(int(s.Stdout.Fd()))
			if err != nil {
				return 80
			}
			return width
		},
		FuncIsTerminal: func() bool {
			return term.IsTerminal(int(s.Stdin.Fd())) && term.IsTerminal(int(s.Stdout.Fd()))
		},
	}

	if err := cfg.Init(); err != nil {
		return err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return err
	}
	defer rl.Close()
	s.Readline = rl

	if err := s.RunRC(); err != nil {
		s.errorf("%s: %v", s.Config.RCFile, err)
	}

	for !s.Quit {
		rl.SetPrompt(s.prompt())
		input.Open()
		line, err := rl.Readline()

		switch {
		case err == io.EOF:
			return nil // Input closed, quit.

		case err == readline.ErrInterrupt:
			// Interrupt clears line.
			continue

		case err != nil:
			s.Logger.Printf("Error readline: %v", err)
			continue

		case len(strings.TrimSpace(line)) == 0:
			continue // empty line

		default:
			s.history = append(s.history, line)
			s.RunLine(line)
		}
	}
	return nil
}

func (s *Shell) userName() string {
	if name := s.Vars.Getenv(EnvUser); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func (s *Shell) prompt() string {
	prompt := s.Config.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	host, _ := os.Hostname()
	prompt = strings.ReplaceAll(prompt, `\u`, promptUserColor.Sprint(s.userName()))
	prompt = strings.ReplaceAll(prompt, `\h`, promptUserColor.Sprint(host))

	pwd, _ := os.Getwd()
	home := s.Vars.Getenv(EnvHome)
	if home != "" && strings.HasPrefix(pwd, home) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}
	prompt = strings.ReplaceAll(prompt, `\w`, promptDirColor.Sprint(pwd))

	if os.Geteuid() == 0 {
		prompt = strings.ReplaceAll(prompt, `\$`, "#")
	} else {
		prompt = strings.ReplaceAll(prompt, `\$`, "$")
	}

	return prompt
}

// errorf reports a user facing error on the shell's stderr.
func (s *Shell) errorf(format string, a ...interface{}) {
	fmt.Fprintf(s.Stderr, "grsh: "+format+"\n", a...)
}
