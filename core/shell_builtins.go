package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/josephlewis42/grsh/core/jobs"
	"github.com/josephlewis42/grsh/core/pipeline"
	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

// builtinStopped is returned by builtins that resumed a job which stopped
// again; the exit status is left unchanged.
const builtinStopped = -1

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// BuiltinNames returns the sorted names of all builtins.
func BuiltinNames() []string {
	var names []string
	for k := range AllBuiltins {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// parseOpts parses args with opts, printing usage on error or --help. It
// returns false if the builtin should stop.
func parseOpts(s *Shell, opts *getopt.Set, args []string, usage, description string) (int, bool) {
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.Stdout
		ret := 0
		if err != nil {
			w = s.Stderr
			ret = 2
			fmt.Fprintf(w, "%s: %v\n", args[0], err)
		}
		fmt.Fprintf(w, "usage: %s\n", usage)
		fmt.Fprintln(w, description)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return ret, false
	}
	return 0, true
}

// Alias lists or defines aliases.
func Alias(s *Shell, args []string) int {
	opts := getopt.New()
	if ret, ok := parseOpts(s, opts, args, "alias [NAME[=VALUE]...]", "Define or display aliases."); !ok {
		return ret
	}

	if opts.NArgs() == 0 {
		for _, a := range s.Aliases.List() {
			fmt.Fprintf(s.Stdout, "alias %s='%s'\n", a.Name, a.Value)
		}
		return 0
	}

	ret := 0
	for _, arg := range opts.Args() {
		name, value, isDefinition := strings.Cut(arg, "=")
		switch {
		case name == "":
			s.errorf("alias: `%s': invalid alias name", arg)
			ret = 1
		case isDefinition:
			s.Aliases.Set(name, value)
		default:
			value, ok := s.Aliases.Resolve(name)
			if !ok {
				s.errorf("alias: %s: not found", name)
				ret = 1
				continue
			}
			fmt.Fprintf(s.Stdout, "alias %s='%s'\n", name, value)
		}
	}
	return ret
}

// Unalias removes aliases.
func Unalias(s *Shell, args []string) int {
	opts := getopt.New()
	all := opts.Bool('a', "remove all alias definitions")
	if ret, ok := parseOpts(s, opts, args, "unalias [-a] NAME...", "Remove each NAME from the list of defined aliases."); !ok {
		return ret
	}

	if *all {
		for _, a := range s.Aliases.List() {
			s.Aliases.Remove(a.Name)
		}
		return 0
	}

	ret := 0
	for _, name := range opts.Args() {
		if !s.Aliases.Remove(name) {
			s.errorf("unalias: %s: not found", name)
			ret = 1
		}
	}
	return ret
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) int {
	switch len(args) {
	case 1:
		args = append(args, s.Vars.Getenv(EnvHome))
		fallthrough
	case 2:
		dir := args[1]
		if dir == "-" {
			dir = s.Vars.Getenv(EnvOldPWD)
			if dir == "" {
				s.errorf("%s: OLDPWD not set", args[0])
				return 1
			}
		}

		previous, _ := os.Getwd()
		if err := os.Chdir(dir); err != nil {
			s.errorf("%s: %v", args[0], err)
			return 1
		}
		current, _ := os.Getwd()
		s.exportVar(EnvOldPWD, previous)
		s.exportVar(EnvPWD, current)
	default:
		s.errorf("%s: too many arguments", args[0])
		return 1
	}
	return 0
}

// Pwd prints the working directory.
func Pwd(s *Shell, args []string) int {
	wd, err := os.Getwd()
	if err != nil {
		s.errorf("%s: %v", args[0], err)
		return 1
	}
	fmt.Fprintln(s.Stdout, wd)
	return 0
}

// Exit quits the shell. With stopped jobs the first attempt only warns.
func Exit(s *Shell, args []string) int {
	if s.Jobs.Len() > 0 && !s.exitWarned {
		s.exitWarned = true
		fmt.Fprintln(s.Stderr, "There are stopped jobs.")
		return 1
	}

	if len(args) > 1 {
		code, err := strconv.Atoi(args[1])
		if err != nil {
			s.errorf("%s: %s: numeric argument required", args[0], args[1])
			code = 2
		}
		s.exitCode = code
	}

	s.Quit = true
	return 0
}

// Fg resumes a stopped job in the foreground, the most recent one if no id
// is given.
func Fg(s *Shell, args []string) int {
	opts := getopt.New()
	if ret, ok := parseOpts(s, opts, args, "fg [JOB_ID]", "Move a stopped job to the foreground."); !ok {
		return ret
	}

	var (
		job jobs.Job
		ok  bool
	)
	switch opts.NArgs() {
	case 0:
		job, ok = s.Jobs.PopLast()
	case 1:
		id, err := strconv.Atoi(strings.TrimPrefix(opts.Arg(0), "%"))
		if err == nil {
			job, ok = s.Jobs.PopByID(id)
		}
	default:
		s.errorf("fg: too many arguments")
		return 1
	}

	if !ok {
		s.errorf("fg: job not found")
		return 1
	}

	fmt.Fprintln(s.Stdout, job.Command)
	switch s.Executor.Resume(job) {
	case pipeline.StatusStopped:
		return builtinStopped
	case pipeline.StatusSuccess:
		return 0
	default:
		return 1
	}
}

// Jobs lists stopped jobs.
func Jobs(s *Shell, args []string) int {
	opts := getopt.New()
	long := opts.Bool('l', "list process IDs in addition to the normal information")
	if ret, ok := parseOpts(s, opts, args, "jobs [-l]", "Display status of jobs."); !ok {
		return ret
	}

	for _, job := range s.Jobs.List() {
		if *long {
			fmt.Fprintf(s.Stdout, "[%d]  %-7d %-10s%s\n", job.ID, job.PID, job.Status, job.Command)
		} else {
			fmt.Fprintf(s.Stdout, "[%d]  %-10s%s\n", job.ID, job.Status, job.Command)
		}
	}
	return 0
}

// Zap kills every stopped job.
func Zap(s *Shell, args []string) int {
	for _, job := range s.Executor.KillAll() {
		fmt.Fprintf(s.Stdout, "[%d]  %-10s%s\n", job.ID, "Killed", job.Command)
	}
	return 0
}

// Help lists the builtins, or shows the help of one.
func Help(s *Shell, args []string) int {
	if len(args) > 1 {
		builtin, ok := AllBuiltins[args[1]]
		if !ok {
			s.errorf("help: no help topics match `%s'", args[1])
			return 1
		}
		return builtin.Main(s, []string{args[1], "--help"})
	}

	w := s.Stdout
	fmt.Fprintln(w, "grsh, a job control shell.")
	fmt.Fprintln(w, "These shell commands are defined internally.  Type `help' to see this list.")
	fmt.Fprintln(w, "Type `help name' to find out more about the builtin `name'.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(BuiltinNames(), "\n"))

	return 0
}

func History(s *Shell, args []string) int {
	opts := getopt.New()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	if ret, ok := parseOpts(s, opts, args, "history [-c]", "Display the history list with line numbers."); !ok {
		return ret
	}

	if *clear {
		if s.Readline != nil {
			s.Readline.Operation.ResetHistory()
		}
		s.history = nil
		return 0
	}

	for i, line := range s.history {
		fmt.Fprintf(s.Stdout, "% 5d  %s\n", i+1, line)
	}
	return 0
}

// Setenv sets variables and exports them to launched programs. It accepts
// both NAME VALUE and NAME=VALUE forms.
func Setenv(s *Shell, args []string) int {
	opts := getopt.New()
	if ret, ok := parseOpts(s, opts, args, "setenv [NAME VALUE | NAME=VALUE...]", "Set and export shell variables."); !ok {
		return ret
	}

	rest := opts.Args()
	switch {
	case len(rest) == 0:
		printEnv(s.Stdout, os.Environ())
		return 0
	case len(rest) == 2 && !strings.Contains(rest[0], "="):
		s.exportVar(rest[0], rest[1])
		return 0
	}

	ret := 0
	for _, arg := range rest {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			s.errorf("%s: `%s': not a valid assignment", args[0], arg)
			ret = 1
			continue
		}
		s.exportVar(name, value)
	}
	return ret
}

func printEnv(w io.Writer, environ []string) {
	sorted := append([]string(nil), environ...)
	sort.Strings(sorted)
	for _, kv := range sorted {
		fmt.Fprintln(w, kv)
	}
}

func Unset(s *Shell, args []string) int {
	opts := getopt.New()
	opts.Bool('f', "treat NAME as a function")
	opts.Bool('v', "treat NAME as a variable")
	opts.Bool('n', "treat NAME as a reference")
	if ret, ok := parseOpts(s, opts, args, "unset [-fvn] [NAME...]", "Unset shell values and functions."); !ok {
		return ret
	}

	for _, name := range opts.Args() {
		s.Vars.Unsetenv(name)
		os.Unsetenv(name)
	}
	return 0
}

// Exec replaces the shell with a program. Without arguments it does nothing.
func Exec(s *Shell, args []string) int {
	if len(args) < 2 {
		return 0
	}
	if args[1] == "--help" || args[1] == "-h" {
		fmt.Fprintln(s.Stdout, "usage: exec PROGRAM [ARG...]")
		fmt.Fprintln(s.Stdout, "Replace the shell with a program.")
		return 0
	}

	path, err := pipeline.LookPath(s.Fs, s.Vars.Getenv(EnvPath), args[1])
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = pipeline.ErrCommandNotFound
		}
		s.errorf("exec: %s: %v", args[1], err)
		return 1
	}

	if err := replaceProcess(path, args[1:]); err != nil {
		s.errorf("exec: %s: %v", args[1], err)
	}
	return 1
}

// Source runs the lines of a file in the current shell.
func Source(s *Shell, args []string) int {
	if len(args) < 2 {
		s.errorf("%s: filename argument required", args[0])
		return 2
	}

	if err := s.RunFile(args[1]); err != nil {
		s.errorf("%s: %v", args[0], err)
		return 1
	}
	return s.ExitCode()
}

// Type describes how each name would be interpreted as a command.
func Type(s *Shell, args []string) int {
	ret := 0
	for _, name := range args[1:] {
		if value, ok := s.Aliases.Resolve(name); ok {
			fmt.Fprintf(s.Stdout, "%s is aliased to `%s'\n", name, value)
			continue
		}
		if _, ok := AllBuiltins[name]; ok {
			fmt.Fprintf(s.Stdout, "%s is a shell builtin\n", name)
			continue
		}
		if path, err := pipeline.LookPath(s.Fs, s.Vars.Getenv(EnvPath), name); err == nil {
			fmt.Fprintf(s.Stdout, "%s is %s\n", name, path)
			continue
		}
		s.errorf("%s: %s: not found", args[0], name)
		ret = 1
	}
	return ret
}

// Which prints the path of each named program.
func Which(s *Shell, args []string) int {
	opts := getopt.New()
	if ret, ok := parseOpts(s, opts, args, "which NAME...", "Locate a command on the PATH."); !ok {
		return ret
	}

	ret := 0
	for _, name := range opts.Args() {
		path, err := pipeline.LookPath(s.Fs, s.Vars.Getenv(EnvPath), name)
		if err != nil {
			ret = 1
			continue
		}
		fmt.Fprintln(s.Stdout, path)
	}
	return ret
}

// exportVar sets a shell variable and the process environment launched
// programs inherit.
func (s *Shell) exportVar(name, value string) {
	s.Vars.Setenv(name, value)
	if err := os.Setenv(name, value); err != nil {
		s.Logger.Printf("setenv %s: %v", name, err)
	}
}

func init() {
	AllBuiltins["alias"] = ShellBuiltinFunc(Alias)
	AllBuiltins["unalias"] = ShellBuiltinFunc(Unalias)
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["pwd"] = ShellBuiltinFunc(Pwd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["quit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["fg"] = ShellBuiltinFunc(Fg)
	AllBuiltins["jobs"] = ShellBuiltinFunc(Jobs)
	AllBuiltins["zap"] = ShellBuiltinFunc(Zap)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["set"] = ShellBuiltinFunc(Setenv)
	AllBuiltins["setenv"] = ShellBuiltinFunc(Setenv)
	AllBuiltins["unset"] = ShellBuiltinFunc(Unset)
	AllBuiltins["unsetenv"] = ShellBuiltinFunc(Unset)
	AllBuiltins["exec"] = ShellBuiltinFunc(Exec)
	AllBuiltins["source"] = ShellBuiltinFunc(Source)
	AllBuiltins["type"] = ShellBuiltinFunc(Type)
	AllBuiltins["which"] = ShellBuiltinFunc(Which)
}
