package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/josephlewis42/grsh/core/jobs"
	"github.com/josephlewis42/grsh/core/shell"
	"github.com/spf13/afero"
)

// Status is the result of running a command line.
type Status int

const (
	// StatusSuccess means every pipeline ran and its last stage exited 0.
	StatusSuccess Status = iota
	// StatusFailure covers non-zero exits, signals, and errors.
	StatusFailure
	// StatusStopped means the foreground pipeline was suspended and is now a
	// job.
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusStopped:
		return "stopped"
	default:
		return "failure"
	}
}

// Terminal hands the controlling terminal to process groups.
type Terminal interface {
	Foreground(pgid int) error
	Reclaim() error
}

type nopTerminal struct{}

func (nopTerminal) Foreground(int) error { return nil }
func (nopTerminal) Reclaim() error       { return nil }

var suspendedColor = color.New(color.FgYellow)

// Executor runs command lines as pipelines of OS processes.
type Executor struct {
	// Stdin, Stdout and Stderr are the shell's own streams. Nil streams are
	// connected to the null device in children.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Fs is used for pathname expansion.
	Fs afero.Fs
	// Aliases resolves the first word of each stage.
	Aliases AliasResolver
	// Jobs receives pipelines that stop in the foreground.
	Jobs *jobs.Table
	// Terminal is given the last stage of each foreground pipeline.
	Terminal Terminal
	// Formats lists the suffixes that are written through filter chains.
	Formats []StructuredFormat
	// Logger receives internal diagnostics.
	Logger *log.Logger

	// pending holds pids of processes that outlived a stopped pipeline and
	// haven't been collected yet.
	pending []int
}

// New creates an executor attached to the process's standard streams.
func New(jobTable *jobs.Table, aliases AliasResolver) *Executor {
	if jobTable == nil {
		jobTable = &jobs.Table{}
	}
	if aliases == nil {
		aliases = noAliases{}
	}
	return &Executor{
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Fs:       afero.NewOsFs(),
		Aliases:  aliases,
		Jobs:     jobTable,
		Terminal: nopTerminal{},
		Formats:  DefaultFormats(),
		Logger:   log.New(io.Discard, "", 0),
	}
}

// Execute runs line and reports whether it succeeded.
func (e *Executor) Execute(line string) bool {
	return e.Run(line) == StatusSuccess
}

// Run executes every pipeline of an AND list in order, stopping at the first
// one that doesn't succeed. Empty lines succeed.
func (e *Executor) Run(line string) Status {
	e.reapPending()

	commands, err := shell.SplitAnd(line)
	if err != nil {
		e.report(err)
		return StatusFailure
	}

	status := StatusSuccess
	for _, command := range commands {
		status = e.runPipeline(command)
		if status != StatusSuccess {
			break
		}
	}
	return status
}

// step is the plan for a single stage, fixed before any process starts.
type step struct {
	stage shell.Stage
	args  []string
	sink  Sink
}

func (e *Executor) plan(stages []shell.Stage) []step {
	steps := make([]step, 0, len(stages))
	for _, stage := range stages {
		tokens := resolveAlias(e.Aliases, stage.Tokens())
		steps = append(steps, step{
			stage: stage,
			args:  expandGlobs(e.Fs, tokens),
			sink:  e.SelectSink(stage),
		})
	}
	return steps
}

func (e *Executor) runPipeline(command string) Status {
	stages, err := shell.Parse(command)
	if err != nil {
		e.report(err)
		return StatusFailure
	}
	if len(stages) == 0 {
		return StatusSuccess
	}

	var (
		pids    []int
		helpers []int
		prev    *os.File
	)

	for _, st := range e.plan(stages) {
		stdin, closeIn := e.stageInput(st.stage, prev)

		attachment, err := st.sink.Attach(e)
		if err != nil {
			closeIn()
			e.report(err)
			abort(append(pids, helpers...))
			return StatusFailure
		}

		pid, err := e.start(st.args, stdin, attachment.Stdout, attachment.Stderr)
		closeIn()
		attachment.closeAll()
		helpers = append(helpers, attachment.Helpers...)
		if err != nil {
			if attachment.Next != nil {
				attachment.Next.Close()
			}
			e.report(commandError(programName(st.args), err))
			abort(append(pids, helpers...))
			return StatusFailure
		}

		pids = append(pids, pid)
		prev = attachment.Next
	}

	last := pids[len(pids)-1]
	result := e.foreground(last)

	if result.stopped {
		job := e.Jobs.Add(last, command)
		e.notifySuspended(job)
		e.pending = append(e.pending, pids[:len(pids)-1]...)
		e.pending = append(e.pending, helpers...)
		return StatusStopped
	}

	for _, pid := range pids[:len(pids)-1] {
		collect(pid)
	}

	status := result.status()
	for _, pid := range helpers {
		if r := reap(pid); r.status() != StatusSuccess {
			status = StatusFailure
		}
	}
	return status
}

// stageInput opens the stdin of a stage. The returned func closes the
// parent's copy.
func (e *Executor) stageInput(stage shell.Stage, prev *os.File) (*os.File, func()) {
	closeBoth := func(f *os.File) func() {
		return func() {
			if f != nil {
				f.Close()
			}
			if prev != nil && prev != f {
				prev.Close()
			}
		}
	}

	if stage.Input != "" {
		f, err := os.Open(stage.Input)
		if err != nil {
			e.report(&RedirectError{Op: "<", Path: stage.Input, Err: err})
			return nil, closeBoth(nil)
		}
		return f, closeBoth(f)
	}
	if prev != nil {
		return prev, closeBoth(prev)
	}
	return e.Stdin, func() {}
}

// foreground gives the terminal to pgid, waits for it, and takes the
// terminal back.
func (e *Executor) foreground(pgid int) waitResult {
	if err := e.Terminal.Foreground(pgid); err != nil {
		e.Logger.Printf("foreground %d: %v", pgid, err)
	}

	result := waitForeground(pgid)
	if result.err != nil {
		e.report(fmt.Errorf("wait: %w", result.err))
	}

	if err := e.Terminal.Reclaim(); err != nil {
		e.Logger.Printf("reclaim terminal: %v", err)
	}
	return result
}

// start launches a process in its own process group and returns its pid.
// The process is released; it's collected with the wait functions.
func (e *Executor) start(args []string, stdin, stdout, stderr *os.File) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("empty command")
	}

	cmd := exec.Command(args[0], args[1:]...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	if stdout != nil {
		cmd.Stdout = stdout
	}
	if stderr != nil {
		cmd.Stderr = stderr
	}
	configureChild(cmd)

	if err := startChild(cmd); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		e.Logger.Printf("release %d: %v", pid, err)
	}
	return pid, nil
}

// Resume continues a stopped job in the foreground. The job must already
// have been removed from the table; if it stops again it is added back.
func (e *Executor) Resume(job jobs.Job) Status {
	if err := e.Terminal.Foreground(job.PID); err != nil {
		e.Logger.Printf("foreground %d: %v", job.PID, err)
	}

	if err := continueGroup(job.PID); err != nil {
		e.report(fmt.Errorf("fg: %s: %w", job.Command, err))
		if err := e.Terminal.Reclaim(); err != nil {
			e.Logger.Printf("reclaim terminal: %v", err)
		}
		return StatusFailure
	}

	result := waitForeground(job.PID)
	if result.err != nil {
		e.report(fmt.Errorf("wait: %w", result.err))
	}
	if err := e.Terminal.Reclaim(); err != nil {
		e.Logger.Printf("reclaim terminal: %v", err)
	}

	if result.stopped {
		readded := e.Jobs.Add(job.PID, job.Command)
		e.notifySuspended(readded)
	}
	return result.status()
}

// KillAll sends SIGKILL to every job, collects the ones that received it,
// and empties the table. It returns the jobs that were in the table.
func (e *Executor) KillAll() []jobs.Job {
	all := e.Jobs.List()
	for _, job := range all {
		if err := killGroup(job.PID); err != nil {
			e.Logger.Printf("kill %d: %v", job.PID, err)
			continue
		}
		reap(job.PID)
	}
	e.Jobs.Clear()
	e.reapPending()
	return all
}

// collect waits for an upstream stage after the last stage has finished. A
// stage that stopped, usually on a background terminal read, is killed.
func collect(pid int) waitResult {
	result := waitForeground(pid)
	if result.stopped {
		if err := killGroup(pid); err == nil {
			return reap(pid)
		}
	}
	return result
}

// reapPending collects leftover pipeline stages and drops jobs whose
// process was terminated outside the shell.
func (e *Executor) reapPending() {
	remaining := e.pending[:0]
	for _, pid := range e.pending {
		if !tryReap(pid) {
			remaining = append(remaining, pid)
		}
	}
	e.pending = remaining

	for _, job := range e.Jobs.List() {
		if tryReap(job.PID) {
			e.Logger.Printf("job %d (%d) terminated", job.ID, job.PID)
			e.Jobs.RemoveByPID(job.PID)
		}
	}
}

func (e *Executor) notifySuspended(job jobs.Job) {
	if e.Stdout == nil {
		return
	}
	suspendedColor.Fprintf(e.Stdout, "\n[%d] + %s suspended\n", job.ID, job.Command)
}

// report prints a user facing error on the shell's stderr.
func (e *Executor) report(err error) {
	if e.Stderr == nil {
		return
	}
	fmt.Fprintf(e.Stderr, "grsh: %v\n", err)
}

func programName(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
