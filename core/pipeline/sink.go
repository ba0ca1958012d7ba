package pipeline

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/josephlewis42/grsh/core/shell"
)

// Sink decides where a stage's output goes.
type Sink interface {
	// Attach prepares the streams for one stage. It is called immediately
	// before the stage is started.
	Attach(e *Executor) (*Attachment, error)
}

// Attachment holds the streams handed to a stage's process.
type Attachment struct {
	Stdout *os.File
	Stderr *os.File

	// Next is the read end of a pipe that becomes the next stage's stdin.
	Next *os.File

	// CloseAfterStart are the parent's copies of descriptors given to the
	// child; they're closed once the stage has started.
	CloseAfterStart []io.Closer

	// Helpers are the pids of filter processes serving the stage.
	Helpers []int
}

func (a *Attachment) closeAll() {
	for _, c := range a.CloseAfterStart {
		c.Close()
	}
	a.CloseAfterStart = nil
}

// InheritSink gives the stage the shell's own stdout and stderr.
type InheritSink struct{}

func (InheritSink) Attach(e *Executor) (*Attachment, error) {
	return &Attachment{Stdout: e.Stdout, Stderr: e.Stderr}, nil
}

// PipeSink connects the stage's stdout to the next stage. Stderr is
// inherited.
type PipeSink struct{}

func (PipeSink) Attach(e *Executor) (*Attachment, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	return &Attachment{
		Stdout:          w,
		Stderr:          e.Stderr,
		Next:            r,
		CloseAfterStart: []io.Closer{w},
	}, nil
}

// FileSink writes both stdout and stderr of the stage to a file.
type FileSink struct {
	Path   string
	Append bool
}

func (s FileSink) Attach(e *Executor) (*Attachment, error) {
	op := ">"
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if s.Append {
		op = ">>"
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(s.Path, flags, 0644)
	if err != nil {
		e.report(&RedirectError{Op: op, Path: s.Path, Err: err})
		return InheritSink{}.Attach(e)
	}

	return &Attachment{
		Stdout:          f,
		Stderr:          f,
		CloseAfterStart: []io.Closer{f},
	}, nil
}

// StructuredSink sends the stage's stdout through a chain of filter
// commands, the last of which writes the file at Path.
type StructuredSink struct {
	Path    string
	Filters [][]string
}

func (s StructuredSink) Attach(e *Executor) (*Attachment, error) {
	target, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		e.report(&RedirectError{Op: ">", Path: s.Path, Err: err})
		return InheritSink{}.Attach(e)
	}

	if len(s.Filters) == 0 {
		return &Attachment{
			Stdout:          target,
			Stderr:          e.Stderr,
			CloseAfterStart: []io.Closer{target},
		}, nil
	}

	in, stageOut, err := os.Pipe()
	if err != nil {
		target.Close()
		return nil, fmt.Errorf("pipe: %w", err)
	}

	var helpers []int
	fail := func(err error) (*Attachment, error) {
		stageOut.Close()
		target.Close()
		abort(helpers)
		return nil, err
	}

	for i, filter := range s.Filters {
		out := target
		var next *os.File
		if i < len(s.Filters)-1 {
			next, out, err = os.Pipe()
			if err != nil {
				in.Close()
				return fail(fmt.Errorf("pipe: %w", err))
			}
		}

		pid, err := e.start(filter, in, out, e.Stderr)
		in.Close()
		if out != target {
			out.Close()
		}
		if err != nil {
			if next != nil {
				next.Close()
			}
			return fail(commandError(filter[0], err))
		}

		helpers = append(helpers, pid)
		in = next
	}
	target.Close()

	return &Attachment{
		Stdout:          stageOut,
		Stderr:          e.Stderr,
		CloseAfterStart: []io.Closer{stageOut},
		Helpers:         helpers,
	}, nil
}

// StructuredFormat binds an output file suffix to a filter chain.
type StructuredFormat struct {
	Suffix  string
	Filters [][]string
}

// DefaultFormats returns the structured formats used when none are
// configured.
func DefaultFormats() []StructuredFormat {
	return []StructuredFormat{
		{
			Suffix: ".pdf",
			Filters: [][]string{
				{"enscript", "-p", "-", "-q"},
				{"ps2pdf", "-", "-"},
			},
		},
	}
}

// SelectSink picks the sink for a stage from its position and output
// redirection.
func (e *Executor) SelectSink(stage shell.Stage) Sink {
	if !stage.Last {
		return PipeSink{}
	}
	if stage.Output == nil {
		return InheritSink{}
	}

	lower := strings.ToLower(stage.Output.Path)
	for _, format := range e.Formats {
		if format.Suffix != "" && strings.HasSuffix(lower, strings.ToLower(format.Suffix)) {
			return StructuredSink{Path: stage.Output.Path, Filters: format.Filters}
		}
	}
	return FileSink{Path: stage.Output.Path, Append: stage.Output.Append}
}
