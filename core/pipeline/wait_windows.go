package pipeline

import "errors"

var errNoJobControl = errors.New("job control is not supported on windows")

type waitResult struct {
	stopped  bool
	signaled bool
	code     int
	err      error
}

func (r waitResult) status() Status {
	return StatusFailure
}

func waitForeground(pid int) waitResult { return waitResult{err: errNoJobControl} }

func reap(pid int) waitResult { return waitResult{err: errNoJobControl} }

func tryReap(pid int) bool { return true }

func abort(pids []int) {}

func continueGroup(pid int) error { return errNoJobControl }

func killGroup(pid int) error { return errNoJobControl }
