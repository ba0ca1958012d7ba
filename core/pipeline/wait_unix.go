//go:build !windows

package pipeline

import (
	"errors"

	"golang.org/x/sys/unix"
)

// waitResult is the outcome of waiting on a single process.
type waitResult struct {
	stopped  bool
	signaled bool
	code     int
	err      error
}

func (r waitResult) status() Status {
	switch {
	case r.err != nil:
		return StatusFailure
	case r.stopped:
		return StatusStopped
	case r.signaled || r.code != 0:
		return StatusFailure
	}
	return StatusSuccess
}

func toResult(ws unix.WaitStatus) waitResult {
	switch {
	case ws.Stopped():
		return waitResult{stopped: true}
	case ws.Signaled():
		return waitResult{signaled: true, code: 128 + int(ws.Signal())}
	default:
		return waitResult{code: ws.ExitStatus()}
	}
}

// waitForeground blocks until pid exits, is killed or stops.
func waitForeground(pid int) waitResult {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return waitResult{err: err}
		}
		return toResult(ws)
	}
}

// reap blocks until pid terminates.
func reap(pid int) waitResult {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return waitResult{err: err}
		}
		return toResult(ws)
	}
}

// tryReap collects pid if it has terminated and reports whether it's gone.
func tryReap(pid int) bool {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			// ECHILD: already collected or never ours.
			return true
		case wpid == 0:
			return false
		default:
			return ws.Exited() || ws.Signaled()
		}
	}
}

// signalGroup sends sig to the process group led by pid.
func signalGroup(pid int, sig unix.Signal) error {
	return unix.Kill(-pid, sig)
}

// abort kills and reaps processes that were started for a pipeline that
// couldn't be completed.
func abort(pids []int) {
	for _, pid := range pids {
		if err := signalGroup(pid, unix.SIGKILL); err == nil {
			reap(pid)
		}
	}
}

func continueGroup(pid int) error {
	return signalGroup(pid, unix.SIGCONT)
}

func killGroup(pid int) error {
	return signalGroup(pid, unix.SIGKILL)
}
