//go:build !windows

// Package tty controls which process group owns the shell's controlling
// terminal.
//
// Handing the terminal back to the shell is done while the shell is a
// background process, which would normally raise SIGTTOU. On Linux the
// signal is blocked on the calling thread for the duration of the hand-off;
// on other platforms the hand-off is best effort.
package tty

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// JobControlSignals are the signals a job control shell must not be stopped
// or killed by while it owns the terminal.
var JobControlSignals = []os.Signal{
	unix.SIGINT,
	unix.SIGQUIT,
	unix.SIGTSTP,
	unix.SIGTTIN,
	unix.SIGTTOU,
}

// CatchJobSignals installs handlers that swallow JobControlSignals.
//
// The signals are caught rather than ignored: the Go runtime resets caught
// signals to their default disposition in a child between fork and exec,
// whereas ignored signals stay ignored across exec. Every spawned program
// therefore starts with the default behavior for ^C and ^Z.
func CatchJobSignals() (stop func()) {
	ch := make(chan os.Signal, 8)
	done := make(chan struct{})
	signal.Notify(ch, JobControlSignals...)

	go func() {
		for {
			select {
			case <-ch:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// Controller hands the terminal between the shell and its jobs. A
// Controller for a file that isn't a terminal is inert: hand-offs are
// recorded but nothing is sent to the OS.
type Controller struct {
	fd     int
	active bool

	mu        sync.Mutex
	shellPgid int
	current   int
}

// New creates a controller for the terminal behind f, usually os.Stdin.
func New(f *os.File) *Controller {
	fd := int(f.Fd())
	pgid := unix.Getpgrp()
	return &Controller{
		fd:        fd,
		active:    term.IsTerminal(fd),
		shellPgid: pgid,
		current:   pgid,
	}
}

// Active reports whether the controller manages a real terminal.
func (c *Controller) Active() bool {
	return c != nil && c.active
}

// ShellPgid returns the shell's own process group.
func (c *Controller) ShellPgid() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shellPgid
}

// Acquire moves the shell into its own process group and makes that group
// the terminal's foreground group.
func (c *Controller) Acquire() error {
	if !c.Active() {
		return nil
	}

	pid := os.Getpid()
	if unix.Getpgrp() != pid {
		// EPERM means the shell is a session leader, which already leads its
		// own group.
		if err := unix.Setpgid(0, 0); err != nil && !errors.Is(err, unix.EPERM) {
			return fmt.Errorf("setpgid: %w", err)
		}
	}

	c.mu.Lock()
	c.shellPgid = unix.Getpgrp()
	c.mu.Unlock()

	return c.Reclaim()
}

// Foreground makes pgid the terminal's foreground process group.
func (c *Controller) Foreground(pgid int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		if err := setForeground(c.fd, pgid); err != nil {
			return fmt.Errorf("hand terminal to group %d: %w", pgid, err)
		}
	}
	c.current = pgid
	return nil
}

// Reclaim makes the shell's group the foreground process group again.
func (c *Controller) Reclaim() error {
	return c.Foreground(c.ShellPgid())
}

// Current returns the process group holding the terminal.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		if pgid, err := unix.IoctlGetInt(c.fd, unix.TIOCGPGRP); err == nil {
			return pgid
		}
	}
	return c.current
}

func setForeground(fd, pgid int) error {
	return withSIGTTOUBlocked(func() error {
		for {
			err := unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgid)
			if !errors.Is(err, unix.EINTR) {
				return err
			}
		}
	})
}
