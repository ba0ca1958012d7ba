package tty

import "os"

// CatchJobSignals is a no-op, Windows has no job control signals.
func CatchJobSignals() (stop func()) {
	return func() {}
}

// Controller is always inert on Windows.
type Controller struct{}

func New(f *os.File) *Controller { return &Controller{} }

func (c *Controller) Active() bool { return false }

func (c *Controller) ShellPgid() int { return 0 }

func (c *Controller) Acquire() error { return nil }

func (c *Controller) Foreground(pgid int) error { return nil }

func (c *Controller) Reclaim() error { return nil }

func (c *Controller) Current() int { return 0 }
