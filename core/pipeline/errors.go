package pipeline

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrCommandNotFound is the error resulting if a stage's program could not be
// found on the PATH.
var ErrCommandNotFound = errors.New("command not found")

// RedirectError records a redirection target that couldn't be opened.
type RedirectError struct {
	Op   string
	Path string
	Err  error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RedirectError) Unwrap() error {
	return e.Err
}

func commandError(program string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, program)
	}
	return fmt.Errorf("%s: %w", program, err)
}
