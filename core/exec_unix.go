//go:build !windows

package core

import (
	"os"

	"golang.org/x/sys/unix"
)

// replaceProcess runs path in place of the shell process. It only returns if
// the exec failed.
func replaceProcess(path string, argv []string) error {
	return unix.Exec(path, argv, os.Environ())
}
