//go:build !windows

package pipeline

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// childDefaultSignals start with their default disposition in every child,
// whatever the shell itself inherited.
var childDefaultSignals = []os.Signal{
	unix.SIGINT,
	unix.SIGQUIT,
	unix.SIGTSTP,
	unix.SIGTTIN,
	unix.SIGTTOU,
}

// configureChild puts the child in a new process group whose id is its pid.
func configureChild(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// startChild starts cmd while childDefaultSignals are caught. The Go runtime
// resets caught signals to SIG_DFL between fork and exec, an ignored signal
// would stay ignored in the new program.
func startChild(cmd *exec.Cmd) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, childDefaultSignals...)
	defer signal.Stop(ch)

	return cmd.Start()
}
