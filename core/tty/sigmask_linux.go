package tty

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// withSIGTTOUBlocked runs fn on a locked OS thread with SIGTTOU blocked so a
// background shell may change the terminal's foreground group.
func withSIGTTOUBlocked(fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var set, old unix.Sigset_t
	sigsetAdd(&set, unix.SIGTTOU)
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &set, &old); err != nil {
		return err
	}
	defer unix.PthreadSigmask(unix.SIG_SETMASK, &old, nil)

	return fn()
}

func sigsetAdd(set *unix.Sigset_t, sig unix.Signal) {
	bits := uint(unsafe.Sizeof(set.Val[0])) * 8
	n := uint(sig) - 1
	set.Val[n/bits] |= 1 << (n % bits)
}
