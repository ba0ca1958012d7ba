//go:build !linux && !windows

package tty

func withSIGTTOUBlocked(fn func() error) error {
	return fn()
}
