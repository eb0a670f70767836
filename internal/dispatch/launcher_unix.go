//go:build unix

package dispatch

import "syscall"

// detachedProcAttr starts the child in its own session so it outlives the
// terminal (if any) the handler was started from.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
