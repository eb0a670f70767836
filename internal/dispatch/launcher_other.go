//go:build !unix && !windows

package dispatch

import "syscall"

func detachedProcAttr() *syscall.SysProcAttr {
	return nil
}
