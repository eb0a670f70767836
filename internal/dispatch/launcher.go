package dispatch

import (
	"fmt"
	"os/exec"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/mattjoyce/runapp/internal/dispatch Launcher,Recorder

// Launcher starts a target process without waiting for it.
type Launcher interface {
	Launch(target string, args []string) (pid int, err error)
}

// ExecLauncher starts targets with os/exec. The child inherits the handler's
// environment and working directory; its stdio is discarded.
type ExecLauncher struct{}

// Launch starts target with args and releases the process handle.
func (ExecLauncher) Launch(target string, args []string) (int, error) {
	cmd := exec.Command(target, args...)
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start process: %w", err)
	}

	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}
