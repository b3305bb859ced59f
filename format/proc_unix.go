//go:build !windows

package format

import (
	"os/exec"
	"syscall"
)

// killTreeOnCancel starts the process in its own group and kills the whole group on cancellation, taking along any
// helpers the formatter spawned, e.g. `sh -c prettier` forking node.
func killTreeOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}

		// negative pid targets the process group
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
