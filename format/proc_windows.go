//go:build windows

package format

import (
	"os/exec"
	"strconv"
)

// killTreeOnCancel kills the process and all of its descendants on cancellation.
func killTreeOnCancel(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}

		//nolint:gosec
		kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
		if err := kill.Run(); err != nil {
			return cmd.Process.Kill() //nolint:wrapcheck
		}

		return nil
	}
}
