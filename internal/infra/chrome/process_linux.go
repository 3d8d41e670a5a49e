//go:build linux

package chrome

import (
	"errors"
	"os/exec"
	"syscall"

	"textpdf/internal/infra/logging"
)

// isolate puts the browser in its own process group. Pdeathsig fires when
// the OS thread that forked the browser exits, not when this process does,
// so it is only a backstop; teardown relies on killProcessGroup.
func isolate(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.SysProcAttr.Pdeathsig = syscall.SIGKILL
}

// killProcessGroup reaps helpers that outlived the browser's main process.
func killProcessGroup(pid int) {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if err != nil && !errors.Is(err, syscall.ESRCH) {
		logging.Warn("Failed to kill browser process group", "pid", pid, "error", err)
	}
}
