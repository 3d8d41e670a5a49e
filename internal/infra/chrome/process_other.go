//go:build !linux

package chrome

import (
	"errors"
	"os"
	"os/exec"

	"textpdf/internal/infra/logging"
)

func isolate(*exec.Cmd) {}

func killProcessGroup(pid int) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logging.Debug("Browser process kill after teardown", "pid", pid, "error", err)
	}
}
