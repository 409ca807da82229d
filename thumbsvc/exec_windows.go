//go:build windows

package thumbsvc

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// applyHiddenWindow keeps ffmpeg from opening a console window.
func applyHiddenWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}
