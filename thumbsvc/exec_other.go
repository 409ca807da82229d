//go:build !windows

package thumbsvc

import "os/exec"

func applyHiddenWindow(*exec.Cmd) {}
