//go:build windows

package console

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
)

// startPTY is unsupported: Windows servers are driven over RCON.
func startPTY(*exec.Cmd) (*os.File, error) {
	return nil, errors.New("pseudo-terminal console is not supported on windows")
}

// terminateProcess uses taskkill to terminate the process tree.
func terminateProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return exec.Command("taskkill", "/T", "/PID", strconv.Itoa(cmd.Process.Pid)).Run()
}

// killProcess forcefully kills the process tree.
func killProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid)).Run()
}
