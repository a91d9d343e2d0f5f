//go:build !linux

// Package procattr configures spawned agent processes so they cannot
// outlive the client that owns them.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set places the child in its own process group. Pdeathsig does not exist
// off Linux, so cleanup relies on group-wide signalling from the driver.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
