//go:build linux

// Package procattr configures spawned agent processes so they cannot
// outlive the client that owns them.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set places the child in its own process group and requests SIGTERM on
// parent death. The dedicated group lets the driver signal the agent
// together with any helpers the agent forked.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
