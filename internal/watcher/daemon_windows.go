//go:build windows

package watcher

import (
	"os"
	"syscall"
)

const detachedProcess = 0x00000008

func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: detachedProcess | syscall.CREATE_NEW_PROCESS_GROUP}
}

// terminate kills p; Windows has no SIGTERM for console-less processes.
func terminate(p *os.Process) error {
	return p.Kill()
}

// processAlive relies on FindProcess opening a handle, which fails for
// exited processes.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	p.Release()
	return true
}
