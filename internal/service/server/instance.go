package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"
)

// linuxCommLen is how many bytes of the executable name Linux keeps in
// /proc/<pid>/stat, which is where go-ps reads it from.
const linuxCommLen = 15

// ErrAlreadyRunning is returned when another server process is found.
var ErrAlreadyRunning = errors.New("another server instance is running")

// processLister returns the running processes.
type processLister func() ([]ps.Process, error)

// pathResolver returns the full executable path of a process.
type pathResolver func(pid int) (string, error)

// ensureSingleInstance fails when a process with the same executable name as
// this one is running. Two servers would each keep their own cooldown and
// double every notification.
func ensureSingleInstance(list processLister, resolve pathResolver, executable string, selfPID int) error {
	processList, err := list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		if process.Pid() == selfPID {
			continue
		}

		if !sameExecutable(process, resolve, executable) {
			continue
		}

		return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, process.Pid())
	}

	return nil
}

// sameExecutable matches a process by name. A name cut to linuxCommLen is
// confirmed through the full path when resolve can read it.
func sameExecutable(process ps.Process, resolve pathResolver, executable string) bool {
	name := process.Executable()
	if name == executable {
		return true
	}

	if len(executable) <= linuxCommLen || name != executable[:linuxCommLen] {
		return false
	}

	if resolve == nil {
		return true
	}

	path, err := resolve(process.Pid())
	if err != nil {
		// Another user's process; the short name is all there is.
		return true
	}

	return filepath.Base(strings.TrimSuffix(path, " (deleted)")) == executable
}

// procExecutablePath reads /proc/<pid>/exe. Elsewhere it returns nil and the
// short name decides.
func procExecutablePath() pathResolver {
	if runtime.GOOS != "linux" {
		return nil
	}

	return func(pid int) (string, error) {
		return os.Readlink(filepath.Join("/proc", strconv.Itoa(pid), "exe"))
	}
}

// currentExecutable returns the base name of the running binary.
func currentExecutable() (string, error) {
	path, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}

	return filepath.Base(path), nil
}
