//go:build unix

// Package osutils provides OS helpers for the target process.
package osutils

import (
	"errors"
	"math"

	"golang.org/x/sys/unix"
)

// ProcessExists reports whether a process with pid exists. A process owned by
// another user (EPERM) counts as existing. Pids outside the pid_t range never
// exist.
func ProcessExists(pid int) bool {
	if pid <= 0 || pid > math.MaxInt32 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
