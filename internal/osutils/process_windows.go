//go:build windows

// Package osutils provides OS helpers for the target process.
package osutils

import (
	"errors"
	"math"

	"golang.org/x/sys/windows"
)

// ProcessExists reports whether a process with pid exists
func ProcessExists(pid int) bool {
	if pid <= 0 || pid > math.MaxInt32 {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		// Access denied means the process is there
		return errors.Is(err, windows.ERROR_ACCESS_DENIED)
	}
	windows.CloseHandle(h)
	return true
}
