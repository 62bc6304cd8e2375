//go:build !unix && !windows

package osutils

import "math"

// ProcessExists cannot probe processes on this platform and assumes the
// target is running
func ProcessExists(pid int) bool {
	return pid > 0 && pid <= math.MaxInt32
}
