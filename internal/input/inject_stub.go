//go:build !darwin

package input

import (
	"vkeyboard/internal/keys"
)

// Stub implementation for non-macOS platforms

type stubEventSource struct{}

// NewEventSource returns an event source that always fails
func NewEventSource() EventSource {
	return stubEventSource{}
}

func (stubEventSource) NewKeyEvent(code keys.Code, keyDown bool) (KeyEvent, error) {
	return nil, ErrUnsupportedPlatform
}
