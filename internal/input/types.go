// Package input posts synthetic keyboard events to a target process.
package input

import (
	"errors"
	"fmt"
	"strings"

	"vkeyboard/internal/keys"
)

var (
	// ErrInjection is returned when an event source or event cannot be created
	ErrInjection = errors.New("keyboard event injection failed")

	// ErrUnsupportedPlatform is returned by the event source on platforms
	// without an injection backend
	ErrUnsupportedPlatform = errors.New("keyboard injection not supported on this platform")

	// ErrInvalidAction is returned by ParseAction for unknown action names
	ErrInvalidAction = errors.New("invalid action")
)

// Action is a keyboard action to perform
type Action int

const (
	Cycle Action = iota // Press then release
	Down                // Press
	Up                  // Release
)

// ParseAction parses "up", "down" or "cycle" (case-insensitive)
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(s) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "cycle":
		return Cycle, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

func (a Action) String() string {
	switch a {
	case Up:
		return "up"
	case Down:
		return "down"
	case Cycle:
		return "cycle"
	default:
		return "unknown"
	}
}

// EventSource creates platform keyboard events
type EventSource interface {
	// NewKeyEvent creates a keyboard event for code in the given key state.
	// The caller must Release the returned event.
	NewKeyEvent(code keys.Code, keyDown bool) (KeyEvent, error)
}

// KeyEvent is a single platform keyboard event
type KeyEvent interface {
	SetFlags(mod keys.Modifier)
	// PostToPid delivers the event to the process. Delivery is not confirmed:
	// a missing or inaccessible process silently drops the event.
	PostToPid(pid int)
	Release()
}
