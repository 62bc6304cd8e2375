package input

import (
	"fmt"
	"time"

	"vkeyboard/internal/keys"
)

// Injector posts single keyboard events to one process
type Injector struct {
	pid    int
	delay  time.Duration
	source EventSource
	sleep  func(time.Duration)
}

// NewInjector creates an injector for pid using the platform event source.
//
// delay is slept before every event post. The CGEvents API does not document
// a need for it, but without it some events never reach the target. Most
// applications work with ~10ms; some need 50ms or more.
func NewInjector(pid int, delay time.Duration) *Injector {
	return NewInjectorWithSource(pid, delay, NewEventSource(), time.Sleep)
}

// NewInjectorWithSource creates an injector with an explicit event source
// and sleep function
func NewInjectorWithSource(pid int, delay time.Duration, source EventSource, sleep func(time.Duration)) *Injector {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Injector{
		pid:    pid,
		delay:  delay,
		source: source,
		sleep:  sleep,
	}
}

// PID returns the target process id
func (i *Injector) PID() int { return i.pid }

// Delay returns the pause inserted before each post
func (i *Injector) Delay() time.Duration { return i.delay }

// Post sends a single key-down (keyDown=true) or key-up event.
// A nil error does not mean the target received the event.
func (i *Injector) Post(code keys.Code, mod keys.Modifier, keyDown bool) error {
	event, err := i.source.NewKeyEvent(code, keyDown)
	if err != nil {
		return fmt.Errorf("%w: key 0x%02X: %w", ErrInjection, code, err)
	}
	defer event.Release()

	if mod != keys.NoModifier {
		event.SetFlags(mod)
	}

	i.sleep(i.delay)
	event.PostToPid(i.pid)
	return nil
}
