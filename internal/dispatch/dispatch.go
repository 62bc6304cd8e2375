// Package dispatch validates parsed key requests and hands them to the
// keyboard, independent of the transport that received them.
package dispatch

import (
	"errors"
	"fmt"
	"log"

	"vkeyboard/internal/input"
	"vkeyboard/internal/keys"
	"vkeyboard/internal/policy"
)

// Category classifies a rejected request
type Category string

const (
	OK                 Category = ""
	MissingField       Category = "MissingField"
	InvalidKey         Category = "InvalidKey"
	InvalidModifier    Category = "InvalidModifier"
	InvalidAction      Category = "InvalidAction"
	KeyNotAllowed      Category = "KeyNotAllowed"
	ModifierNotAllowed Category = "ModifierNotAllowed"
	InjectionFailed    Category = "InjectionFailed"
)

// Request is a key request as received from a client
type Request struct {
	Key      string `json:"key"`
	Modifier string `json:"modifier,omitempty"`
	Action   string `json:"action,omitempty"` // "up", "down" or "cycle"; empty means cycle
}

// Result is the outcome of handling a request
type Result struct {
	Category Category
	Err      error

	// Event is the press that was performed; set only on success
	Event Event
}

// OK reports whether the request succeeded
func (r Result) OK() bool { return r.Category == OK }

// Error returns the error message, or "" on success
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Handler handles one parsed request
type Handler interface {
	Handle(req Request) Result
}

// Presser performs a keyboard action
type Presser interface {
	Press(code keys.Code, mod keys.Modifier, action input.Action) error
}

// Event describes a key press that was delivered to the keyboard
type Event struct {
	Key      string
	Code     keys.Code
	Modifier keys.Modifier
	Action   input.Action
}

// Dispatcher resolves, authorizes and presses requested keys
type Dispatcher struct {
	keyboard Presser
	policy   *policy.Policy

	// OnPress, if set, is called after every successful press
	OnPress func(Event)
}

// New creates a dispatcher
func New(keyboard Presser, p *policy.Policy) *Dispatcher {
	return &Dispatcher{
		keyboard: keyboard,
		policy:   p,
	}
}

// Handle implements Handler
func (d *Dispatcher) Handle(req Request) Result {
	if req.Key == "" {
		return reject(MissingField, errors.New("missing required key"))
	}

	code, ok := keys.ResolveKeyCode(req.Key)
	if !ok {
		return reject(InvalidKey, fmt.Errorf("invalid key: %s", req.Key))
	}

	mod := keys.NoModifier
	if req.Modifier != "" {
		if mod, ok = keys.ResolveModifier(req.Modifier); !ok {
			return reject(InvalidModifier, fmt.Errorf("invalid modifier: %s", req.Modifier))
		}
	}

	action := input.Cycle
	if req.Action != "" {
		a, err := input.ParseAction(req.Action)
		if err != nil {
			return reject(InvalidAction, err)
		}
		action = a
	}

	if err := d.policy.Authorize(code, mod); err != nil {
		if errors.Is(err, policy.ErrModifierNotAllowed) {
			return reject(ModifierNotAllowed, err)
		}
		return reject(KeyNotAllowed, err)
	}

	log.Printf("Dispatch: Pressing key %s (0x%02X) modifier=%s action=%s", keys.KeyName(code), code, mod, action)
	if err := d.keyboard.Press(code, mod, action); err != nil {
		log.Printf("Dispatch: Failed to press key 0x%02X: %v", code, err)
		return reject(InjectionFailed, fmt.Errorf("failed to press key %s: %w", req.Key, err))
	}

	ev := Event{
		Key:      keys.KeyName(code),
		Code:     code,
		Modifier: mod,
		Action:   action,
	}
	if d.OnPress != nil {
		d.OnPress(ev)
	}
	return Result{Event: ev}
}

func reject(c Category, err error) Result {
	return Result{Category: c, Err: err}
}
