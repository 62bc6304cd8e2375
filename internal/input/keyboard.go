package input

import "vkeyboard/internal/keys"

// Poster posts a single key event
type Poster interface {
	Post(code keys.Code, mod keys.Modifier, keyDown bool) error
}

// Keyboard composes key events into actions
type Keyboard struct {
	poster Poster
}

// NewKeyboard creates a keyboard driving poster
func NewKeyboard(poster Poster) *Keyboard {
	return &Keyboard{poster: poster}
}

// Press performs action for code. For Cycle the key-up is only posted after
// a successful key-down; a failed key-down is returned as is.
func (k *Keyboard) Press(code keys.Code, mod keys.Modifier, action Action) error {
	switch action {
	case Up:
		return k.poster.Post(code, mod, false)
	case Down:
		return k.poster.Post(code, mod, true)
	default:
		if err := k.poster.Post(code, mod, true); err != nil {
			return err
		}
		return k.poster.Post(code, mod, false)
	}
}
