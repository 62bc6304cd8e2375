// Package policy holds the allow-list that restricts which keys and
// modifier combinations a request may trigger.
package policy

import (
	"errors"
	"fmt"
	"sort"

	"vkeyboard/internal/keys"
)

var (
	// ErrKeyNotAllowed is returned when a key is not on the allow-list
	ErrKeyNotAllowed = errors.New("key not allowed")

	// ErrModifierNotAllowed is returned when a modifier is not permitted for a key
	ErrModifierNotAllowed = errors.New("modifier not allowed")
)

// Policy is an immutable allow-list. It is safe for concurrent use.
type Policy struct {
	allowed   map[keys.Code]struct{}
	modifiers map[keys.Code]map[keys.Modifier]struct{}
}

// Builder accumulates allow-list entries before a Policy is created
type Builder struct {
	allowed      map[keys.Code]struct{}
	modifiers    map[keys.Code]map[keys.Modifier]struct{}
	unrestricted map[keys.Code]struct{}
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{
		allowed:      make(map[keys.Code]struct{}),
		modifiers:    make(map[keys.Code]map[keys.Modifier]struct{}),
		unrestricted: make(map[keys.Code]struct{}),
	}
}

// AllowAny permits code with any modifier
func (b *Builder) AllowAny(code keys.Code) *Builder {
	b.allowed[code] = struct{}{}
	b.unrestricted[code] = struct{}{}
	delete(b.modifiers, code)
	return b
}

// Allow permits code with the listed modifiers. An empty list permits the
// key only without a modifier. Repeated calls for one key add to its set.
func (b *Builder) Allow(code keys.Code, mods ...keys.Modifier) *Builder {
	b.allowed[code] = struct{}{}
	if _, ok := b.unrestricted[code]; ok {
		return b
	}
	set, ok := b.modifiers[code]
	if !ok {
		set = make(map[keys.Modifier]struct{}, len(mods))
		b.modifiers[code] = set
	}
	for _, m := range mods {
		set[m] = struct{}{}
	}
	return b
}

// Build returns the policy. The builder must not be used afterwards.
func (b *Builder) Build() *Policy {
	return &Policy{
		allowed:   b.allowed,
		modifiers: b.modifiers,
	}
}

// Authorize reports whether code may be pressed with mod.
// keys.NoModifier is always accepted for an allowed key.
func (p *Policy) Authorize(code keys.Code, mod keys.Modifier) error {
	if _, ok := p.allowed[code]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotAllowed, describe(code))
	}

	if mod == keys.NoModifier {
		return nil
	}

	set, ok := p.modifiers[code]
	if !ok {
		return nil
	}
	if _, ok := set[mod]; !ok {
		return fmt.Errorf("%w: %s with %s", ErrModifierNotAllowed, describe(code), mod)
	}
	return nil
}

// Keys returns the allowed key codes in ascending order
func (p *Policy) Keys() []keys.Code {
	codes := make([]keys.Code, 0, len(p.allowed))
	for c := range p.allowed {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// AllowedModifiers returns the modifiers recorded for code. restricted is
// false when the key accepts any modifier (or is not allowed at all).
func (p *Policy) AllowedModifiers(code keys.Code) (mods []keys.Modifier, restricted bool) {
	set, ok := p.modifiers[code]
	if !ok {
		return nil, false
	}
	mods = make([]keys.Modifier, 0, len(set))
	for m := range set {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i] < mods[j] })
	return mods, true
}

func describe(code keys.Code) string {
	if name := keys.KeyName(code); name != "" {
		return fmt.Sprintf("%q (0x%02X)", name, code)
	}
	return fmt.Sprintf("0x%02X", code)
}
