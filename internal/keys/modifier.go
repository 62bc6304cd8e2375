package keys

import (
	"sort"
	"strings"
)

// Modifier is a CGEventFlags mask for a modifier key held with the event.
// Only one modifier is carried per event.
type Modifier uint64

const (
	NoModifier Modifier = 0
	Shift      Modifier = 0x00020000 // kCGEventFlagMaskShift
	Control    Modifier = 0x00040000 // kCGEventFlagMaskControl
	Alternate  Modifier = 0x00080000 // kCGEventFlagMaskAlternate
	Command    Modifier = 0x00100000 // kCGEventFlagMaskCommand
)

var modifierNames = map[string]Modifier{
	"shift":     Shift,
	"control":   Control,
	"command":   Command,
	"option":    Alternate,
	"alternate": Alternate,
	"alt":       Alternate,
}

// ModifierNames returns every accepted modifier name, synonyms included, sorted
func ModifierNames() []string {
	names := make([]string, 0, len(modifierNames))
	for name := range modifierNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Modifiers returns the distinct modifier flags in ascending order
func Modifiers() []Modifier {
	return []Modifier{Shift, Control, Alternate, Command}
}

// ResolveModifier returns the modifier flag for name (case-insensitive).
// "option", "alternate" and "alt" are synonyms.
func ResolveModifier(name string) (Modifier, bool) {
	m, ok := modifierNames[strings.ToLower(name)]
	return m, ok
}

// String returns the canonical modifier name
func (m Modifier) String() string {
	switch m {
	case NoModifier:
		return "none"
	case Shift:
		return "shift"
	case Control:
		return "control"
	case Alternate:
		return "option"
	case Command:
		return "command"
	default:
		return "unknown"
	}
}
