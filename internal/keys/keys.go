// Package keys maps symbolic key and modifier names to macOS CoreGraphics
// key codes and event flags.
package keys

import (
	"sort"
	"strings"
)

// Code is a CGKeyCode: a physical key in the HID key-code space.
// Reference: Carbon.framework HIToolbox/Events.h
type Code uint16

// asciiLetters maps 'a'..'z' to their key codes
var asciiLetters = [26]Code{
	// a    b     c     d     e     f     g     h     i     j     k     l     m
	0x00, 0x0B, 0x08, 0x02, 0x0E, 0x03, 0x05, 0x04, 0x22, 0x26, 0x28, 0x25, 0x2E,
	// n    o     p     q     r     s     t     u     v     w     x     y     z
	0x2D, 0x1F, 0x23, 0x0C, 0x0F, 0x01, 0x11, 0x20, 0x09, 0x0D, 0x07, 0x10, 0x06,
}

// asciiDigits maps '0'..'9' to their key codes
var asciiDigits = [10]Code{
	// 0    1     2     3     4     5     6     7     8     9
	0x1D, 0x12, 0x13, 0x14, 0x15, 0x17, 0x16, 0x1A, 0x1C, 0x19,
}

var asciiPunctuation = map[byte]Code{
	' ':  0x31,
	'=':  0x18,
	'-':  0x1B,
	']':  0x1E,
	'[':  0x21,
	'/':  0x2C,
	';':  0x29,
	',':  0x2B,
	'.':  0x2F,
	'`':  0x32,
	'"':  0x27,
	'\\': 0x2A,
}

// namedKeys holds the control keys addressable by name
var namedKeys = map[string]Code{
	"return":        0x24,
	"enter":         0x24,
	"tab":           0x30,
	"space":         0x31,
	"delete":        0x33,
	"escape":        0x35,
	"capslock":      0x39,
	"volumeup":      0x48,
	"volumedown":    0x49,
	"mute":          0x4A,
	"help":          0x72,
	"home":          0x73,
	"pageup":        0x74,
	"forwarddelete": 0x75,
	"end":           0x77,
	"pagedown":      0x79,
	"leftarrow":     0x7B,
	"rightarrow":    0x7C,
	"downarrow":     0x7D,
	"uparrow":       0x7E,
}

// codeNames is the reverse table. Where several names share a code the
// preferred one wins: named keys over characters ("space" over " "),
// "return" over "enter".
var codeNames = buildCodeNames()

func buildCodeNames() map[Code]string {
	names := make(map[Code]string, 64)
	for i, c := range asciiLetters {
		names[c] = string(rune('a' + i))
	}
	for i, c := range asciiDigits {
		names[c] = string(rune('0' + i))
	}
	for ch, c := range asciiPunctuation {
		names[c] = string(ch)
	}
	for name, c := range namedKeys {
		names[c] = name
	}
	names[0x24] = "return"
	return names
}

// keycodeFromChar resolves a single ASCII character
func keycodeFromChar(c byte) (Code, bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return asciiLetters[c-'a'], true
	case c >= '0' && c <= '9':
		return asciiDigits[c-'0'], true
	}
	code, ok := asciiPunctuation[c]
	return code, ok
}

// ResolveKeyCode returns the key code for name. Lookup is case-insensitive.
// A single character resolves through the ASCII table; longer names resolve
// through the named control keys. ok is false for anything unmapped.
func ResolveKeyCode(name string) (code Code, ok bool) {
	name = strings.ToLower(name)
	if len(name) == 1 {
		if code, ok = keycodeFromChar(name[0]); ok {
			return code, true
		}
	}
	code, ok = namedKeys[name]
	return code, ok
}

// KeyName returns the canonical name of code, or "" if the code is not in
// the table.
func KeyName(code Code) string {
	return codeNames[code]
}

// Names returns every name ResolveKeyCode accepts, sorted.
func Names() []string {
	names := make([]string, 0, len(asciiLetters)+len(asciiDigits)+len(asciiPunctuation)+len(namedKeys))
	for i := range asciiLetters {
		names = append(names, string(rune('a'+i)))
	}
	for i := range asciiDigits {
		names = append(names, string(rune('0'+i)))
	}
	for ch := range asciiPunctuation {
		names = append(names, string(ch))
	}
	for name := range namedKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
