// Package keycombo parses and validates global hotkey strings such as
// "ctrl+shift+q". It has no state and performs no I/O, so the settings
// layer, the hotkey manager and the dialogs can all share one set of rules.
package keycombo

import (
	"fmt"
	"strings"
	"unicode"
)

// Modifiers is the fixed modifier vocabulary, in canonical order.
var Modifiers = []string{"ctrl", "shift", "alt", "win"}

var modifierSet = map[string]bool{
	"ctrl":  true,
	"shift": true,
	"alt":   true,
	"win":   true,
}

// namedKeys are the non-character keys a hotkey may end with.
var namedKeys = map[string]bool{
	"space":     true,
	"tab":       true,
	"enter":     true,
	"backspace": true,
	"delete":    true,
	"insert":    true,
	"home":      true,
	"end":       true,
	"pageup":    true,
	"pagedown":  true,
	"up":        true,
	"down":      true,
	"left":      true,
	"right":     true,
}

// punctuationKeys are aliases for symbol keys. The literal symbols can't be
// used because "+" is the separator and the others vary by keyboard layout.
var punctuationKeys = map[string]bool{
	"comma":        true,
	"period":       true,
	"minus":        true,
	"equal":        true,
	"slash":        true,
	"backslash":    true,
	"semicolon":    true,
	"quote":        true,
	"backquote":    true,
	"bracketleft":  true,
	"bracketright": true,
}

// blockedKeys can never be bound, whatever the modifiers.
var blockedKeys = map[string]bool{
	"escape":      true,
	"esc":         true,
	"pause":       true,
	"break":       true,
	"capslock":    true,
	"numlock":     true,
	"scrolllock":  true,
	"printscreen": true,
}

// reserved is the single canonical list of combinations that belong to the
// OS or to the clipboard itself. Built-in action hotkeys are not listed here;
// they live in the settings document and are checked by config.Store.
var reserved = map[string]string{
	"ctrl+c":  "copy",
	"ctrl+v":  "paste",
	"ctrl+x":  "cut",
	"ctrl+z":  "undo",
	"ctrl+y":  "redo",
	"ctrl+a":  "select all",
	"alt+f4":  "close window",
	"alt+tab": "switch window",
	"win+l":   "lock screen",
}

// suggestionKeys are tried in order by SuggestFreeHotkey.
var suggestionKeys = []string{
	"j", "k", "l", "u", "i", "o", "p", "y", "h", "n", "m",
	"1", "2", "3", "4", "5", "6", "7", "8", "9", "0",
}

// Normalize lowercases s and removes all whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Parse splits a hotkey into its modifiers and final key. Modifiers keep the
// order they first appear in; repeats are collapsed. An empty string yields
// (nil, "").
func Parse(s string) ([]string, string) {
	n := Normalize(s)
	if n == "" {
		return nil, ""
	}
	parts := strings.Split(n, "+")
	key := parts[len(parts)-1]

	var mods []string
	seen := make(map[string]bool, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		if seen[p] {
			continue
		}
		seen[p] = true
		mods = append(mods, p)
	}
	return mods, key
}

// IsKey reports whether key is a recognized final key.
func IsKey(key string) bool {
	if len(key) == 1 {
		c := key[0]
		return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
	}
	if isFunctionKey(key) {
		return true
	}
	return namedKeys[key] || punctuationKeys[key]
}

func isFunctionKey(key string) bool {
	if len(key) < 2 || key[0] != 'f' {
		return false
	}
	var n int
	if _, err := fmt.Sscanf(key[1:], "%d", &n); err != nil {
		return false
	}
	return n >= 1 && n <= 12 && fmt.Sprintf("f%d", n) == key
}

// Reserved reports whether the hotkey is one of the reserved combinations
// and, if so, what it is reserved for.
func Reserved(s string) (string, bool) {
	why, ok := reserved[Canonical(s)]
	return why, ok
}

// IsValid reports whether s is an acceptable global hotkey.
func IsValid(s string, allowReserved bool) bool {
	ok, _ := ValidateWithReason(s, allowReserved)
	return ok
}

// ValidateWithReason is IsValid plus a human readable explanation of the
// first rule the hotkey breaks. The reason is empty for valid hotkeys.
func ValidateWithReason(s string, allowReserved bool) (bool, string) {
	n := Normalize(s)
	if n == "" {
		return false, "hotkey is empty"
	}

	parts := strings.Split(n, "+")
	key := parts[len(parts)-1]
	rawMods := parts[:len(parts)-1]

	if len(rawMods) == 0 {
		return false, fmt.Sprintf("'%s' has no modifier; use at least one of ctrl, shift, alt, win", n)
	}
	seen := make(map[string]bool, len(rawMods))
	for _, m := range rawMods {
		if !modifierSet[m] {
			if m == "" {
				return false, fmt.Sprintf("'%s' has an empty modifier", n)
			}
			return false, fmt.Sprintf("'%s' is not a modifier; use ctrl, shift, alt or win", m)
		}
		if seen[m] {
			return false, fmt.Sprintf("modifier '%s' is repeated", m)
		}
		seen[m] = true
	}

	if key == "" {
		return false, fmt.Sprintf("'%s' has no key after the modifiers", n)
	}
	if blockedKeys[key] {
		return false, fmt.Sprintf("key '%s' cannot be used in a hotkey", key)
	}
	if !IsKey(key) {
		return false, fmt.Sprintf("'%s' is not a supported key", key)
	}

	if !allowReserved {
		if why, ok := reserved[Canonical(n)]; ok {
			return false, fmt.Sprintf("'%s' is reserved for %s", n, why)
		}
	}
	return true, ""
}

// Canonical returns the normalized hotkey with modifiers in canonical order,
// so "shift+ctrl+k" and "ctrl+shift+k" compare equal. Strings that don't
// parse are returned normalized but otherwise unchanged.
func Canonical(s string) string {
	mods, key := Parse(s)
	if key == "" {
		return Normalize(s)
	}
	have := make(map[string]bool, len(mods))
	for _, m := range mods {
		if !modifierSet[m] {
			return Normalize(s)
		}
		have[m] = true
	}
	out := make([]string, 0, len(mods)+1)
	for _, m := range Modifiers {
		if have[m] {
			out = append(out, m)
		}
	}
	out = append(out, key)
	return strings.Join(out, "+")
}

// SuggestFreeHotkey appends candidate keys to the modifier prefix (for example
// "ctrl+shift") and returns the first hotkey that validates and isn't in
// taken. It returns "" if none of the candidates qualify.
func SuggestFreeHotkey(prefix string, taken ...string) string {
	p := strings.TrimSuffix(Normalize(prefix), "+")
	if p == "" {
		return ""
	}
	used := make(map[string]bool, len(taken))
	for _, t := range taken {
		used[Canonical(t)] = true
	}
	for _, k := range suggestionKeys {
		candidate := p + "+" + k
		if used[Canonical(candidate)] {
			continue
		}
		if IsValid(candidate, false) {
			return Canonical(candidate)
		}
	}
	return ""
}
