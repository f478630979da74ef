package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/rkvasne/dahora-app-sub000/internal/keycombo"
)

// Field limits for custom shortcuts, in runes.
const (
	MaxPrefixLen      = 50
	MaxDescriptionLen = 100
)

// ErrNotFound is returned for operations on an unknown shortcut id.
var ErrNotFound = errors.New("shortcut not found")

// Shortcut binds a global hotkey to the prefix inserted in front of the
// timestamp.
type Shortcut struct {
	ID          int    `json:"id"`
	Hotkey      string `json:"hotkey"`
	Prefix      string `json:"prefix"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// RawShortcut is a shortcut as read from storage, before sanitizing. Absent
// fields are nil.
type RawShortcut struct {
	ID          *int    `json:"id"`
	Hotkey      *string `json:"hotkey"`
	Prefix      *string `json:"prefix"`
	Enabled     *bool   `json:"enabled"`
	Description *string `json:"description"`
}

// ShortcutUpdate carries the fields to change; nil fields are left as is.
type ShortcutUpdate struct {
	Hotkey      *string
	Prefix      *string
	Description *string
	Enabled     *bool
}

// ValidationError describes why a shortcut was rejected. The message is
// meant to be shown to the user as is.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// cleanText removes control characters and surrounding whitespace.
func cleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// SanitizeShortcuts turns stored entries into shortcuts. Entries missing an
// id, hotkey or prefix, with an id below 1, or repeating an earlier id or
// hotkey are dropped. Prefix and description are cleaned and truncated. The
// returned next id is greater than every id kept and never less than nextID.
func SanitizeShortcuts(raw []RawShortcut, nextID int) ([]Shortcut, int) {
	if nextID < 1 {
		nextID = 1
	}
	out := make([]Shortcut, 0, len(raw))
	ids := make(map[int]bool, len(raw))
	hotkeys := make(map[string]bool, len(raw))

	for _, r := range raw {
		if r.ID == nil || r.Hotkey == nil || r.Prefix == nil {
			continue
		}
		if *r.ID < 1 || ids[*r.ID] {
			continue
		}
		hk := keycombo.Canonical(*r.Hotkey)
		if hk == "" || hotkeys[hk] {
			continue
		}
		prefix := truncateRunes(cleanText(*r.Prefix), MaxPrefixLen)
		if prefix == "" {
			continue
		}

		sc := Shortcut{
			ID:      *r.ID,
			Hotkey:  hk,
			Prefix:  prefix,
			Enabled: true,
		}
		if r.Enabled != nil {
			sc.Enabled = *r.Enabled
		}
		if r.Description != nil {
			sc.Description = truncateRunes(cleanText(*r.Description), MaxDescriptionLen)
		}

		ids[sc.ID] = true
		hotkeys[hk] = true
		if sc.ID >= nextID {
			nextID = sc.ID + 1
		}
		out = append(out, sc)
	}
	return out, nextID
}

// Shortcuts returns a copy of all custom shortcuts in id order of creation.
func (s *Store) Shortcuts() []Shortcut {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Shortcut, len(s.shortcuts))
	copy(out, s.shortcuts)
	return out
}

// Shortcut returns the shortcut with the given id.
func (s *Store) Shortcut(id int) (Shortcut, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.shortcuts[i], true
	}
	return Shortcut{}, false
}

func (s *Store) indexLocked(id int) int {
	for i, sc := range s.shortcuts {
		if sc.ID == id {
			return i
		}
	}
	return -1
}

// CheckHotkey reports whether hotkey could be used by the shortcut excludeID
// (use 0 for a new shortcut). It checks the grammar, the reserved set, the
// built-in action hotkeys and every other custom shortcut, enabled or not.
func (s *Store) CheckHotkey(hotkey string, excludeID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkHotkeyLocked(hotkey, excludeID)
}

func (s *Store) checkHotkeyLocked(hotkey string, excludeID int) error {
	if keycombo.Normalize(hotkey) == "" {
		return invalid("hotkey", "hotkey is empty")
	}
	if ok, reason := keycombo.ValidateWithReason(hotkey, false); !ok {
		return invalid("hotkey", "invalid hotkey: %s", reason)
	}
	hk := keycombo.Canonical(hotkey)

	for action, builtin := range s.settings.BuiltinHotkeys() {
		if keycombo.Canonical(builtin) == hk {
			return invalid("hotkey", "'%s' is used by the built-in action %s", hk, action)
		}
	}
	for _, sc := range s.shortcuts {
		if sc.ID == excludeID {
			continue
		}
		if keycombo.Canonical(sc.Hotkey) == hk {
			return invalid("hotkey", "'%s' is already used by shortcut %d (%s)", hk, sc.ID, sc.Prefix)
		}
	}
	return nil
}

func checkPrefix(prefix string) (string, error) {
	p := cleanText(prefix)
	if p == "" {
		return "", invalid("prefix", "prefix is empty")
	}
	if n := len([]rune(p)); n > MaxPrefixLen {
		return "", invalid("prefix", "prefix is %d characters long; the limit is %d", n, MaxPrefixLen)
	}
	return p, nil
}

func checkDescription(desc string) (string, error) {
	d := cleanText(desc)
	if n := len([]rune(d)); n > MaxDescriptionLen {
		return "", invalid("description", "description is %d characters long; the limit is %d", n, MaxDescriptionLen)
	}
	return d, nil
}

// AddShortcut validates and stores a new shortcut and returns its id. A
// rejected shortcut returns a *ValidationError and leaves the registry as it
// was; so does a failed save.
func (s *Store) AddShortcut(hotkey, prefix, description string, enabled bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit := s.settings.MaxCustomShortcuts; len(s.shortcuts) >= limit {
		return 0, invalid("", "the limit of %d custom shortcuts has been reached", limit)
	}
	if err := s.checkHotkeyLocked(hotkey, 0); err != nil {
		return 0, err
	}
	p, err := checkPrefix(prefix)
	if err != nil {
		return 0, err
	}
	d, err := checkDescription(description)
	if err != nil {
		return 0, err
	}

	sc := Shortcut{
		ID:          s.nextID,
		Hotkey:      keycombo.Canonical(hotkey),
		Prefix:      p,
		Enabled:     enabled,
		Description: d,
	}

	prev, prevNext := s.shortcuts, s.nextID
	s.shortcuts = append(append([]Shortcut(nil), s.shortcuts...), sc)
	s.nextID++
	if err := s.saveLocked(); err != nil {
		s.shortcuts, s.nextID = prev, prevNext
		return 0, err
	}

	slog.Info("Added custom shortcut", "id", sc.ID, "hotkey", sc.Hotkey, "prefix", sc.Prefix)
	return sc.ID, nil
}

// UpdateShortcut changes the given fields of shortcut id, re-validating them
// as AddShortcut would.
func (s *Store) UpdateShortcut(id int, u ShortcutUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("shortcut %d: %w", id, ErrNotFound)
	}
	sc := s.shortcuts[i]

	if u.Hotkey != nil {
		if err := s.checkHotkeyLocked(*u.Hotkey, id); err != nil {
			return err
		}
		sc.Hotkey = keycombo.Canonical(*u.Hotkey)
	}
	if u.Prefix != nil {
		p, err := checkPrefix(*u.Prefix)
		if err != nil {
			return err
		}
		sc.Prefix = p
	}
	if u.Description != nil {
		d, err := checkDescription(*u.Description)
		if err != nil {
			return err
		}
		sc.Description = d
	}
	if u.Enabled != nil {
		sc.Enabled = *u.Enabled
	}

	prev := s.shortcuts
	s.shortcuts = append([]Shortcut(nil), s.shortcuts...)
	s.shortcuts[i] = sc
	if err := s.saveLocked(); err != nil {
		s.shortcuts = prev
		return err
	}
	slog.Info("Updated custom shortcut", "id", id, "hotkey", sc.Hotkey, "enabled", sc.Enabled)
	return nil
}

// RemoveShortcut deletes shortcut id. Ids are never reused.
func (s *Store) RemoveShortcut(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("shortcut %d: %w", id, ErrNotFound)
	}

	prev := s.shortcuts
	next := make([]Shortcut, 0, len(s.shortcuts)-1)
	next = append(next, s.shortcuts[:i]...)
	s.shortcuts = append(next, s.shortcuts[i+1:]...)
	if err := s.saveLocked(); err != nil {
		s.shortcuts = prev
		return err
	}
	slog.Info("Removed custom shortcut", "id", id)
	return nil
}
