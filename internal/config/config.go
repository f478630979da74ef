package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/rkvasne/dahora-app-sub000/internal/atomicfile"
	"github.com/rkvasne/dahora-app-sub000/internal/history"
	"github.com/rkvasne/dahora-app-sub000/internal/keycombo"
)

// Clipboard backend names accepted in ClipboardBackend.
const (
	BackendAtotto = "atotto"
	BackendNative = "native"
)

// ShortcutLimit is the highest accepted max_custom_shortcuts.
const ShortcutLimit = 50

// Built-in action names, as used by BuiltinHotkeys.
const (
	ActionPasteDatetime = "paste_datetime"
	ActionSearchHistory = "search_history"
	ActionRefreshMenu   = "refresh_menu"
)

// Settings holds the scalar application settings. Custom shortcuts are kept
// separately by Store and are persisted in the same document.
type Settings struct {
	MaxHistoryItems      int    `json:"max_history_items"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	DatetimeFormat       string `json:"datetime_format"`
	BracketOpen          string `json:"bracket_open"`
	BracketClose         string `json:"bracket_close"`

	HotkeyPasteDatetime string `json:"hotkey_paste_datetime"`
	HotkeySearchHistory string `json:"hotkey_search_history"`
	HotkeyRefreshMenu   string `json:"hotkey_refresh_menu"`

	PollFastMs     int `json:"poll_fast_ms"`
	PollSlowMs     int `json:"poll_slow_ms"`
	PollMaxMs      int `json:"poll_max_ms"`
	PollErrorMs    int `json:"poll_error_ms"`
	IdleThresholdS int `json:"idle_threshold_s"`

	ClipboardBackend   string `json:"clipboard_backend"`
	RestoreClipboard   bool   `json:"restore_clipboard"`
	MaxCustomShortcuts int    `json:"max_custom_shortcuts"`
}

// Defaults returns the settings used when no document exists.
func Defaults() Settings {
	return Settings{
		MaxHistoryItems:      history.DefaultItems,
		NotificationsEnabled: true,
		DatetimeFormat:       "02.01.2006-15:04",
		BracketOpen:          "[",
		BracketClose:         "]",
		HotkeyPasteDatetime:  "ctrl+shift+q",
		HotkeySearchHistory:  "ctrl+shift+f",
		HotkeyRefreshMenu:    "ctrl+shift+r",
		PollFastMs:           500,
		PollSlowMs:           5000,
		PollMaxMs:            30000,
		PollErrorMs:          3000,
		IdleThresholdS:       30,
		ClipboardBackend:     BackendAtotto,
		RestoreClipboard:     true,
		MaxCustomShortcuts:   10,
	}
}

// BuiltinHotkeys maps each built-in action to its configured hotkey.
func (s Settings) BuiltinHotkeys() map[string]string {
	return map[string]string{
		ActionPasteDatetime: s.HotkeyPasteDatetime,
		ActionSearchHistory: s.HotkeySearchHistory,
		ActionRefreshMenu:   s.HotkeyRefreshMenu,
	}
}

func clampInt(v, lo, hi, def int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalize clamps out-of-range values and replaces invalid ones with their
// defaults.
func (s *Settings) normalize() {
	def := Defaults()

	s.MaxHistoryItems = history.ClampMaxItems(s.MaxHistoryItems)
	if s.DatetimeFormat == "" {
		s.DatetimeFormat = def.DatetimeFormat
	}

	builtins := []struct {
		value *string
		def   string
	}{
		{&s.HotkeyPasteDatetime, def.HotkeyPasteDatetime},
		{&s.HotkeySearchHistory, def.HotkeySearchHistory},
		{&s.HotkeyRefreshMenu, def.HotkeyRefreshMenu},
	}
	seen := make(map[string]bool, len(builtins))
	for _, b := range builtins {
		if keycombo.IsValid(*b.value, false) {
			*b.value = keycombo.Canonical(*b.value)
		} else {
			if *b.value != "" {
				slog.Warn("Invalid built-in hotkey in settings, using default", "hotkey", *b.value, "default", b.def)
			}
			*b.value = b.def
		}
		if seen[*b.value] {
			slog.Warn("Built-in hotkey is already used by another action, using default", "hotkey", *b.value, "default", b.def)
			*b.value = b.def
		}
		seen[*b.value] = true
	}
	if len(seen) < len(builtins) {
		slog.Warn("Built-in hotkeys still collide, restoring all defaults")
		for _, b := range builtins {
			*b.value = b.def
		}
	}

	s.PollFastMs = clampInt(s.PollFastMs, 100, 5000, def.PollFastMs)
	s.PollSlowMs = clampInt(s.PollSlowMs, 5000, 600000, def.PollSlowMs)
	s.PollMaxMs = clampInt(s.PollMaxMs, s.PollSlowMs, 600000, def.PollMaxMs)
	if s.PollMaxMs < s.PollSlowMs {
		s.PollMaxMs = s.PollSlowMs
	}
	s.PollErrorMs = clampInt(s.PollErrorMs, 100, 60000, def.PollErrorMs)
	s.IdleThresholdS = clampInt(s.IdleThresholdS, 1, 3600, def.IdleThresholdS)
	s.MaxCustomShortcuts = clampInt(s.MaxCustomShortcuts, 1, ShortcutLimit, def.MaxCustomShortcuts)

	if s.ClipboardBackend != BackendAtotto && s.ClipboardBackend != BackendNative {
		s.ClipboardBackend = BackendAtotto
	}
}

// document is the on-disk layout: the scalar settings plus the shortcuts.
type document struct {
	Settings
	CustomShortcuts []Shortcut `json:"custom_shortcuts"`
	NextShortcutID  int        `json:"next_shortcut_id"`
}

// rawDocument is decoded first so that one malformed shortcut can't make the
// whole document unreadable.
type rawDocument struct {
	Settings
	CustomShortcuts []json.RawMessage `json:"custom_shortcuts"`
	NextShortcutID  int               `json:"next_shortcut_id"`
}

// Store owns the settings document. Its lock is independent of the history
// store's, so a slow settings write never stalls history reads.
type Store struct {
	mu        sync.Mutex
	path      string
	settings  Settings
	shortcuts []Shortcut
	nextID    int
	corrupt   bool

	writer atomicfile.Writer
}

// Open loads the settings document at path. A missing, unreadable or
// malformed document yields defaults. An unreadable or malformed one is left
// on disk until the next save moves it aside.
func Open(path string) *Store {
	s := &Store{
		path:     path,
		settings: Defaults(),
		nextID:   1,
		writer:   atomicfile.Default,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("Settings file not found, using defaults", "path", path)
			return s
		}
		slog.Error("Failed to read settings file, using defaults; file left in place", "path", path, "error", err)
		s.corrupt = true
		return s
	}

	doc := rawDocument{Settings: Defaults()}
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("Settings file is corrupt, using defaults; file left in place", "path", path, "error", err)
		s.corrupt = true
		return s
	}

	doc.Settings.normalize()
	s.settings = doc.Settings

	raw := make([]RawShortcut, 0, len(doc.CustomShortcuts))
	for i, msg := range doc.CustomShortcuts {
		var r RawShortcut
		if err := json.Unmarshal(msg, &r); err != nil {
			slog.Warn("Dropping unreadable shortcut entry", "index", i, "error", err)
			continue
		}
		raw = append(raw, r)
	}
	s.shortcuts, s.nextID = SanitizeShortcuts(raw, doc.NextShortcutID)
	if dropped := len(doc.CustomShortcuts) - len(s.shortcuts); dropped > 0 {
		slog.Warn("Dropped invalid custom shortcuts", "dropped", dropped, "kept", len(s.shortcuts))
	}

	slog.Info("Loaded settings", "path", path, "shortcuts", len(s.shortcuts))
	return s
}

// Path returns the location of the settings document.
func (s *Store) Path() string {
	return s.path
}

// Settings returns a copy of the current scalar settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Update applies fn to a copy of the settings, normalizes the result and
// persists it. If fn returns an error, or a built-in hotkey would collide with
// another built-in or a custom shortcut, nothing is saved. Nothing changes if
// the save fails either.
func (s *Store) Update(fn func(*Settings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.builtinConflict(s.shortcuts); err != nil {
		return err
	}
	next.normalize()
	// normalize may have put a default back that a shortcut has taken since.
	if err := next.builtinConflict(s.shortcuts); err != nil {
		return err
	}

	prev := s.settings
	s.settings = next
	if err := s.saveLocked(); err != nil {
		s.settings = prev
		return err
	}
	return nil
}

// Set changes one setting by its document key. Dashes may be used in place
// of underscores.
func (s *Store) Set(key, value string) error {
	return s.Update(func(st *Settings) error {
		return st.Set(key, value)
	})
}

// Save writes the current document, creating it if needed.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.corrupt {
		dst, err := atomicfile.PreserveCorrupt(s.path)
		if err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		if dst != "" {
			slog.Warn("Moved corrupt settings aside", "path", dst)
		}
		s.corrupt = false
	}

	shortcuts := s.shortcuts
	if shortcuts == nil {
		shortcuts = []Shortcut{}
	}
	doc := document{
		Settings:        s.settings,
		CustomShortcuts: shortcuts,
		NextShortcutID:  s.nextID,
	}
	if err := s.writer.WriteJSON(s.path, doc); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
