// Package hotkey registers global hotkeys through a Backend and dispatches
// key presses to built-in actions and custom shortcuts.
package hotkey

import "errors"

var (
	// ErrBackendNotAvailable is returned when a backend cannot be used on the current system.
	ErrBackendNotAvailable = errors.New("backend not available on this system")

	// ErrUnavailable is reported for every hotkey when no backend could be selected.
	ErrUnavailable = errors.New("hotkeys unavailable")

	// ErrNotRegistered is returned when unregistering a shortcut that has no binding.
	ErrNotRegistered = errors.New("shortcut is not registered")
)

// Backend abstracts the OS facility that grabs global hotkeys. Hotkey
// strings passed to a Backend are already validated and canonical
// ("ctrl+shift+q").
type Backend interface {
	// Register grabs the hotkey. Failure usually means another application
	// already owns the combination.
	Register(hotkeyStr string) (RegisteredHotkey, error)

	// Unregister releases a previously registered hotkey.
	Unregister(hotkeyStr string) error

	// UnregisterAll releases every hotkey registered by this backend.
	UnregisterAll() error

	// Name returns a human-readable name for logging.
	Name() string

	// IsAvailable reports whether this backend works on the current system.
	IsAvailable() bool
}

// RegisteredHotkey is a grabbed hotkey.
type RegisteredHotkey interface {
	// Keydown receives a value for every press. It is closed when the
	// hotkey is released.
	Keydown() <-chan struct{}

	// Close releases the hotkey.
	Close() error
}
