package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rkvasne/dahora-app-sub000/internal/keycombo"
)

// Registration status values.
const (
	StatusOK       = "ok"
	StatusDisabled = "disabled"
	statusError    = "error:"
)

// RegistrationResult maps a custom shortcut id to its status: StatusOK,
// StatusDisabled or "error:<reason>".
type RegistrationResult map[int]string

// Errors returns the ids whose registration failed.
func (r RegistrationResult) Errors() map[int]string {
	out := make(map[int]string)
	for id, st := range r {
		if reason, ok := strings.CutPrefix(st, statusError); ok {
			out[id] = reason
		}
	}
	return out
}

func errorStatus(err error) string {
	return statusError + err.Error()
}

// IsError reports whether a status string describes a failed registration.
func IsError(status string) bool {
	return strings.HasPrefix(status, statusError)
}

// Builtin is a fixed action bound to a configurable hotkey.
type Builtin struct {
	Name    string
	Hotkey  string
	Handler func()
}

// Binding is a custom shortcut as the manager sees it. What the shortcut
// does is up to Options.OnCustom.
type Binding struct {
	ID      int
	Hotkey  string
	Enabled bool
}

// Options configures a Manager.
type Options struct {
	// Conflicts reports whether hotkey clashes with anything the shortcut
	// excludeID must not take (reserved, built-in or another shortcut).
	Conflicts func(hotkey string, excludeID int) error
	// OnCustom is called when the hotkey of custom shortcut id is pressed.
	OnCustom func(id int)
	// Spawn runs a handler off the listener goroutine. The default starts a
	// goroutine that recovers panics.
	Spawn func(name string, fn func())
}

// target identifies what a hotkey triggers. Exactly one field is set.
type target struct {
	builtin string
	id      int
}

func (t target) String() string {
	if t.builtin != "" {
		return "built-in action " + t.builtin
	}
	return fmt.Sprintf("shortcut %d", t.id)
}

// Manager owns the registered hotkeys. Presses are resolved to their target
// at the time they arrive, so re-registering never leaves a stale handler
// behind.
type Manager struct {
	backend Backend
	opts    Options

	mu            sync.Mutex
	byHotkey      map[string]target
	builtins      map[string]func()
	builtinKeys   map[string]string
	customKeys    map[int]string
	status        RegistrationResult
	builtinStatus map[string]string
}

// NewManager returns a manager using backend. A nil backend is allowed: every
// registration then fails with ErrUnavailable.
func NewManager(backend Backend, opts Options) *Manager {
	if opts.Spawn == nil {
		opts.Spawn = spawn
	}
	if backend != nil {
		slog.Info("Using hotkey backend", "backend", backend.Name())
	} else {
		slog.Warn("No hotkey backend available, global hotkeys are disabled")
	}
	return &Manager{
		backend:       backend,
		opts:          opts,
		byHotkey:      make(map[string]target),
		builtins:      make(map[string]func()),
		builtinKeys:   make(map[string]string),
		customKeys:    make(map[int]string),
		status:        make(RegistrationResult),
		builtinStatus: make(map[string]string),
	}
}

func spawn(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Recovered from panic in hotkey handler", "hotkey", name, "panic", r)
			}
		}()
		fn()
	}()
}

// Available reports whether hotkeys can be registered at all.
func (m *Manager) Available() bool {
	return m.backend != nil
}

// SetupBuiltins replaces the built-in bindings and returns a status per
// action name.
func (m *Manager) SetupBuiltins(builtins []Builtin) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, hk := range m.builtinKeys {
		m.unregisterLocked(hk)
		delete(m.builtinKeys, name)
	}
	m.builtins = make(map[string]func())
	m.builtinStatus = make(map[string]string)

	for _, b := range builtins {
		if ok, reason := keycombo.ValidateWithReason(b.Hotkey, false); !ok {
			m.builtinStatus[b.Name] = errorStatus(errors.New(reason))
			slog.Warn("Invalid built-in hotkey", "action", b.Name, "hotkey", b.Hotkey, "reason", reason)
			continue
		}
		m.builtins[b.Name] = b.Handler
		hk := keycombo.Canonical(b.Hotkey)
		if err := m.registerLocked(hk, target{builtin: b.Name}); err != nil {
			m.builtinStatus[b.Name] = errorStatus(err)
			slog.Warn("Failed to register built-in hotkey", "action", b.Name, "hotkey", hk, "error", err)
			continue
		}
		m.builtinKeys[b.Name] = hk
		m.builtinStatus[b.Name] = StatusOK
		slog.Info("Registered hotkey", "hotkey", hk, "action", b.Name)
	}

	out := make(map[string]string, len(m.builtinStatus))
	for k, v := range m.builtinStatus {
		out[k] = v
	}
	return out
}

// SetupCustomHotkeys replaces every custom binding with bindings. Each one is
// attempted independently; a failure is recorded in the result and never
// stops the rest.
func (m *Manager) SetupCustomHotkeys(bindings []Binding) RegistrationResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, hk := range m.customKeys {
		m.unregisterLocked(hk)
		delete(m.customKeys, id)
	}

	result := make(RegistrationResult, len(bindings))
	for _, b := range bindings {
		if _, seen := result[b.ID]; seen {
			slog.Warn("Ignoring duplicate shortcut id", "id", b.ID)
			continue
		}
		if !b.Enabled {
			result[b.ID] = StatusDisabled
			continue
		}
		hk, err := m.checkLocked(b.Hotkey, b.ID)
		if err == nil {
			err = m.registerLocked(hk, target{id: b.ID})
		}
		if err != nil {
			result[b.ID] = errorStatus(err)
			slog.Warn("Failed to register custom shortcut", "id", b.ID, "hotkey", b.Hotkey, "error", err)
			continue
		}
		m.customKeys[b.ID] = hk
		result[b.ID] = StatusOK
		slog.Info("Registered hotkey", "hotkey", hk, "shortcut", b.ID)
	}

	m.status = make(RegistrationResult, len(result))
	for k, v := range result {
		m.status[k] = v
	}
	return result
}

// UnregisterCustomShortcut releases the hotkey of shortcut id. An id without
// an active binding is reported as an error.
func (m *Manager) UnregisterCustomShortcut(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hk, ok := m.customKeys[id]
	if !ok {
		return fmt.Errorf("shortcut %d: %w", id, ErrNotRegistered)
	}
	delete(m.customKeys, id)
	delete(m.status, id)
	if err := m.unregisterLocked(hk); err != nil {
		return fmt.Errorf("failed to unregister shortcut %d: %w", id, err)
	}
	slog.Info("Unregistered hotkey", "hotkey", hk, "shortcut", id)
	return nil
}

// ValidateHotkey checks whether hotkey could be bound to the shortcut
// excludeID (0 for a new one) without registering anything.
func (m *Manager) ValidateHotkey(hotkey string, excludeID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.checkLocked(hotkey, excludeID)
	return err
}

func (m *Manager) checkLocked(hotkey string, excludeID int) (string, error) {
	if ok, reason := keycombo.ValidateWithReason(hotkey, false); !ok {
		return "", errors.New(reason)
	}
	hk := keycombo.Canonical(hotkey)
	if m.opts.Conflicts != nil {
		if err := m.opts.Conflicts(hk, excludeID); err != nil {
			return "", err
		}
	}
	if t, taken := m.byHotkey[hk]; taken && !(t.builtin == "" && t.id == excludeID) {
		return "", fmt.Errorf("'%s' is already registered for %s", hk, t)
	}
	return hk, nil
}

// Status returns the result of the last SetupCustomHotkeys, minus
// shortcuts unregistered since.
func (m *Manager) Status() RegistrationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(RegistrationResult, len(m.status))
	for k, v := range m.status {
		out[k] = v
	}
	return out
}

// BuiltinStatus returns the result of the last SetupBuiltins.
func (m *Manager) BuiltinStatus() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.builtinStatus))
	for k, v := range m.builtinStatus {
		out[k] = v
	}
	return out
}

// UnregisterAll releases every hotkey. It's safe to call more than once.
func (m *Manager) UnregisterAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil && len(m.byHotkey) > 0 {
		if err := m.backend.UnregisterAll(); err != nil {
			slog.Warn("Failed to unregister hotkeys", "error", err)
		}
		slog.Info("Unregistered all hotkeys", "count", len(m.byHotkey))
	}
	m.byHotkey = make(map[string]target)
	m.builtinKeys = make(map[string]string)
	m.customKeys = make(map[int]string)
	m.status = make(RegistrationResult)
}

func (m *Manager) registerLocked(hk string, t target) error {
	if m.backend == nil {
		return ErrUnavailable
	}
	if existing, taken := m.byHotkey[hk]; taken {
		return fmt.Errorf("'%s' is already registered for %s", hk, existing)
	}
	handle, err := m.backend.Register(hk)
	if err != nil {
		return err
	}
	m.byHotkey[hk] = t
	go m.listen(hk, handle.Keydown())
	return nil
}

func (m *Manager) unregisterLocked(hk string) error {
	delete(m.byHotkey, hk)
	if m.backend == nil {
		return nil
	}
	return m.backend.Unregister(hk)
}

// listen forwards presses until the backend closes the channel.
func (m *Manager) listen(hk string, keydown <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic in hotkey listener", "hotkey", hk, "panic", r)
		}
	}()
	for range keydown {
		m.fire(hk)
	}
}

// fire resolves hk to its current target and runs it.
func (m *Manager) fire(hk string) {
	m.mu.Lock()
	t, ok := m.byHotkey[hk]
	var handler func()
	if ok {
		if t.builtin != "" {
			handler = m.builtins[t.builtin]
		} else if m.opts.OnCustom != nil {
			id, onCustom := t.id, m.opts.OnCustom
			handler = func() { onCustom(id) }
		}
	}
	m.mu.Unlock()

	if handler == nil {
		slog.Debug("Hotkey pressed with no target", "hotkey", hk)
		return
	}
	slog.Info("Hotkey pressed", "hotkey", hk, "target", t.String())
	m.opts.Spawn(hk, handler)
}
