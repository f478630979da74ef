package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeHotkey struct {
	ch   chan struct{}
	once sync.Once
}

func (h *fakeHotkey) Keydown() <-chan struct{} { return h.ch }

func (h *fakeHotkey) Close() error {
	h.once.Do(func() { close(h.ch) })
	return nil
}

type fakeBackend struct {
	mu   sync.Mutex
	keys map[string]*fakeHotkey
	fail map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{keys: make(map[string]*fakeHotkey), fail: make(map[string]error)}
}

func (b *fakeBackend) Register(hk string) (RegisteredHotkey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail[hk]; err != nil {
		return nil, err
	}
	h := &fakeHotkey{ch: make(chan struct{})}
	b.keys[hk] = h
	return h, nil
}

func (b *fakeBackend) Unregister(hk string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok := b.keys[hk]; ok {
		h.Close()
		delete(b.keys, hk)
	}
	return nil
}

func (b *fakeBackend) UnregisterAll() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for hk, h := range b.keys {
		h.Close()
		delete(b.keys, hk)
	}
	return nil
}

func (b *fakeBackend) Name() string     { return "fake" }
func (b *fakeBackend) IsAvailable() bool { return true }

func (b *fakeBackend) registered(hk string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.keys[hk]
	return ok
}

// press delivers one key press, failing the test if nobody is listening.
func (b *fakeBackend) press(t *testing.T, hk string) {
	t.Helper()
	b.mu.Lock()
	h, ok := b.keys[hk]
	b.mu.Unlock()
	if !ok {
		t.Fatalf("press %q: not registered", hk)
	}
	select {
	case h.ch <- struct{}{}:
	case <-time.After(2 * time.Second):
		t.Fatalf("press %q: no listener", hk)
	}
}

// recorder collects fired targets; Spawn runs handlers inline.
type recorder struct {
	fired chan string
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan string, 16)}
}

func (r *recorder) options(conflicts func(string, int) error) Options {
	return Options{
		Conflicts: conflicts,
		OnCustom:  func(id int) { r.fired <- fmt.Sprintf("custom:%d", id) },
		Spawn:     func(_ string, fn func()) { fn() },
	}
}

func (r *recorder) builtin(name string) func() {
	return func() { r.fired <- "builtin:" + name }
}

func (r *recorder) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-r.fired:
		if got != want {
			t.Errorf("fired %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestSetupCustomHotkeysPartialSuccess(t *testing.T) {
	backend := newFakeBackend()
	rec := newRecorder()
	m := NewManager(backend, rec.options(nil))

	result := m.SetupCustomHotkeys([]Binding{
		{ID: 1, Hotkey: "ctrl+alt+1", Enabled: true},
		{ID: 2, Hotkey: "ctrl+alt+escape", Enabled: true},
		{ID: 3, Hotkey: "Alt + Ctrl + 3", Enabled: true},
	})

	if len(result) != 3 {
		t.Fatalf("result = %v", result)
	}
	errs := result.Errors()
	if len(errs) != 1 || !IsError(result[2]) {
		t.Errorf("errors = %v, want exactly shortcut 2", errs)
	}
	if result[1] != StatusOK || result[3] != StatusOK {
		t.Errorf("result = %v, want 1 and 3 ok", result)
	}

	backend.press(t, "ctrl+alt+1")
	rec.expect(t, "custom:1")
	backend.press(t, "ctrl+alt+3")
	rec.expect(t, "custom:3")
}

func TestSetupCustomHotkeysStatuses(t *testing.T) {
	backend := newFakeBackend()
	backend.fail["ctrl+alt+4"] = errors.New("hotkey already grabbed by another application")
	rec := newRecorder()
	conflicts := func(hk string, excludeID int) error {
		if hk == "ctrl+shift+q" {
			return errors.New("used by the built-in action paste_datetime")
		}
		return nil
	}
	m := NewManager(backend, rec.options(conflicts))

	result := m.SetupCustomHotkeys([]Binding{
		{ID: 1, Hotkey: "ctrl+alt+1", Enabled: false},
		{ID: 2, Hotkey: "q", Enabled: true},
		{ID: 3, Hotkey: "ctrl+c", Enabled: true},
		{ID: 4, Hotkey: "ctrl+alt+4", Enabled: true},
		{ID: 5, Hotkey: "shift+ctrl+q", Enabled: true},
		{ID: 6, Hotkey: "ctrl+alt+6", Enabled: true},
		{ID: 7, Hotkey: "alt+ctrl+6", Enabled: true},
	})

	want := map[int]string{
		1: StatusDisabled,
		2: "error:'q' has no modifier",
		3: "error:'ctrl+c' is reserved",
		4: "error:hotkey already grabbed",
		5: "error:used by the built-in action",
		6: StatusOK,
		7: "error:'ctrl+alt+6' is already registered for shortcut 6",
	}
	for id, prefix := range want {
		if !strings.HasPrefix(result[id], prefix) {
			t.Errorf("result[%d] = %q, want prefix %q", id, result[id], prefix)
		}
	}
	if backend.registered("ctrl+alt+1") {
		t.Error("disabled shortcut was registered")
	}

	status := m.Status()
	if len(status) != len(want) {
		t.Errorf("Status() = %v", status)
	}
}

func TestSetupCustomHotkeysReplacesPreviousSet(t *testing.T) {
	backend := newFakeBackend()
	rec := newRecorder()
	m := NewManager(backend, rec.options(nil))

	m.SetupCustomHotkeys([]Binding{{ID: 1, Hotkey: "ctrl+alt+1", Enabled: true}})
	m.SetupCustomHotkeys([]Binding{{ID: 2, Hotkey: "ctrl+alt+2", Enabled: true}})

	if backend.registered("ctrl+alt+1") {
		t.Error("old binding still registered")
	}
	backend.press(t, "ctrl+alt+2")
	rec.expect(t, "custom:2")

	// Rebinding the same hotkey to another id dispatches to the new id.
	m.SetupCustomHotkeys([]Binding{{ID: 9, Hotkey: "ctrl+alt+2", Enabled: true}})
	backend.press(t, "ctrl+alt+2")
	rec.expect(t, "custom:9")
}

func TestBuiltinsAndCustomsShareDispatch(t *testing.T) {
	backend := newFakeBackend()
	rec := newRecorder()
	m := NewManager(backend, rec.options(nil))

	status := m.SetupBuiltins([]Builtin{
		{Name: "paste", Hotkey: "ctrl+shift+q", Handler: rec.builtin("paste")},
		{Name: "broken", Hotkey: "x", Handler: rec.builtin("broken")},
		{Name: "search", Hotkey: "Ctrl+Shift+F", Handler: rec.builtin("search")},
	})
	if status["paste"] != StatusOK || status["search"] != StatusOK || !IsError(status["broken"]) {
		t.Errorf("builtin status = %v", status)
	}

	result := m.SetupCustomHotkeys([]Binding{
		{ID: 1, Hotkey: "ctrl+shift+q", Enabled: true},
		{ID: 2, Hotkey: "ctrl+alt+2", Enabled: true},
	})
	if !strings.Contains(result[1], "built-in action paste") {
		t.Errorf("result[1] = %q, want collision with the built-in", result[1])
	}

	backend.press(t, "ctrl+shift+f")
	rec.expect(t, "builtin:search")
	backend.press(t, "ctrl+alt+2")
	rec.expect(t, "custom:2")

	// Replacing customs keeps builtins.
	m.SetupCustomHotkeys(nil)
	backend.press(t, "ctrl+shift+q")
	rec.expect(t, "builtin:paste")
}

func TestUnregisterCustomShortcut(t *testing.T) {
	backend := newFakeBackend()
	m := NewManager(backend, newRecorder().options(nil))
	m.SetupCustomHotkeys([]Binding{{ID: 1, Hotkey: "ctrl+alt+1", Enabled: true}})

	if err := m.UnregisterCustomShortcut(1); err != nil {
		t.Fatal(err)
	}
	if backend.registered("ctrl+alt+1") {
		t.Error("hotkey still registered")
	}
	if _, ok := m.Status()[1]; ok {
		t.Error("status still lists the unregistered shortcut")
	}

	if err := m.UnregisterCustomShortcut(1); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("second unregister = %v, want ErrNotRegistered", err)
	}
	if err := m.UnregisterCustomShortcut(404); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("unknown id = %v, want ErrNotRegistered", err)
	}
}

func TestValidateHotkey(t *testing.T) {
	backend := newFakeBackend()
	conflicts := func(hk string, excludeID int) error {
		if hk == "ctrl+shift+r" {
			return errors.New("used by the built-in action refresh_menu")
		}
		return nil
	}
	m := NewManager(backend, newRecorder().options(conflicts))
	m.SetupCustomHotkeys([]Binding{{ID: 5, Hotkey: "ctrl+alt+5", Enabled: true}})

	tests := []struct {
		hotkey    string
		excludeID int
		wantErr   bool
	}{
		{"ctrl+alt+6", 0, false},
		{"ctrl+alt+5", 0, true},
		{"alt+ctrl+5", 5, false},
		{"ctrl+v", 0, true},
		{"ctrl+shift+r", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		err := m.ValidateHotkey(tt.hotkey, tt.excludeID)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateHotkey(%q, %d) = %v, wantErr %v", tt.hotkey, tt.excludeID, err, tt.wantErr)
		}
	}
	if backend.registered("ctrl+alt+6") {
		t.Error("ValidateHotkey must not register anything")
	}
}

func TestNilBackendReportsUnavailable(t *testing.T) {
	m := NewManager(nil, Options{})
	if m.Available() {
		t.Error("Available() with nil backend")
	}

	result := m.SetupCustomHotkeys([]Binding{
		{ID: 1, Hotkey: "ctrl+alt+1", Enabled: true},
		{ID: 2, Hotkey: "ctrl+alt+2", Enabled: false},
	})
	if result[1] != "error:hotkeys unavailable" || result[2] != StatusDisabled {
		t.Errorf("result = %v", result)
	}
	status := m.SetupBuiltins([]Builtin{{Name: "paste", Hotkey: "ctrl+shift+q"}})
	if status["paste"] != "error:hotkeys unavailable" {
		t.Errorf("builtin status = %v", status)
	}
	m.UnregisterAll()
}

func TestUnregisterAllStopsListeners(t *testing.T) {
	backend := newFakeBackend()
	rec := newRecorder()
	m := NewManager(backend, rec.options(nil))
	m.SetupBuiltins([]Builtin{{Name: "paste", Hotkey: "ctrl+shift+q", Handler: rec.builtin("paste")}})
	m.SetupCustomHotkeys([]Binding{{ID: 1, Hotkey: "ctrl+alt+1", Enabled: true}})

	m.UnregisterAll()
	m.UnregisterAll()

	if backend.registered("ctrl+shift+q") || backend.registered("ctrl+alt+1") {
		t.Error("hotkeys still registered")
	}
	if len(m.Status()) != 0 {
		t.Errorf("Status() = %v after UnregisterAll", m.Status())
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	backend := newFakeBackend()
	done := make(chan struct{})
	m := NewManager(backend, Options{
		OnCustom: func(id int) {
			if id == 1 {
				panic("boom")
			}
			close(done)
		},
	})
	m.SetupCustomHotkeys([]Binding{
		{ID: 1, Hotkey: "ctrl+alt+1", Enabled: true},
		{ID: 2, Hotkey: "ctrl+alt+2", Enabled: true},
	})

	backend.press(t, "ctrl+alt+1")
	backend.press(t, "ctrl+alt+1")
	backend.press(t, "ctrl+alt+2")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second shortcut never ran")
	}
}
