package app

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rkvasne/dahora-app-sub000/internal/clipboard"
	"github.com/rkvasne/dahora-app-sub000/internal/history"
	"github.com/rkvasne/dahora-app-sub000/internal/hotkey"
	"github.com/rkvasne/dahora-app-sub000/internal/instance"
	"github.com/rkvasne/dahora-app-sub000/internal/ui"
)

type fakeClipboard struct {
	mu   sync.Mutex
	text string
}

func (c *fakeClipboard) Read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, nil
}

func (c *fakeClipboard) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

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
	fail map[string]bool
}

func newFakeBackend(fail ...string) *fakeBackend {
	b := &fakeBackend{keys: make(map[string]*fakeHotkey), fail: make(map[string]bool)}
	for _, hk := range fail {
		b.fail[hk] = true
	}
	return b
}

func (b *fakeBackend) Register(hk string) (hotkey.RegisteredHotkey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail[hk] {
		return nil, errors.New("grabbed by another application")
	}
	h := &fakeHotkey{ch: make(chan struct{}, 1)}
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

func (b *fakeBackend) Name() string      { return "fake" }
func (b *fakeBackend) IsAvailable() bool { return true }

func (b *fakeBackend) press(hk string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.keys[hk]
	if ok {
		h.ch <- struct{}{}
	}
	return ok
}

func (b *fakeBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.keys)
}

type note struct {
	level ui.Level
	title string
	msg   string
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *fakeNotifier) Notify(level ui.Level, title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{level, title, message})
}

func (n *fakeNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, x := range n.notes {
		out = append(out, x.title)
	}
	return out
}

type fakeDialogs struct {
	pick     int
	input    ui.ShortcutInput
	checked  []string
	confirm  bool
	err      error
	confirms int
}

func (d *fakeDialogs) PickHistory(entries []string) (int, error) {
	return d.pick, d.err
}

func (d *fakeDialogs) AddShortcut(suggestion string, check func(string) error) (ui.ShortcutInput, error) {
	d.checked = append(d.checked, suggestion)
	if d.err != nil {
		return ui.ShortcutInput{}, d.err
	}
	if err := check(d.input.Hotkey); err != nil {
		return ui.ShortcutInput{}, err
	}
	return d.input, nil
}

func (d *fakeDialogs) PickShortcut(labels []string) (int, error) {
	return d.pick, d.err
}

func (d *fakeDialogs) ConfirmClear(count int) (bool, error) {
	d.confirms++
	return d.confirm, d.err
}

func (d *fakeDialogs) Error(title, message string) {}

type fakeTray struct {
	mu    sync.Mutex
	snaps []ui.MenuSnapshot
	quits int
}

func (t *fakeTray) Run() {}
func (t *fakeTray) Quit() {
	t.mu.Lock()
	t.quits++
	t.mu.Unlock()
}
func (t *fakeTray) Refresh(s ui.MenuSnapshot) {
	t.mu.Lock()
	t.snaps = append(t.snaps, s)
	t.mu.Unlock()
}

func (t *fakeTray) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.snaps)
}

func (t *fakeTray) last() ui.MenuSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.snaps) == 0 {
		return ui.MenuSnapshot{}
	}
	return t.snaps[len(t.snaps)-1]
}

type harness struct {
	app     *Application
	clip    *fakeClipboard
	backend *fakeBackend
	notes   *fakeNotifier
	dialogs *fakeDialogs
	tray    *fakeTray

	mu     sync.Mutex
	pasted []string
}

func newHarness(t *testing.T, backend *fakeBackend) *harness {
	t.Helper()
	h := &harness{
		clip:    &fakeClipboard{},
		backend: backend,
		notes:   &fakeNotifier{},
		dialogs: &fakeDialogs{},
		tray:    &fakeTray{},
	}
	opts := Options{
		DataDir:   t.TempDir(),
		Version:   "test",
		Clipboard: h.clip,
		Dialogs:   h.dialogs,
		Notifier:  h.notes,
	}
	if backend != nil {
		opts.HotkeyBackend = backend
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.SetTray(h.tray)
	a.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	a.paste = func(clip clipboard.Clipboard, text string, opts clipboard.PasteOptions) error {
		h.mu.Lock()
		h.pasted = append(h.pasted, text)
		h.mu.Unlock()
		return nil
	}
	a.openFile = func(string) error { return nil }
	h.app = a
	t.Cleanup(func() {
		a.Quit()
		a.finish()
	})
	return h
}

func (h *harness) pastedTexts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.pasted...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewRefusesSecondInstance(t *testing.T) {
	dir := t.TempDir()
	a, err := New(Options{DataDir: dir, Clipboard: &fakeClipboard{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.closeStores()

	if _, err := New(Options{DataDir: dir, Clipboard: &fakeClipboard{}}); !errors.Is(err, instance.ErrAlreadyRunning) {
		t.Fatalf("second New = %v, want ErrAlreadyRunning", err)
	}
}

func TestInsertShortcutPastesStamp(t *testing.T) {
	h := newHarness(t, nil)
	id, err := h.app.cfg.AddShortcut("ctrl+shift+1", "dev", "", true)
	if err != nil {
		t.Fatal(err)
	}
	off, err := h.app.cfg.AddShortcut("ctrl+shift+2", "off", "", false)
	if err != nil {
		t.Fatal(err)
	}

	h.app.InsertShortcut(id)
	h.app.InsertShortcut(off)
	h.app.InsertShortcut(999)
	h.app.PasteDatetime()

	got := h.pastedTexts()
	want := []string{"[dev-16.10.2026-09:30]", "[16.10.2026-09:30]"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("pasted %q, want %q", got, want)
	}
}

func TestStartReportsRegistrationFailures(t *testing.T) {
	backend := newFakeBackend("ctrl+shift+2")
	h := newHarness(t, backend)
	if _, err := h.app.cfg.AddShortcut("ctrl+shift+1", "dev", "", true); err != nil {
		t.Fatal(err)
	}
	if _, err := h.app.cfg.AddShortcut("ctrl+shift+2", "ops", "", true); err != nil {
		t.Fatal(err)
	}

	h.app.Start()

	// Three built-ins plus the one shortcut that could be grabbed.
	if n := backend.count(); n != 4 {
		t.Errorf("registered %d hotkeys, want 4", n)
	}
	titles := strings.Join(h.notes.titles(), ",")
	if !strings.Contains(titles, "Hotkey Registration Issue") {
		t.Errorf("notifications = %s, want a registration warning", titles)
	}

	waitFor(t, "menu statuses", func() bool {
		snap := h.tray.last()
		return len(snap.Shortcuts) == 2 &&
			snap.Shortcuts[0].Status == hotkey.StatusOK && hotkey.IsError(snap.Shortcuts[1].Status)
	})
}

func TestRefreshMenuRunsOnUILoop(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.app.hist.Add("first", history.SourceManual); err != nil {
		t.Fatal(err)
	}

	h.app.RefreshMenu()
	h.app.RefreshMenu()
	if n := h.tray.count(); n != 0 {
		t.Fatalf("tray refreshed %d times before the UI loop ran", n)
	}

	h.app.Start()
	waitFor(t, "menu refresh", func() bool {
		snap := h.tray.last()
		return len(snap.History) == 1 && snap.History[0] == "first"
	})
	if n := h.tray.count(); n != 1 {
		t.Errorf("tray refreshed %d times, want queued refreshes merged into 1", n)
	}
}

func TestHotkeyPressDispatches(t *testing.T) {
	backend := newFakeBackend()
	h := newHarness(t, backend)
	if _, err := h.app.cfg.AddShortcut("ctrl+alt+d", "deploy", "", true); err != nil {
		t.Fatal(err)
	}
	h.app.Start()

	if !backend.press("ctrl+alt+d") {
		t.Fatal("shortcut hotkey not registered")
	}
	waitFor(t, "shortcut paste", func() bool { return len(h.pastedTexts()) == 1 })
	if got := h.pastedTexts()[0]; got != "[deploy-16.10.2026-09:30]" {
		t.Errorf("pasted %q", got)
	}

	if !backend.press("ctrl+shift+q") {
		t.Fatal("paste_datetime hotkey not registered")
	}
	waitFor(t, "datetime paste", func() bool { return len(h.pastedTexts()) == 2 })
}

func TestSearchHistoryCopiesChoice(t *testing.T) {
	h := newHarness(t, newFakeBackend())
	h.app.Start()
	for _, s := range []string{"first", "second", "third"} {
		if _, err := h.app.hist.Add(s, history.SourceManual); err != nil {
			t.Fatal(err)
		}
	}

	h.dialogs.pick = 1 // newest first: third, second, first
	h.app.SearchHistory()

	if got, _ := h.clip.Read(); got != "second" {
		t.Errorf("clipboard = %q, want %q", got, "second")
	}

	h.dialogs.err = ui.ErrCanceled
	h.clip.Write("unchanged")
	h.app.SearchHistory()
	if got, _ := h.clip.Read(); got != "unchanged" {
		t.Errorf("canceled search changed clipboard to %q", got)
	}
}

func TestClearHistoryNeedsConfirmation(t *testing.T) {
	h := newHarness(t, newFakeBackend())
	h.app.Start()
	h.app.hist.Add("keep me", history.SourceManual)

	h.app.ClearHistory()
	if h.app.hist.Len() != 1 {
		t.Fatal("history cleared without confirmation")
	}

	h.dialogs.confirm = true
	h.app.ClearHistory()
	if h.app.hist.Len() != 0 {
		t.Fatal("history not cleared after confirmation")
	}
	if h.dialogs.confirms != 2 {
		t.Errorf("confirm dialog shown %d times, want 2", h.dialogs.confirms)
	}

	// Nothing to clear: no dialog.
	h.app.ClearHistory()
	if h.dialogs.confirms != 2 {
		t.Errorf("confirm dialog shown for empty history")
	}
}

func TestAddShortcutFromDialog(t *testing.T) {
	backend := newFakeBackend()
	h := newHarness(t, backend)
	h.app.Start()

	h.dialogs.input = ui.ShortcutInput{Hotkey: "Ctrl+Shift+7", Prefix: "ticket", Description: "Support"}
	h.app.AddShortcut()

	scs := h.app.cfg.Shortcuts()
	if len(scs) != 1 || scs[0].Hotkey != "ctrl+shift+7" || scs[0].Prefix != "ticket" {
		t.Fatalf("shortcuts = %+v", scs)
	}
	if len(h.dialogs.checked) != 1 || h.dialogs.checked[0] == "" {
		t.Errorf("dialog suggestion = %q", h.dialogs.checked)
	}
	if st := h.app.hotkeys.Status()[scs[0].ID]; st != hotkey.StatusOK {
		t.Errorf("status = %q", st)
	}
	if !backend.press("ctrl+shift+7") {
		t.Error("new shortcut not registered")
	}

	// A built-in hotkey is refused by the dialog's check.
	h.dialogs.input = ui.ShortcutInput{Hotkey: "ctrl+shift+q", Prefix: "x"}
	h.app.AddShortcut()
	if n := len(h.app.cfg.Shortcuts()); n != 1 {
		t.Errorf("shortcut with built-in hotkey was added; have %d", n)
	}
}

func TestRemoveShortcutReleasesHotkey(t *testing.T) {
	backend := newFakeBackend()
	h := newHarness(t, backend)
	keep, _ := h.app.cfg.AddShortcut("ctrl+shift+5", "keep", "", true)
	drop, _ := h.app.cfg.AddShortcut("ctrl+shift+6", "drop", "", true)
	h.app.Start()

	h.dialogs.pick = 1
	h.app.RemoveShortcut()

	if _, ok := h.app.cfg.Shortcut(drop); ok {
		t.Error("shortcut still stored")
	}
	if _, ok := h.app.cfg.Shortcut(keep); !ok {
		t.Error("wrong shortcut removed")
	}
	if backend.press("ctrl+shift+6") {
		t.Error("hotkey of removed shortcut still registered")
	}
	if _, ok := h.app.hotkeys.Status()[drop]; ok {
		t.Error("status still lists removed shortcut")
	}
}

func TestRecordClipboard(t *testing.T) {
	h := newHarness(t, nil)

	h.app.RecordClipboard()
	if h.app.hist.Len() != 0 {
		t.Fatal("empty clipboard recorded")
	}
	if titles := h.notes.titles(); len(titles) == 0 || titles[len(titles)-1] != "Nothing Recorded" {
		t.Errorf("notifications = %v", titles)
	}

	h.clip.Write("meeting notes")
	h.app.RecordClipboard()
	if !h.app.hist.Contains("meeting notes") {
		t.Error("clipboard text not recorded")
	}

	h.app.RecordClipboard()
	if h.app.hist.Len() != 1 {
		t.Errorf("history has %d entries after recording the same text twice", h.app.hist.Len())
	}
	if titles := h.notes.titles(); titles[len(titles)-1] != "Already Recorded" {
		t.Errorf("notifications = %v", titles)
	}
}

func TestCopyDatetimeAddsToHistory(t *testing.T) {
	h := newHarness(t, nil)
	h.app.CopyDatetime()

	if got, _ := h.clip.Read(); got != "[16.10.2026-09:30]" {
		t.Errorf("clipboard = %q", got)
	}
	if !h.app.hist.Contains("[16.10.2026-09:30]") {
		t.Error("stamp not added to history")
	}
}

func TestQuitShutsDownOnce(t *testing.T) {
	backend := newFakeBackend()
	h := newHarness(t, backend)
	h.app.Start()

	h.app.Quit()
	h.app.Quit()

	if h.tray.quits != 1 {
		t.Errorf("tray quit %d times, want 1", h.tray.quits)
	}
	if n := backend.count(); n != 0 {
		t.Errorf("%d hotkeys still registered", n)
	}
	if !h.app.coord.Wait(time.Second) {
		t.Fatal("goroutines did not stop")
	}

	h.app.closeStores()
	l, err := instance.Acquire(h.app.dataDir)
	if err != nil {
		t.Fatalf("lock not released: %v", err)
	}
	l.Release()
}
