// Package app wires the stores, the clipboard monitor, the hotkey manager
// and the tray into the running application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rkvasne/dahora-app-sub000/internal/clipboard"
	"github.com/rkvasne/dahora-app-sub000/internal/config"
	"github.com/rkvasne/dahora-app-sub000/internal/coord"
	"github.com/rkvasne/dahora-app-sub000/internal/history"
	"github.com/rkvasne/dahora-app-sub000/internal/hotkey"
	"github.com/rkvasne/dahora-app-sub000/internal/instance"
	"github.com/rkvasne/dahora-app-sub000/internal/keycombo"
	"github.com/rkvasne/dahora-app-sub000/internal/stamp"
	"github.com/rkvasne/dahora-app-sub000/internal/stats"
	"github.com/rkvasne/dahora-app-sub000/internal/ui"
)

// AppName is used for window titles and notifications.
const AppName = "Dahora"

// File names inside the data directory.
const (
	SettingsFile = "settings.json"
	HistoryFile  = "history.json"
)

const (
	menuHistoryItems = 10
	shutdownTimeout  = 3 * time.Second
)

// Tray is the tray icon as the application drives it.
type Tray interface {
	Run()
	Quit()
	Refresh(ui.MenuSnapshot)
}

// Notifier shows desktop notifications. *ui.NotificationManager implements it.
type Notifier interface {
	Notify(level ui.Level, title, message string)
}

// Options are the platform pieces the application is built from.
type Options struct {
	DataDir string
	Version string

	// Clipboard is used when set; otherwise the backend named in the
	// settings is created with NewClipboard.
	Clipboard    clipboard.Clipboard
	NewClipboard func(backend string) (clipboard.Clipboard, error)
	// HotkeyBackend may be nil; the application then runs tray-only.
	HotkeyBackend hotkey.Backend
	Dialogs       ui.Dialogs
	Notifier      Notifier
}

// Application is the running tray application.
type Application struct {
	version string
	dataDir string

	coord   *coord.Coordinator
	loop    *coord.Loop
	lock    *instance.Lock
	cfg     *config.Store
	hist    *history.Store
	stats   *stats.DB
	clip    clipboard.Clipboard
	monitor *clipboard.Monitor
	hotkeys *hotkey.Manager

	dialogs  ui.Dialogs
	notifier Notifier
	tray     Tray

	refreshPending atomic.Bool

	now      func() time.Time
	paste    func(clipboard.Clipboard, string, clipboard.PasteOptions) error
	openFile func(string) error
}

// New takes the single-instance lock and loads every store. It returns
// instance.ErrAlreadyRunning when another instance owns dataDir.
func New(opts Options) (*Application, error) {
	if err := os.MkdirAll(opts.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	lock, err := instance.Acquire(opts.DataDir)
	if err != nil {
		return nil, err
	}

	a := &Application{
		version:  opts.Version,
		dataDir:  opts.DataDir,
		coord:    coord.New(context.Background()),
		loop:     coord.NewLoop(16),
		lock:     lock,
		dialogs:  opts.Dialogs,
		notifier: opts.Notifier,
		now:      time.Now,
		paste:    clipboard.PasteText,
		openFile: ui.OpenFileInDefaultApp,
	}
	if a.notifier == nil {
		a.notifier = ui.NewNotificationManager(false, AppName, nil)
	}

	a.cfg = config.Open(filepath.Join(opts.DataDir, SettingsFile))
	settings := a.cfg.Settings()
	if n, ok := a.notifier.(interface{ SetEnabled(bool) }); ok {
		n.SetEnabled(settings.NotificationsEnabled)
	}

	a.hist = history.New(filepath.Join(opts.DataDir, HistoryFile), settings.MaxHistoryItems)
	a.hist.Load()

	if a.stats, err = stats.Open(opts.DataDir); err != nil {
		slog.Warn("Usage statistics are disabled", "error", err)
		a.stats = nil
	}

	a.clip = opts.Clipboard
	if a.clip == nil {
		a.clip, err = a.openClipboard(settings.ClipboardBackend, opts.NewClipboard)
		if err != nil {
			a.closeStores()
			return nil, err
		}
	}

	a.monitor = clipboard.NewMonitor(a.clip, a.hist, monitorConfig(settings, a.onCaptured))
	a.hotkeys = hotkey.NewManager(opts.HotkeyBackend, hotkey.Options{
		Conflicts: a.cfg.CheckHotkey,
		OnCustom:  a.InsertShortcut,
		Spawn:     a.Spawn,
	})
	return a, nil
}

func (a *Application) openClipboard(backend string, factory func(string) (clipboard.Clipboard, error)) (clipboard.Clipboard, error) {
	if factory != nil {
		clip, err := factory(backend)
		if err == nil {
			return clip, nil
		}
		slog.Warn("Clipboard backend unavailable, falling back", "backend", backend, "error", err)
	}
	clip, err := clipboard.NewAtotto()
	if err != nil {
		return nil, fmt.Errorf("no clipboard backend available: %w", err)
	}
	return clip, nil
}

func monitorConfig(s config.Settings, onChange func(string)) clipboard.MonitorConfig {
	return clipboard.MonitorConfig{
		FastInterval:  time.Duration(s.PollFastMs) * time.Millisecond,
		SlowInterval:  time.Duration(s.PollSlowMs) * time.Millisecond,
		MaxInterval:   time.Duration(s.PollMaxMs) * time.Millisecond,
		ErrorInterval: time.Duration(s.PollErrorMs) * time.Millisecond,
		IdleThreshold: time.Duration(s.IdleThresholdS) * time.Second,
		OnChange:      onChange,
	}
}

// SetTray attaches the tray. Call before Run.
func (a *Application) SetTray(t Tray) {
	a.tray = t
}

// Coordinator exposes the shutdown latch, e.g. for signal handling.
func (a *Application) Coordinator() *coord.Coordinator {
	return a.coord
}

// Spawn runs fn in a goroutine supervised by the coordinator.
func (a *Application) Spawn(name string, fn func()) {
	a.coord.Go(name, func(context.Context) { fn() })
}

// Start registers the hotkeys and starts the background goroutines. It
// returns without blocking.
func (a *Application) Start() {
	a.coord.OnShutdown("hotkeys", a.hotkeys.UnregisterAll)
	a.coord.OnShutdown("ui loop", a.loop.Stop)
	a.coord.OnShutdown("tray", func() {
		if a.tray != nil {
			a.tray.Quit()
		}
	})

	a.coord.Go("ui loop", func(ctx context.Context) {
		if err := a.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("UI loop failed", "error", err)
		}
	})
	a.coord.Go("clipboard monitor", func(ctx context.Context) {
		if err := a.monitor.Run(ctx); err != nil {
			slog.Error("Clipboard monitor stopped", "error", err)
		}
	})

	a.registerBuiltins()
	a.registerCustom()
	a.RefreshMenu()
	slog.Info("Application started", "version", a.version, "data_dir", a.dataDir)
}

// Run starts the application and blocks until it has shut down. With a tray
// it must be called from the main goroutine.
func (a *Application) Run() {
	a.Start()
	if a.tray != nil {
		a.tray.Run()
		a.Quit()
	} else {
		<-a.coord.Done()
	}
	a.finish()
}

// Quit requests shutdown. Only the first call has any effect.
func (a *Application) Quit() {
	a.coord.RequestShutdown()
}

func (a *Application) finish() {
	if !a.coord.Wait(shutdownTimeout) {
		slog.Warn("Some goroutines did not stop in time")
	}
	a.closeStores()
	slog.Info("Application stopped")
}

func (a *Application) closeStores() {
	if a.stats != nil {
		if err := a.stats.Close(); err != nil {
			slog.Warn("Failed to close statistics database", "error", err)
		}
	}
	if err := a.lock.Release(); err != nil {
		slog.Warn("Failed to release instance lock", "error", err)
	}
}

func (a *Application) registerBuiltins() {
	keys := a.cfg.Settings().BuiltinHotkeys()
	handlers := map[string]func(){
		config.ActionPasteDatetime: a.PasteDatetime,
		config.ActionSearchHistory: a.SearchHistory,
		config.ActionRefreshMenu:   a.RefreshMenu,
	}
	var builtins []hotkey.Builtin
	for _, name := range []string{config.ActionPasteDatetime, config.ActionSearchHistory, config.ActionRefreshMenu} {
		builtins = append(builtins, hotkey.Builtin{Name: name, Hotkey: keys[name], Handler: handlers[name]})
	}

	var failed []string
	for name, st := range a.hotkeys.SetupBuiltins(builtins) {
		if hotkey.IsError(st) {
			failed = append(failed, fmt.Sprintf("%s (%s)", keys[name], strings.TrimPrefix(st, "error:")))
		}
	}
	if len(failed) > 0 && a.hotkeys.Available() {
		sort.Strings(failed)
		a.notifier.Notify(ui.LevelWarn, "Hotkey Registration Issue",
			"Some built-in hotkeys could not be registered: "+strings.Join(failed, ", "))
	}
}

// registerCustom (re)binds every custom shortcut and reports failures.
func (a *Application) registerCustom() hotkey.RegistrationResult {
	shortcuts := a.cfg.Shortcuts()
	bindings := make([]hotkey.Binding, len(shortcuts))
	for i, sc := range shortcuts {
		bindings[i] = hotkey.Binding{ID: sc.ID, Hotkey: sc.Hotkey, Enabled: sc.Enabled}
	}
	result := a.hotkeys.SetupCustomHotkeys(bindings)

	errs := result.Errors()
	if len(errs) == 0 || !a.hotkeys.Available() {
		return result
	}
	ids := make([]int, 0, len(errs))
	for id := range errs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var lines []string
	for _, id := range ids {
		if sc, ok := a.cfg.Shortcut(id); ok {
			lines = append(lines, fmt.Sprintf("%s (%s)", sc.Hotkey, errs[id]))
		}
	}
	a.recordEvent(stats.KindHotkeyErr, fmt.Sprint(len(ids)))
	a.notifier.Notify(ui.LevelWarn, "Hotkey Registration Issue",
		fmt.Sprintf("%d shortcut(s) could not be registered: %s", len(ids), strings.Join(lines, ", ")))
	return result
}

func (a *Application) formatter() stamp.Formatter {
	s := a.cfg.Settings()
	return stamp.Formatter{Layout: s.DatetimeFormat, Open: s.BracketOpen, Close: s.BracketClose}
}

// insert pastes text into the focused window.
func (a *Application) insert(text string) error {
	opts := clipboard.DefaultPasteOptions()
	opts.Restore = a.cfg.Settings().RestoreClipboard
	opts.Seen = a.monitor.Ignore
	return a.coord.ResourceLock(func() error {
		return a.paste(a.clip, text, opts)
	})
}

// PasteDatetime pastes the stamp without a prefix.
func (a *Application) PasteDatetime() {
	text := a.formatter().Format(a.now(), "")
	if err := a.insert(text); err != nil {
		slog.Warn("Failed to paste date/time", "error", err)
		a.notifier.Notify(ui.LevelWarn, "Paste Failed", "The date was copied to the clipboard; paste it with Ctrl+V.")
		return
	}
	a.recordEvent(stats.KindPaste, "")
}

// InsertShortcut pastes the stamp of custom shortcut id. It's the hotkey
// manager's OnCustom callback and the tray's shortcut action.
func (a *Application) InsertShortcut(id int) {
	sc, ok := a.cfg.Shortcut(id)
	if !ok {
		slog.Warn("Shortcut triggered but no longer exists", "id", id)
		return
	}
	if !sc.Enabled {
		slog.Info("Ignoring disabled shortcut", "id", id)
		return
	}
	text := a.formatter().Format(a.now(), sc.Prefix)
	if err := a.insert(text); err != nil {
		slog.Warn("Failed to paste shortcut text", "id", id, "error", err)
		a.notifier.Notify(ui.LevelWarn, "Paste Failed", "The text was copied to the clipboard; paste it with Ctrl+V.")
		return
	}
	a.recordEvent(stats.KindShortcut, fmt.Sprint(id))
}

// CopyDatetime puts the stamp on the clipboard and in the history.
func (a *Application) CopyDatetime() {
	text := a.formatter().Format(a.now(), "")
	if err := a.copyText(text); err != nil {
		return
	}
	if _, err := a.hist.Add(text, history.SourceManual); err != nil {
		slog.Warn("Failed to save history", "error", err)
	}
	a.notifier.Notify(ui.LevelInfo, "Copied", text)
	a.RefreshMenu()
}

// CopyHistory puts text back on the clipboard.
func (a *Application) CopyHistory(text string) {
	if err := a.copyText(text); err != nil {
		return
	}
	a.notifier.Notify(ui.LevelInfo, "Copied", ui.Preview(text, 80))
}

func (a *Application) copyText(text string) error {
	a.monitor.Ignore(text)
	err := a.coord.ResourceLock(func() error { return a.clip.Write(text) })
	if err != nil {
		slog.Warn("Failed to write clipboard", "error", err)
		a.notifier.Notify(ui.LevelError, "Clipboard Error", "Could not write to the clipboard.")
	}
	return err
}

// SearchHistory lets the user pick a history entry and copies it.
func (a *Application) SearchHistory() {
	texts := newestFirst(a.hist.All())
	if len(texts) == 0 {
		a.notifier.Notify(ui.LevelInfo, "Search History", "The history is empty.")
		return
	}

	idx := -1
	err := a.dialog(func() error {
		var err error
		idx, err = a.dialogs.PickHistory(texts)
		return err
	})
	if err != nil || idx < 0 || idx >= len(texts) {
		return
	}
	a.recordEvent(stats.KindSearch, "")
	a.CopyHistory(texts[idx])
}

// RecordClipboard adds the current clipboard contents to the history.
func (a *Application) RecordClipboard() {
	var text string
	err := a.coord.ResourceLock(func() error {
		var err error
		text, err = a.clip.Read()
		return err
	})
	if err != nil {
		slog.Warn("Failed to read clipboard", "error", err)
		a.notifier.Notify(ui.LevelWarn, "Clipboard Error", "Could not read the clipboard.")
		return
	}
	if strings.TrimSpace(text) == "" {
		a.notifier.Notify(ui.LevelInfo, "Nothing Recorded", "The clipboard is empty.")
		return
	}
	if a.hist.Contains(text) {
		a.notifier.Notify(ui.LevelInfo, "Already Recorded", "The clipboard text is already in the history.")
		return
	}
	a.monitor.Ignore(text)
	added, err := a.hist.Add(text, history.SourceManual)
	if err != nil {
		slog.Warn("Failed to save history", "error", err)
		a.notifier.Notify(ui.LevelError, "Save Error", "The entry was recorded but could not be saved.")
	}
	if added {
		a.recordEvent(stats.KindRecord, "")
		a.RefreshMenu()
	}
}

// ClearHistory empties the history after confirmation.
func (a *Application) ClearHistory() {
	count := a.hist.Len()
	if count == 0 {
		a.notifier.Notify(ui.LevelInfo, "Clear History", "The history is already empty.")
		return
	}
	var ok bool
	err := a.dialog(func() error {
		var err error
		ok, err = a.dialogs.ConfirmClear(count)
		return err
	})
	if err != nil || !ok {
		return
	}
	n, err := a.hist.Clear()
	if err != nil {
		slog.Error("Failed to clear history", "error", err)
		a.notifier.Notify(ui.LevelError, "Save Error", fmt.Sprintf("Failed to clear history: %v", err))
		return
	}
	a.recordEvent(stats.KindClear, fmt.Sprint(n))
	a.notifier.Notify(ui.LevelInfo, "History Cleared", fmt.Sprintf("%d entries deleted.", n))
	a.RefreshMenu()
}

// AddShortcut asks for a new custom shortcut, saves it and binds it.
func (a *Application) AddShortcut() {
	settings := a.cfg.Settings()
	if len(a.cfg.Shortcuts()) >= settings.MaxCustomShortcuts {
		a.notifier.Notify(ui.LevelWarn, "Add Shortcut",
			fmt.Sprintf("The limit of %d custom shortcuts has been reached.", settings.MaxCustomShortcuts))
		return
	}

	var in ui.ShortcutInput
	err := a.dialog(func() error {
		var err error
		in, err = a.dialogs.AddShortcut(a.suggestHotkey(), func(hk string) error {
			return a.hotkeys.ValidateHotkey(hk, 0)
		})
		return err
	})
	if err != nil {
		return
	}

	id, err := a.cfg.AddShortcut(in.Hotkey, in.Prefix, in.Description, true)
	if err != nil {
		slog.Warn("Failed to add shortcut", "hotkey", in.Hotkey, "error", err)
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			a.notifier.Notify(ui.LevelWarn, "Invalid Shortcut", verr.Error())
		} else {
			a.notifier.Notify(ui.LevelError, "Save Error", fmt.Sprintf("Failed to save settings: %v", err))
		}
		return
	}
	slog.Info("Added custom shortcut", "id", id, "hotkey", in.Hotkey)

	result := a.registerCustom()
	if st := result[id]; st == hotkey.StatusOK {
		a.notifier.Notify(ui.LevelInfo, "Shortcut Added",
			fmt.Sprintf("%s inserts %s", keycombo.Canonical(in.Hotkey), a.formatter().Format(a.now(), in.Prefix)))
	}
	a.RefreshMenu()
}

// RemoveShortcut asks which custom shortcut to delete, removes it and
// releases its hotkey.
func (a *Application) RemoveShortcut() {
	scs := a.cfg.Shortcuts()
	if len(scs) == 0 {
		a.notifier.Notify(ui.LevelInfo, "Remove Shortcut", "There are no custom shortcuts.")
		return
	}
	labels := make([]string, len(scs))
	for i, sc := range scs {
		labels[i] = fmt.Sprintf("%s  %s", sc.Hotkey, sc.Prefix)
	}

	idx := -1
	err := a.dialog(func() error {
		var err error
		idx, err = a.dialogs.PickShortcut(labels)
		return err
	})
	if err != nil || idx < 0 || idx >= len(scs) {
		return
	}
	id := scs[idx].ID
	if err := a.cfg.RemoveShortcut(id); err != nil {
		slog.Warn("Failed to remove shortcut", "id", id, "error", err)
		a.notifier.Notify(ui.LevelError, "Save Error", fmt.Sprintf("Failed to remove shortcut: %v", err))
		return
	}
	if err := a.hotkeys.UnregisterCustomShortcut(id); err != nil && !errors.Is(err, hotkey.ErrNotRegistered) {
		slog.Warn("Failed to release shortcut hotkey", "id", id, "error", err)
	}
	a.notifier.Notify(ui.LevelInfo, "Shortcut Removed", labels[idx])
	a.RefreshMenu()
}

func (a *Application) suggestHotkey() string {
	var taken []string
	for _, hk := range a.cfg.Settings().BuiltinHotkeys() {
		taken = append(taken, hk)
	}
	for _, sc := range a.cfg.Shortcuts() {
		taken = append(taken, sc.Hotkey)
	}
	return keycombo.SuggestFreeHotkey("ctrl+shift", taken...)
}

// OpenSettings opens settings.json, writing it first if it doesn't exist.
func (a *Application) OpenSettings() {
	path := a.cfg.Path()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := a.cfg.Save(); err != nil {
			slog.Warn("Failed to write settings file", "error", err)
		}
	}
	if err := a.openFile(path); err != nil {
		slog.Warn("Failed to open settings file", "path", path, "error", err)
		a.notifier.Notify(ui.LevelWarn, "Error Opening File", fmt.Sprintf("Could not open %s: %v", path, err))
	}
}

// RefreshMenu queues a rebuild of the dynamic part of the tray menu on the
// UI loop. At most one rebuild is queued at a time, and its snapshot is taken
// when it runs.
func (a *Application) RefreshMenu() {
	if a.tray == nil {
		return
	}
	if !a.refreshPending.CompareAndSwap(false, true) {
		return
	}
	err := a.loop.Post(func() {
		a.refreshPending.Store(false)
		err := a.coord.UIOperation(func() error {
			a.tray.Refresh(a.menuSnapshot())
			return nil
		})
		if err != nil {
			slog.Error("Failed to refresh tray menu", "error", err)
		}
	})
	if err != nil {
		a.refreshPending.Store(false)
		slog.Debug("Tray menu not refreshed", "error", err)
	}
}

func (a *Application) menuSnapshot() ui.MenuSnapshot {
	snap := ui.MenuSnapshot{History: newestFirst(a.hist.Recent(menuHistoryItems))}
	status := a.hotkeys.Status()
	for _, sc := range a.cfg.Shortcuts() {
		snap.Shortcuts = append(snap.Shortcuts, ui.ShortcutItem{
			ID:      sc.ID,
			Hotkey:  sc.Hotkey,
			Prefix:  sc.Prefix,
			Enabled: sc.Enabled,
			Status:  status[sc.ID],
		})
	}
	return snap
}

func newestFirst(entries []history.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e.Text
	}
	return out
}

// dialog runs fn on the UI loop. Cancellation is not an error worth
// reporting.
func (a *Application) dialog(fn func() error) error {
	if a.dialogs == nil {
		return errors.New("dialogs are not available")
	}
	err := a.loop.Call(a.coord.Context(), fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ui.ErrCanceled):
		slog.Info("Dialog canceled")
	default:
		slog.Warn("Dialog failed", "error", err)
	}
	return err
}

func (a *Application) onCaptured(text string) {
	a.recordEvent(stats.KindCapture, "")
	a.RefreshMenu()
}

func (a *Application) recordEvent(kind, detail string) {
	if a.stats == nil {
		return
	}
	if err := a.stats.RecordEvent(kind, detail); err != nil {
		slog.Debug("Failed to record usage event", "kind", kind, "error", err)
	}
}
