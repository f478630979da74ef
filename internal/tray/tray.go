// Package tray renders the system tray icon and menu with
// github.com/getlantern/systray.
package tray

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/rkvasne/dahora-app-sub000/internal/ui"
)

const previewWidth = 48

// Actions are the callbacks behind the menu items. Nil actions leave their
// item disabled.
type Actions struct {
	CopyDatetime    func()
	SearchHistory   func()
	CopyHistory     func(text string)
	InsertShortcut  func(id int)
	RecordClipboard func()
	ClearHistory    func()
	AddShortcut     func()
	RemoveShortcut  func()
	OpenSettings    func()
	Quit            func()
}

// Options configures a Tray.
type Options struct {
	Title         string
	Version       string
	Icon          []byte
	HistorySlots  int
	ShortcutSlots int
	// Spawn runs a click handler off the menu goroutine.
	Spawn func(name string, fn func())
	// OnReady is called once the menu exists.
	OnReady func()
}

// Tray owns the menu. The recent-history and shortcut submenus have a fixed
// number of item slots created up front; Refresh retitles them and hides
// the ones not in use.
type Tray struct {
	opts    Options
	actions Actions

	mu        sync.Mutex
	ready     bool
	snapshot  ui.MenuSnapshot
	history   []*systray.MenuItem
	shortcuts []*systray.MenuItem
}

// New returns a tray that is not shown until Run.
func New(opts Options, actions Actions) *Tray {
	if opts.HistorySlots <= 0 {
		opts.HistorySlots = 10
	}
	if opts.ShortcutSlots <= 0 {
		opts.ShortcutSlots = 10
	}
	if opts.Spawn == nil {
		opts.Spawn = func(name string, fn func()) { go fn() }
	}
	return &Tray{opts: opts, actions: actions}
}

// Run shows the tray and blocks until Quit. It must be called from the main
// goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// Refresh updates the dynamic parts of the menu. Before the tray is ready
// the snapshot is kept and applied once it is.
func (t *Tray) Refresh(s ui.MenuSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot = s
	if t.ready {
		t.applyLocked()
	}
}

func (t *Tray) onReady() {
	title := fmt.Sprintf("%s %s", t.opts.Title, t.opts.Version)
	systray.SetTitle(t.opts.Title)
	systray.SetTooltip(title)
	if len(t.opts.Icon) > 0 {
		systray.SetIcon(t.opts.Icon)
	} else {
		slog.Warn("No embedded icon data to set for systray")
	}

	miVersion := systray.AddMenuItem("Version: "+t.opts.Version, title)
	miVersion.Disable()
	systray.AddSeparator()

	t.item("Copy Date/Time", "Copy the current date and time to the clipboard", t.actions.CopyDatetime)
	t.item("Search History...", "Pick an entry from the clipboard history", t.actions.SearchHistory)

	miRecent := systray.AddMenuItem("Recent", "Recent clipboard entries")
	t.history = make([]*systray.MenuItem, t.opts.HistorySlots)
	for i := range t.history {
		mi := miRecent.AddSubMenuItem("", "")
		mi.Hide()
		t.history[i] = mi
		go t.watchSlot(mi, i, t.clickHistory)
	}

	miShortcuts := systray.AddMenuItem("Shortcuts", "Custom date shortcuts")
	t.shortcuts = make([]*systray.MenuItem, t.opts.ShortcutSlots)
	for i := range t.shortcuts {
		mi := miShortcuts.AddSubMenuItem("", "")
		mi.Hide()
		t.shortcuts[i] = mi
		go t.watchSlot(mi, i, t.clickShortcut)
	}
	systray.AddSeparator()

	t.item("Record Clipboard", "Add the current clipboard contents to the history", t.actions.RecordClipboard)
	t.item("Clear History...", "Delete every history entry", t.actions.ClearHistory)
	t.item("Add Shortcut...", "Create a custom date shortcut", t.actions.AddShortcut)
	t.item("Remove Shortcut...", "Delete a custom date shortcut", t.actions.RemoveShortcut)
	t.item("Open Settings File", "Open settings.json in the default editor", t.actions.OpenSettings)
	systray.AddSeparator()
	t.item("Quit", "Exit the application", t.actions.Quit)

	t.mu.Lock()
	t.ready = true
	t.applyLocked()
	t.mu.Unlock()

	slog.Info("Systray ready and menu configured")
	if t.opts.OnReady != nil {
		t.opts.OnReady()
	}
}

func (t *Tray) onExit() {
	slog.Info("Systray exiting")
}

func (t *Tray) item(title, tooltip string, action func()) {
	mi := systray.AddMenuItem(title, tooltip)
	if action == nil {
		mi.Disable()
		return
	}
	go func() {
		for range mi.ClickedCh {
			slog.Debug("Menu item clicked", "item", title)
			t.opts.Spawn(title, action)
		}
	}()
}

func (t *Tray) watchSlot(mi *systray.MenuItem, slot int, click func(int)) {
	for range mi.ClickedCh {
		click(slot)
	}
}

// clickHistory resolves the slot against the snapshot shown right now.
func (t *Tray) clickHistory(slot int) {
	t.mu.Lock()
	var text string
	ok := slot < len(t.snapshot.History) && slot < len(t.history)
	if ok {
		text = t.snapshot.History[slot]
	}
	t.mu.Unlock()
	if !ok || t.actions.CopyHistory == nil {
		return
	}
	t.opts.Spawn("copy history entry", func() { t.actions.CopyHistory(text) })
}

func (t *Tray) clickShortcut(slot int) {
	t.mu.Lock()
	id := -1
	if slot < len(t.snapshot.Shortcuts) {
		id = t.snapshot.Shortcuts[slot].ID
	}
	t.mu.Unlock()
	if id < 0 || t.actions.InsertShortcut == nil {
		return
	}
	t.opts.Spawn(fmt.Sprintf("shortcut %d", id), func() { t.actions.InsertShortcut(id) })
}

func (t *Tray) applyLocked() {
	apply(t.history, ui.HistorySlots(t.snapshot.History, len(t.history), previewWidth))
	apply(t.shortcuts, ui.ShortcutSlots(t.snapshot.Shortcuts, len(t.shortcuts)))
}

func apply(items []*systray.MenuItem, slots []ui.Slot) {
	for i, mi := range items {
		s := slots[i]
		if !s.Visible {
			mi.Hide()
			continue
		}
		mi.SetTitle(s.Title)
		mi.SetTooltip(s.Tooltip)
		if s.Enabled {
			mi.Enable()
		} else {
			mi.Disable()
		}
		mi.Show()
	}
}
