package ui

import (
	"fmt"

	"github.com/rkvasne/dahora-app-sub000/internal/hotkey"
)

// ShortcutItem is a custom shortcut as the menu shows it.
type ShortcutItem struct {
	ID      int
	Hotkey  string
	Prefix  string
	Enabled bool
	// Status is the hotkey registration status, see hotkey.StatusOK.
	Status string
}

// MenuSnapshot is the state the tray menu is rebuilt from.
type MenuSnapshot struct {
	History   []string
	Shortcuts []ShortcutItem
}

// Slot is the state of one preallocated menu item.
type Slot struct {
	Title   string
	Tooltip string
	Visible bool
	Enabled bool
	// Index points back into the snapshot slice the slot was built from.
	Index int
}

// HistorySlots lays out the newest entries over n slots. Extra slots are
// hidden. When there is no history the first slot shows a disabled
// placeholder.
func HistorySlots(history []string, n, width int) []Slot {
	slots := make([]Slot, n)
	for i := range slots {
		slots[i].Index = -1
	}
	if n == 0 {
		return slots
	}
	if len(history) == 0 {
		slots[0] = Slot{Title: "(empty)", Visible: true, Index: -1}
		return slots
	}
	for i := 0; i < n && i < len(history); i++ {
		slots[i] = Slot{
			Title:   Preview(history[i], width),
			Tooltip: "Copy to clipboard",
			Visible: true,
			Enabled: true,
			Index:   i,
		}
	}
	return slots
}

// ShortcutSlots lays out custom shortcuts over n slots.
func ShortcutSlots(items []ShortcutItem, n int) []Slot {
	slots := make([]Slot, n)
	for i := range slots {
		slots[i].Index = -1
	}
	if n == 0 {
		return slots
	}
	if len(items) == 0 {
		slots[0] = Slot{Title: "(no shortcuts)", Visible: true, Index: -1}
		return slots
	}
	for i := 0; i < n && i < len(items); i++ {
		it := items[i]
		title := fmt.Sprintf("%s  %s", it.Hotkey, it.Prefix)
		tooltip := "Insert the date with this prefix"
		switch {
		case !it.Enabled:
			title += " (disabled)"
		case hotkey.IsError(it.Status):
			title += " (not registered)"
			tooltip = it.Status
		}
		slots[i] = Slot{Title: title, Tooltip: tooltip, Visible: true, Enabled: true, Index: i}
	}
	return slots
}
