package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ncruces/zenity"
)

// ErrCanceled is returned when the user dismisses a dialog.
var ErrCanceled = zenity.ErrCanceled

// ShortcutInput is what the add-shortcut dialog collects.
type ShortcutInput struct {
	Hotkey      string
	Prefix      string
	Description string
}

// Dialogs are the modal dialogs the tray actions open.
type Dialogs interface {
	// PickHistory lets the user choose one of entries and returns its index.
	PickHistory(entries []string) (int, error)
	// AddShortcut asks for a hotkey (pre-filled with suggestion), a prefix and
	// a description. check is called on the hotkey before moving on.
	AddShortcut(suggestion string, check func(hotkey string) error) (ShortcutInput, error)
	// PickShortcut lets the user choose one of the labelled shortcuts to
	// remove and returns its index.
	PickShortcut(labels []string) (int, error)
	// ConfirmClear asks before deleting count history entries.
	ConfirmClear(count int) (bool, error)
	Error(title, message string)
}

// Zenity implements Dialogs with github.com/ncruces/zenity.
type Zenity struct {
	AppName string
}

func (z Zenity) title(s string) zenity.Option {
	return zenity.Title(z.AppName + " - " + s)
}

func (z Zenity) PickHistory(entries []string) (int, error) {
	if len(entries) == 0 {
		return -1, errors.New("history is empty")
	}
	items := HistoryListItems(entries, 80)
	choice, err := zenity.List(
		"Select an entry to copy to the clipboard:",
		items,
		z.title("Search History"),
		zenity.Height(420),
		zenity.Width(560),
	)
	if err != nil {
		return -1, err
	}
	idx, ok := ParseHistoryListItem(choice)
	if !ok || idx >= len(entries) {
		return -1, fmt.Errorf("unexpected selection %q", choice)
	}
	return idx, nil
}

func (z Zenity) PickShortcut(labels []string) (int, error) {
	if len(labels) == 0 {
		return -1, errors.New("no shortcuts")
	}
	choice, err := zenity.List(
		"Select the shortcut to remove:",
		HistoryListItems(labels, 80),
		z.title("Remove Shortcut"),
		zenity.Height(360),
	)
	if err != nil {
		return -1, err
	}
	idx, ok := ParseHistoryListItem(choice)
	if !ok || idx >= len(labels) {
		return -1, fmt.Errorf("unexpected selection %q", choice)
	}
	return idx, nil
}

func (z Zenity) AddShortcut(suggestion string, check func(hotkey string) error) (ShortcutInput, error) {
	var in ShortcutInput
	hotkey := suggestion
	for {
		var err error
		hotkey, err = zenity.Entry(
			"Hotkey (for example ctrl+shift+1):",
			z.title("Add Shortcut"),
			zenity.EntryText(hotkey),
			zenity.DisallowEmpty(),
		)
		if err != nil {
			return in, err
		}
		hotkey = strings.TrimSpace(hotkey)
		if check == nil {
			break
		}
		if err := check(hotkey); err != nil {
			slog.Info("Rejected hotkey in add-shortcut dialog", "hotkey", hotkey, "reason", err)
			z.Error("Invalid Hotkey", err.Error())
			continue
		}
		break
	}
	in.Hotkey = hotkey

	prefix, err := zenity.Entry(
		"Prefix inserted before the date (up to 50 characters):",
		z.title("Add Shortcut"),
		zenity.DisallowEmpty(),
	)
	if err != nil {
		return in, err
	}
	in.Prefix = strings.TrimSpace(prefix)

	desc, err := zenity.Entry(
		"Description (optional):",
		z.title("Add Shortcut"),
	)
	if err != nil && !errors.Is(err, zenity.ErrCanceled) {
		return in, err
	}
	in.Description = strings.TrimSpace(desc)
	return in, nil
}

func (z Zenity) ConfirmClear(count int) (bool, error) {
	err := zenity.Question(
		fmt.Sprintf("Delete all %d history entries? This can't be undone.", count),
		z.title("Clear History"),
		zenity.WarningIcon,
		zenity.OKLabel("Clear"),
		zenity.CancelLabel("Cancel"),
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (z Zenity) Error(title, message string) {
	if err := zenity.Error(message, z.title(title), zenity.ErrorIcon); err != nil {
		slog.Warn("Error showing error dialog", "title", title, "error", err)
	}
}

// HistoryListItems renders entries as "N. preview" lines so a selection can
// be mapped back to its index even when two previews look the same.
func HistoryListItems(entries []string, width int) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = strconv.Itoa(i+1) + ". " + Preview(e, width)
	}
	return out
}

// ParseHistoryListItem returns the zero-based index of an item produced by
// HistoryListItems.
func ParseHistoryListItem(item string) (int, bool) {
	num, _, ok := strings.Cut(item, ". ")
	if !ok {
		return -1, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return -1, false
	}
	return n - 1, true
}

// Preview flattens text to one line and shortens it to at most width runes.
func Preview(text string, width int) string {
	s := strings.Join(strings.Fields(text), " ")
	r := []rune(s)
	if width > 1 && len(r) > width {
		return string(r[:width-1]) + "…"
	}
	return s
}
