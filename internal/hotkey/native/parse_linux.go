//go:build linux

package native

import (
	"fmt"

	"golang.design/x/hotkey"

	"github.com/rkvasne/dahora-app-sub000/internal/keycombo"
)

// parseHotkey converts a validated hotkey string into X11 modifiers and a
// keysym. Alt is Mod1 and Super/Win is Mod4.
func parseHotkey(hotkeyStr string) ([]hotkey.Modifier, hotkey.Key, error) {
	mods, keyStr := keycombo.Parse(hotkeyStr)
	key, ok := lookupKey(keyStr)
	if !ok {
		return nil, 0, fmt.Errorf("unsupported key: %s", keyStr)
	}

	var modifiers []hotkey.Modifier
	for _, m := range mods {
		switch m {
		case "ctrl":
			modifiers = append(modifiers, hotkey.ModCtrl)
		case "alt":
			modifiers = append(modifiers, hotkey.Mod1)
		case "shift":
			modifiers = append(modifiers, hotkey.ModShift)
		case "win":
			modifiers = append(modifiers, hotkey.Mod4)
		default:
			return nil, 0, fmt.Errorf("unsupported modifier: %s", m)
		}
	}
	return modifiers, key, nil
}
