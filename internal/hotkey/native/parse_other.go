//go:build !windows && !linux && !darwin

package native

import (
	"fmt"

	"golang.design/x/hotkey"
)

func parseHotkey(hotkeyStr string) ([]hotkey.Modifier, hotkey.Key, error) {
	return nil, 0, fmt.Errorf("hotkeys are not supported on this OS")
}
