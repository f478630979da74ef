//go:build !linux

package native

import "golang.design/x/hotkey"

// expandModifiers is the identity outside X11: lock keys don't affect
// hotkey matching there.
func expandModifiers(modifiers []hotkey.Modifier) [][]hotkey.Modifier {
	return [][]hotkey.Modifier{modifiers}
}
