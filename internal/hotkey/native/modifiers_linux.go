//go:build linux

package native

import "golang.design/x/hotkey"

// X11 lock masks that commonly interfere with XGrabKey.
// CapsLock is LockMask (1<<1) and NumLock is usually Mod2.
const (
	linuxCapsLockMask hotkey.Modifier = 1 << 1
)

// expandModifiers returns the base modifiers first, then the same set with
// NumLock, CapsLock and both added.
func expandModifiers(modifiers []hotkey.Modifier) [][]hotkey.Modifier {
	with := func(extra ...hotkey.Modifier) []hotkey.Modifier {
		return append(append([]hotkey.Modifier(nil), modifiers...), extra...)
	}
	return [][]hotkey.Modifier{
		with(),
		with(hotkey.Mod2),
		with(linuxCapsLockMask),
		with(hotkey.Mod2, linuxCapsLockMask),
	}
}
