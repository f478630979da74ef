//go:build windows

package clipboard

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"unsafe"
)

const (
	inputKeyboard  = 1
	keyeventfKeyUp = 0x0002
	vkControl      = 0x11
	vkShift        = 0x10
	vkMenu         = 0x12
	vkLWin         = 0x5B
	vkV            = 0x56
)

var (
	user32         = syscall.NewLazyDLL("user32.dll")
	procSendInput  = user32.NewProc("SendInput")
	procKeybdEvent = user32.NewProc("keybd_event")
)

// keyboardInput mirrors INPUT with a KEYBDINPUT payload, padded to the size
// of the union.
type keyboardInput struct {
	Type uint32
	Ki   struct {
		WVk         uint16
		WScan       uint16
		DwFlags     uint32
		Time        uint32
		DwExtraInfo uintptr
		Padding1    uint32
		Padding2    uint32
		Padding3    uint32
	}
}

func key(vk uint16, up bool) keyboardInput {
	var in keyboardInput
	in.Type = inputKeyboard
	in.Ki.WVk = vk
	if up {
		in.Ki.DwFlags = keyeventfKeyUp
	}
	return in
}

// pasteWithSendInput releases the modifiers still held from the hotkey,
// then sends ctrl+v.
func pasteWithSendInput() error {
	inputs := []keyboardInput{
		key(vkShift, true),
		key(vkMenu, true),
		key(vkLWin, true),
		key(vkControl, false),
		key(vkV, false),
		key(vkV, true),
		key(vkControl, true),
	}
	ret, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		uintptr(unsafe.Sizeof(inputs[0])),
	)
	if ret != uintptr(len(inputs)) {
		return fmt.Errorf("SendInput sent %d of %d inputs: %v", ret, len(inputs), err)
	}
	return nil
}

func pasteWithKeybdEvent() error {
	if err := procKeybdEvent.Find(); err != nil {
		return err
	}
	procKeybdEvent.Call(vkControl, 0, 0, 0)
	procKeybdEvent.Call(vkV, 0, 0, 0)
	procKeybdEvent.Call(vkV, 0, keyeventfKeyUp, 0)
	procKeybdEvent.Call(vkControl, 0, keyeventfKeyUp, 0)
	return nil
}

func pasteWithPowershell() error {
	script := `Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait("^v")`
	return exec.Command("powershell", "-NoProfile", "-Command", script).Run()
}

// simulatePlatformPaste tries SendInput, then keybd_event, then PowerShell.
func simulatePlatformPaste() error {
	methods := []struct {
		name string
		fn   func() error
	}{
		{"SendInput", pasteWithSendInput},
		{"keybd_event", pasteWithKeybdEvent},
		{"PowerShell", pasteWithPowershell},
	}
	var errs []error
	for _, m := range methods {
		err := m.fn()
		if err == nil {
			slog.Debug("Paste simulated", "method", m.name)
			return nil
		}
		slog.Warn("Paste method failed", "method", m.name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", m.name, err))
	}
	return errors.Join(errs...)
}
