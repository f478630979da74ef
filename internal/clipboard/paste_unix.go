//go:build !windows

package clipboard

import (
	"errors"
	"log/slog"
	"os/exec"
	"runtime"
)

var errNoPasteTool = errors.New("no paste tool worked (install xdotool or wtype)")

// simulatePlatformPaste sends the paste keystroke with the first tool that
// works: xdotool (X11), wtype (Wayland) or osascript (macOS).
func simulatePlatformPaste() error {
	if runtime.GOOS == "darwin" {
		script := `tell application "System Events" to keystroke "v" using command down`
		out, err := exec.Command("osascript", "-e", script).CombinedOutput()
		if err != nil {
			slog.Warn("osascript paste failed", "error", err, "output", string(out))
			return err
		}
		return nil
	}

	if err := exec.Command("xdotool", "key", "--clearmodifiers", "ctrl+v").Run(); err == nil {
		slog.Debug("Paste simulated with xdotool")
		return nil
	} else {
		slog.Debug("xdotool paste failed", "error", err)
	}

	if err := exec.Command("wtype", "-M", "ctrl", "-P", "v", "-m", "ctrl").Run(); err == nil {
		slog.Debug("Paste simulated with wtype")
		return nil
	} else {
		slog.Debug("wtype paste failed", "error", err)
	}

	return errNoPasteTool
}
