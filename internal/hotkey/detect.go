package hotkey

import (
	"log/slog"
	"os"
	"runtime"
)

// DisplayServer represents the type of display server in use
type DisplayServer int

const (
	DisplayServerUnknown DisplayServer = iota
	DisplayServerWindows
	DisplayServerX11
	DisplayServerWayland
	DisplayServerMacOS
)

func (ds DisplayServer) String() string {
	switch ds {
	case DisplayServerWindows:
		return "Windows"
	case DisplayServerX11:
		return "X11"
	case DisplayServerWayland:
		return "Wayland"
	case DisplayServerMacOS:
		return "macOS"
	default:
		return "Unknown"
	}
}

// SupportsGlobalHotkeys reports whether golang.design/x/hotkey can grab keys
// on this display server. Wayland compositors don't allow it.
func (ds DisplayServer) SupportsGlobalHotkeys() bool {
	switch ds {
	case DisplayServerWindows, DisplayServerX11, DisplayServerMacOS:
		return true
	}
	return false
}

// DetectDisplayServer determines which display server is in use. It only
// reads the environment, so it's safe to call on any platform.
func DetectDisplayServer() DisplayServer {
	return detectDisplayServer(runtime.GOOS, os.Getenv)
}

func detectDisplayServer(goos string, getenv func(string) string) DisplayServer {
	switch goos {
	case "windows":
		return DisplayServerWindows
	case "darwin":
		return DisplayServerMacOS
	}

	// Check Wayland first: XWayland sessions set DISPLAY too.
	if getenv("WAYLAND_DISPLAY") != "" {
		return DisplayServerWayland
	}
	if getenv("DISPLAY") != "" {
		return DisplayServerX11
	}

	slog.Warn("Could not detect display server type")
	return DisplayServerUnknown
}
