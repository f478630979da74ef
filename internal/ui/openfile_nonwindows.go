//go:build !windows

package ui

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// OpenFileInDefaultApp opens filePath with the desktop's default handler.
func OpenFileInDefaultApp(filePath string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", filePath)
	default:
		cmd = exec.Command("xdg-open", filePath)
	}

	slog.Debug("Opening file in default app", "path", filePath, "command", cmd.String())
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start command (%s): %w", cmd.String(), err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
