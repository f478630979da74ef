//go:build windows

package ui

import "log/slog"

// OpenFileInDefaultApp opens filePath with the default handler via ShellExecuteW.
func OpenFileInDefaultApp(filePath string) error {
	slog.Debug("Opening file in default app", "path", filePath, "method", "ShellExecuteW")
	return ShellExecute(0, "open", filePath, "", "", swShowNormal)
}
