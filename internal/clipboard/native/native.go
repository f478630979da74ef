// Package native is the clipboard backend built on golang.design/x/clipboard.
// It talks to the display server directly instead of shelling out, but needs
// cgo on Linux and macOS, so it lives apart from the testable clipboard code.
package native

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var (
	initOnce sync.Once
	initErr  error
)

// Backend implements clipboard.Clipboard.
type Backend struct{}

// New initializes the clipboard library once per process.
func New() (*Backend, error) {
	initOnce.Do(func() {
		initErr = clipboard.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("native clipboard unavailable: %w", initErr)
	}
	return &Backend{}, nil
}

// Read returns the text on the clipboard, or "" if it holds no text.
func (*Backend) Read() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

// Write replaces the clipboard content with text.
func (*Backend) Write(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
