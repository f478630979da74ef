// Package clipboard reads and writes the system clipboard, watches it for
// new text and pastes text into the focused application.
package clipboard

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	atotto "github.com/atotto/clipboard"
)

// ErrUnsupported is returned when no clipboard utility is available.
var ErrUnsupported = errors.New("clipboard not supported on this system")

// Clipboard is the text clipboard. Implementations may fail transiently, for
// example while another process holds the clipboard open.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// Atotto is the default backend. It shells out to xclip/xsel/wl-clipboard on
// Linux and uses the native APIs elsewhere.
type Atotto struct{}

// NewAtotto returns the atotto backend, or ErrUnsupported if it found no way
// to reach the clipboard.
func NewAtotto() (Atotto, error) {
	if atotto.Unsupported {
		return Atotto{}, ErrUnsupported
	}
	return Atotto{}, nil
}

func (Atotto) Read() (string, error) {
	return atotto.ReadAll()
}

func (Atotto) Write(text string) error {
	return atotto.WriteAll(text)
}

// PasteOptions controls PasteText.
type PasteOptions struct {
	// Restore puts the previous clipboard text back after pasting.
	Restore bool
	// Delay is waited before the paste keystroke so the target application
	// sees the new clipboard content.
	Delay time.Duration
	// RestoreDelay is waited after the keystroke before restoring.
	RestoreDelay time.Duration
	// Seen is called with every text PasteText is about to write, so a
	// monitor can ignore it.
	Seen func(text string)
}

// DefaultPasteOptions are the delays that work with most applications.
func DefaultPasteOptions() PasteOptions {
	return PasteOptions{
		Restore:      true,
		Delay:        400 * time.Millisecond,
		RestoreDelay: 300 * time.Millisecond,
	}
}

var (
	simulatePaste = simulatePlatformPaste
	sleep         = time.Sleep
)

// PasteText places text on the clipboard and simulates the platform paste
// keystroke. If the keystroke can't be sent the text is left on the
// clipboard so the user can paste it by hand.
func PasteText(clip Clipboard, text string, opts PasteOptions) error {
	seen := opts.Seen
	if seen == nil {
		seen = func(string) {}
	}

	var prev string
	hasPrev := false
	if opts.Restore {
		p, err := clip.Read()
		if err != nil {
			slog.Warn("Failed to read clipboard before paste, it won't be restored", "error", err)
		} else {
			prev, hasPrev = p, true
		}
	}

	seen(text)
	if err := clip.Write(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}

	sleep(opts.Delay)
	if err := simulatePaste(); err != nil {
		return fmt.Errorf("failed to simulate paste: %w", err)
	}

	if !hasPrev || prev == text {
		return nil
	}
	sleep(opts.RestoreDelay)
	seen(prev)
	if err := clip.Write(prev); err != nil {
		return fmt.Errorf("failed to restore clipboard: %w", err)
	}
	slog.Debug("Restored previous clipboard content after paste")
	return nil
}
