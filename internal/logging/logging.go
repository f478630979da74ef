// Package logging configures the global slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts s to a Format. Unknown values mean FormatAuto.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseLevel converts s to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// NewHandler returns a colored handler when format asks for text, or when
// it's auto and w is a terminal. Otherwise it returns a JSON handler.
func NewHandler(w io.Writer, format Format, level slog.Level) slog.Handler {
	if format == FormatText || (format == FormatAuto && IsTTY(w)) {
		return tinter.NewHandler(w, &tinter.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// Setup configures the global slog logger. The tray build has no console on
// Windows, so logs also go to logFile when it's not empty.
func Setup(format Format, level slog.Level, logFile string) (io.Closer, error) {
	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			slog.SetDefault(slog.New(NewHandler(w, format, level)))
			return closer, err
		}
		w = io.MultiWriter(os.Stderr, f)
		closer = f
		if format == FormatAuto {
			format = FormatJSON
		}
	}
	slog.SetDefault(slog.New(NewHandler(w, format, level)))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
