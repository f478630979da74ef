// Package stamp builds the bracketed date/time text inserted by the hotkeys.
package stamp

import (
	"strings"
	"time"
)

// Formatter renders timestamps such as "[16.10.2026-09:30]" or, with a
// prefix, "[work-16.10.2026-09:30]".
type Formatter struct {
	Layout string // time.Format layout
	Open   string
	Close  string
}

// Format returns the stamp for t. An empty or whitespace-only prefix is
// omitted.
func (f Formatter) Format(t time.Time, prefix string) string {
	var b strings.Builder
	b.WriteString(f.Open)
	if p := strings.TrimSpace(prefix); p != "" {
		b.WriteString(p)
		b.WriteByte('-')
	}
	b.WriteString(t.Format(f.Layout))
	b.WriteString(f.Close)
	return b.String()
}
