// Package history keeps the bounded, deduplicated list of copied text and
// persists it as a JSON document after every change.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rkvasne/dahora-app-sub000/internal/atomicfile"
)

// Bounds for the number of kept entries.
const (
	MinItems     = 10
	MaxItems     = 1000
	DefaultItems = 100
)

// Source tags recorded on entries.
const (
	SourceMonitor = "monitor"
	SourceManual  = "manual"
	SourceImport  = "import"
)

// Entry is one recorded clipboard snapshot. Entries are never modified after
// they are created.
type Entry struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// Time parses the entry timestamp, returning the zero time if it is malformed.
func (e Entry) Time() time.Time {
	t, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Store is the in-memory history plus its on-disk document. All methods are
// safe for concurrent use; mutations are serialized and persisted before they
// return.
type Store struct {
	mu       sync.Mutex
	path     string
	maxItems int
	entries  []Entry
	corrupt  bool

	writer atomicfile.Writer
	now    func() time.Time
}

// New returns an empty store bound to path. Call Load to read existing data.
func New(path string, maxItems int) *Store {
	return &Store{
		path:     path,
		maxItems: ClampMaxItems(maxItems),
		writer:   atomicfile.Default,
		now:      time.Now,
	}
}

// ClampMaxItems forces n into [MinItems, MaxItems]; zero or negative values
// mean DefaultItems.
func ClampMaxItems(n int) int {
	switch {
	case n <= 0:
		return DefaultItems
	case n < MinItems:
		return MinItems
	case n > MaxItems:
		return MaxItems
	}
	return n
}

// Path returns the location of the history document.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory history with the persisted one. A missing or
// unreadable document leaves the store empty; the problem is logged and the
// file on disk is not touched.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.corrupt = false

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("No history file yet, starting empty", "path", s.path)
		} else {
			slog.Error("Failed to read history, starting empty", "path", s.path, "error", err)
		}
		return
	}

	var loaded []Entry
	if err := json.Unmarshal(data, &loaded); err != nil {
		slog.Warn("History file is corrupt, starting empty; file left in place", "path", s.path, "error", err)
		s.corrupt = true
		return
	}

	seen := make(map[string]bool, len(loaded))
	for _, e := range loaded {
		if strings.TrimSpace(e.Text) == "" || seen[e.Text] {
			continue
		}
		seen[e.Text] = true
		s.entries = append(s.entries, e)
	}
	s.trimLocked()
	slog.Info("Loaded clipboard history", "path", s.path, "entries", len(s.entries))
}

// Add appends text as a new entry. Blank text and text that is already in
// the history are ignored and report false. The new state is persisted
// before Add returns; a persistence error is returned but the entry stays in
// memory and is written with the next successful mutation.
func (s *Store) Add(text, source string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.Text == text {
			return false, nil
		}
	}

	s.entries = append(s.entries, Entry{
		Text:      text,
		Timestamp: s.now().Format(time.RFC3339),
		Source:    source,
	})
	s.trimLocked()
	return true, s.persistLocked()
}

// Recent returns up to n of the newest entries, oldest first. The slice is a
// copy; later mutations don't affect it.
func (s *Store) Recent(n int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return []Entry{}
	}
	start := len(s.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out
}

// All returns a copy of every entry, oldest first.
func (s *Store) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Contains reports whether text is already recorded.
func (s *Store) Contains(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Text == text {
			return true
		}
	}
	return false
}

// Clear removes every entry, persists the empty history and returns how
// many entries were removed.
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.entries)
	s.entries = nil
	if err := s.persistLocked(); err != nil {
		return removed, err
	}
	slog.Info("Cleared clipboard history", "removed", removed)
	return removed, nil
}

// SetMaxItems changes the bound, trimming the oldest entries if needed.
func (s *Store) SetMaxItems(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxItems = ClampMaxItems(n)
	if len(s.entries) <= s.maxItems {
		return nil
	}
	s.trimLocked()
	return s.persistLocked()
}

// MaxItems returns the current bound.
func (s *Store) MaxItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxItems
}

func (s *Store) trimLocked() {
	if over := len(s.entries) - s.maxItems; over > 0 {
		s.entries = append([]Entry(nil), s.entries[over:]...)
	}
}

func (s *Store) persistLocked() error {
	if s.corrupt {
		dst, err := atomicfile.PreserveCorrupt(s.path)
		if err != nil {
			return fmt.Errorf("save history: %w", err)
		}
		if dst != "" {
			slog.Warn("Moved corrupt history aside", "path", dst)
		}
		s.corrupt = false
	}

	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	if err := s.writer.WriteJSON(s.path, entries); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
