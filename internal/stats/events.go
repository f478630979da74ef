package stats

import (
	"fmt"
	"time"
)

// KindCount is the number of events of one kind.
type KindCount struct {
	Kind  string
	Count int
}

// DailyCount is the number of events recorded on one UTC day.
type DailyCount struct {
	Date  string
	Count int
}

// Summary is the overall picture printed by `dahora stats`.
type Summary struct {
	Total int
	First time.Time
	Last  time.Time
	Kinds []KindCount
}

// RecordEvent stores one event. Detail is free text, e.g. a shortcut id; it
// must never contain clipboard content.
func (db *DB) RecordEvent(kind, detail string) error {
	_, err := db.conn.Exec(
		"INSERT INTO events (timestamp, kind, detail) VALUES (?, ?, ?)",
		db.now().UTC().Format(time.RFC3339), kind, detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", kind, err)
	}
	return nil
}

// Summary counts the events of the last days days. days <= 0 means all time.
func (db *DB) Summary(days int) (*Summary, error) {
	since := db.since(days)

	var (
		s           Summary
		first, last string
	)
	err := db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(MIN(timestamp), ''), COALESCE(MAX(timestamp), '')
		FROM events
		WHERE timestamp >= ?
	`, since).Scan(&s.Total, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	if first != "" {
		s.First, _ = time.Parse(time.RFC3339, first)
		s.Last, _ = time.Parse(time.RFC3339, last)
	}

	rows, err := db.conn.Query(`
		SELECT kind, COUNT(*) AS n
		FROM events
		WHERE timestamp >= ?
		GROUP BY kind
		ORDER BY n DESC, kind
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query kind counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k KindCount
		if err := rows.Scan(&k.Kind, &k.Count); err != nil {
			return nil, fmt.Errorf("failed to scan kind counts: %w", err)
		}
		s.Kinds = append(s.Kinds, k)
	}
	return &s, rows.Err()
}

// Daily counts events per day for the last days days, newest first.
func (db *DB) Daily(days int) ([]DailyCount, error) {
	rows, err := db.conn.Query(`
		SELECT substr(timestamp, 1, 10) AS date, COUNT(*)
		FROM events
		WHERE timestamp >= ?
		GROUP BY date
		ORDER BY date DESC
	`, db.since(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	var out []DailyCount
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily counts: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (db *DB) since(days int) string {
	if days <= 0 {
		return ""
	}
	return db.now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
}
