// Package stats keeps local usage counters in a sqlite database.
package stats

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the database file inside the data directory.
const FileName = "dahora-stats.db"

// Event kinds.
const (
	KindCapture   = "capture"
	KindPaste     = "paste"
	KindShortcut  = "shortcut"
	KindSearch    = "search"
	KindRecord    = "record"
	KindClear     = "clear"
	KindHotkeyErr = "hotkey_error"
)

type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens the database in dataDir and initializes the schema.
func Open(dataDir string) (*DB, error) {
	dbPath := filepath.Join(dataDir, FileName)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets the CLI read while the tray instance writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=2000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		kind TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`
	_, err := db.conn.Exec(schema)
	return err
}
