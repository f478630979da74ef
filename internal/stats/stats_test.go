package stats

import (
	"testing"
	"time"
)

func openTestDB(t *testing.T, now *time.Time) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.now = func() time.Time { return *now }
	return db
}

func TestSummaryCountsByKind(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	db := openTestDB(t, &now)

	for _, kind := range []string{KindCapture, KindCapture, KindPaste, KindCapture, KindShortcut} {
		if err := db.RecordEvent(kind, ""); err != nil {
			t.Fatalf("RecordEvent(%s): %v", kind, err)
		}
	}

	s, err := db.Summary(0)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Total != 5 {
		t.Errorf("Total = %d, want 5", s.Total)
	}
	want := []KindCount{{KindCapture, 3}, {KindPaste, 1}, {KindShortcut, 1}}
	if len(s.Kinds) != len(want) {
		t.Fatalf("Kinds = %v, want %v", s.Kinds, want)
	}
	for i := range want {
		if s.Kinds[i] != want[i] {
			t.Errorf("Kinds[%d] = %v, want %v", i, s.Kinds[i], want[i])
		}
	}
	if !s.First.Equal(now) || !s.Last.Equal(now) {
		t.Errorf("First/Last = %v/%v, want %v", s.First, s.Last, now)
	}
}

func TestSummaryWindow(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	db := openTestDB(t, &now)

	if err := db.RecordEvent(KindPaste, "old"); err != nil {
		t.Fatal(err)
	}
	now = now.AddDate(0, 0, 15)
	if err := db.RecordEvent(KindPaste, "new"); err != nil {
		t.Fatal(err)
	}

	s, err := db.Summary(7)
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 1 {
		t.Errorf("Total over 7 days = %d, want 1", s.Total)
	}

	daily, err := db.Daily(30)
	if err != nil {
		t.Fatal(err)
	}
	if len(daily) != 2 || daily[0].Date != "2026-10-16" || daily[1].Date != "2026-10-01" {
		t.Errorf("Daily = %v", daily)
	}
}

func TestEmptySummary(t *testing.T) {
	now := time.Now()
	db := openTestDB(t, &now)
	s, err := db.Summary(0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 0 || len(s.Kinds) != 0 || !s.First.IsZero() {
		t.Errorf("empty Summary = %+v", s)
	}
}

func TestReopenKeepsEvents(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.RecordEvent(KindClear, ""); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s, err := db.Summary(0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 1 {
		t.Errorf("Total after reopen = %d, want 1", s.Total)
	}
}
