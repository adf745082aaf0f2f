package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qu-genesis/metro-transit-pings/internal/alert"
)

func tempStore(t *testing.T, retention time.Duration) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "alert_state.json"), retention, nil)
}

func TestStore_LoadMissingFileIsEmpty(t *testing.T) {
	s := tempStore(t, 2*time.Hour)
	snap := s.Load(time.Now())
	if len(snap) != 0 {
		t.Errorf("expected empty snapshot, got %d entries", len(snap))
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := tempStore(t, 2*time.Hour)
	now := time.Date(2025, time.March, 10, 8, 30, 0, 0, time.UTC)

	want := alert.Snapshot{
		"921_50195_4_1741595100": {
			Key:                      "921_50195_4_1741595100",
			InitialAlertSentAt:       now,
			LastNotifiedDelayMinutes: 7,
			ScheduledTime:            now.Add(15 * time.Minute),
		},
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := s.Load(now)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	rec := got["921_50195_4_1741595100"]
	if !rec.InitialAlertSentAt.Equal(now) {
		t.Errorf("initial_alert_sent_at: want %v, got %v", now, rec.InitialAlertSentAt)
	}
	if rec.LastNotifiedDelayMinutes != 7 {
		t.Errorf("last_notified_delay_minutes: want 7, got %d", rec.LastNotifiedDelayMinutes)
	}
	if !rec.ScheduledTime.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("scheduled_time mismatch: got %v", rec.ScheduledTime)
	}
}

func TestStore_CorruptFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alert_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, 2*time.Hour, nil)
	snap := s.Load(time.Now())
	if len(snap) != 0 {
		t.Errorf("corrupt state must degrade to empty, got %d entries", len(snap))
	}
}

func TestStore_EvictsPastRetentionHorizon(t *testing.T) {
	s := tempStore(t, 2*time.Hour)
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	snap := alert.Snapshot{
		"old": {
			Key:                "old",
			InitialAlertSentAt: now.Add(-4 * time.Hour),
			ScheduledTime:      now.Add(-3 * time.Hour),
		},
		"fresh": {
			Key:                "fresh",
			InitialAlertSentAt: now.Add(-30 * time.Minute),
			ScheduledTime:      now.Add(-20 * time.Minute),
		},
	}
	if err := s.Save(snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := s.Load(now)
	if _, ok := got["old"]; ok {
		t.Error("record past retention horizon survived load")
	}
	if _, ok := got["fresh"]; !ok {
		t.Error("fresh record was evicted")
	}
}

func TestStore_SaveReplacesAtomically(t *testing.T) {
	s := tempStore(t, 2*time.Hour)
	now := time.Now().UTC()

	first := alert.Snapshot{"a": {Key: "a", InitialAlertSentAt: now, ScheduledTime: now}}
	second := alert.Snapshot{"b": {Key: "b", InitialAlertSentAt: now, ScheduledTime: now}}

	if err := s.Save(first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := s.Save(second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got := s.Load(now)
	if _, ok := got["a"]; ok {
		t.Error("old snapshot contents leaked through replace")
	}
	if _, ok := got["b"]; !ok {
		t.Error("replacement snapshot missing")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(s.path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the state file in dir, found %d entries", len(entries))
	}
}

func TestPauseGate_DefaultsToNotPaused(t *testing.T) {
	g := NewPauseGate(filepath.Join(t.TempDir(), "pause.json"))
	if g.IsPaused() {
		t.Error("missing pause file must mean not paused")
	}
}

func TestPauseGate_SetAndClear(t *testing.T) {
	g := NewPauseGate(filepath.Join(t.TempDir(), "pause.json"))

	if err := g.Set(true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !g.IsPaused() {
		t.Error("expected paused after Set(true)")
	}

	if err := g.Set(false); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if g.IsPaused() {
		t.Error("expected not paused after Set(false)")
	}
}

func TestPauseGate_CorruptFileMeansNotPaused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pause.json")
	if err := os.WriteFile(path, []byte("???"), 0o644); err != nil {
		t.Fatal(err)
	}
	if NewPauseGate(path).IsPaused() {
		t.Error("corrupt pause file must not block alerts")
	}
}
