// Package state persists what has already been communicated to the user
// between invocations: the alert snapshot and the pause flag. Both live in
// small JSON files replaced atomically on write, so a crash mid-save can
// never leave a half-written file for the next run to misread.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/qu-genesis/metro-transit-pings/internal/alert"
)

// Store reads and writes the alert snapshot file.
type Store struct {
	path      string
	retention time.Duration
	logger    *slog.Logger
}

// NewStore creates a store for the given file. Records whose scheduled time
// is more than retention in the past are dropped on load.
func NewStore(path string, retention time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, retention: retention, logger: logger}
}

// Load returns the persisted snapshot with stale records evicted. It never
// fails: a missing, unreadable, or corrupt file degrades to an empty
// snapshot, trading one possible duplicate alert for keeping future alerts
// flowing.
func (s *Store) Load(now time.Time) alert.Snapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not read state file, starting fresh", "path", s.path, "error", err)
		}
		return alert.Snapshot{}
	}

	var snap alert.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("state file corrupt, starting fresh", "path", s.path, "error", err)
		return alert.Snapshot{}
	}
	if snap == nil {
		snap = alert.Snapshot{}
	}

	return s.evict(now, snap)
}

// evict drops records past the retention horizon so the state file stays
// bounded across days of continuous operation.
func (s *Store) evict(now time.Time, snap alert.Snapshot) alert.Snapshot {
	kept := make(alert.Snapshot, len(snap))
	for key, rec := range snap {
		if now.Sub(rec.ScheduledTime) > s.retention {
			continue
		}
		kept[key] = rec
	}
	if dropped := len(snap) - len(kept); dropped > 0 {
		s.logger.Info("evicted stale alert records", "count", dropped)
	}
	return kept
}

// Save writes the snapshot atomically: marshal to a temp file in the same
// directory, then rename over the previous file.
func (s *Store) Save(snap alert.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return atomicWrite(s.path, data)
}

// atomicWrite replaces path with data via a temp file + rename in the same
// directory (rename is atomic only within one filesystem).
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
