package state

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// PauseGate is the manual kill switch consulted before any alert evaluation.
// It is persisted separately from the alert snapshot so flipping it never
// touches dedup state.
type PauseGate struct {
	path string
}

type pauseState struct {
	Paused    bool      `json:"paused"`
	ChangedAt time.Time `json:"changed_at"`
}

func NewPauseGate(path string) *PauseGate {
	return &PauseGate{path: path}
}

// IsPaused reports whether alerts are paused. A missing or unreadable flag
// file means not paused.
func (g *PauseGate) IsPaused() bool {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return false
	}
	var st pauseState
	if err := json.Unmarshal(data, &st); err != nil {
		return false
	}
	return st.Paused
}

// Set flips the pause flag, written atomically like the snapshot.
func (g *PauseGate) Set(paused bool) error {
	data, err := json.MarshalIndent(pauseState{Paused: paused, ChangedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pause state: %w", err)
	}
	return atomicWrite(g.path, data)
}
