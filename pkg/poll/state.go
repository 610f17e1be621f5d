package poll

import (
	"time"

	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/graph"
)

// Phase is the fetch state of the controller.
type Phase int

const (
	// Idle means no fetch is outstanding.
	Idle Phase = iota
	// Fetching means a fetch is in flight; further ticks are skipped.
	Fetching
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	}
	return "unknown"
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Status describes the outcome of recent fetches.
type Status struct {
	Source string `json:"source"`
	Phase  Phase  `json:"phase"`

	// LastError is the user-facing message of the most recent failure. It
	// is cleared by the next successful fetch.
	LastError string `json:"last_error,omitempty"`
	Err       error  `json:"-"`

	LastAttempt time.Time `json:"last_attempt,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`

	// Failures counts consecutive failed fetches.
	Failures int `json:"failures"`
	// Skipped counts ticks dropped because a fetch was in flight.
	Skipped int `json:"skipped"`
	// Demo is set while the built-in demo network is shown because the
	// source has never answered.
	Demo bool `json:"demo"`
}

// Stale reports whether the shown snapshot is older than the last attempt.
func (s Status) Stale() bool { return s.LastError != "" || s.Demo }

// State is everything the dashboard shows. It is replaced as a whole; a
// State handed out by the controller is never modified afterwards.
type State struct {
	Snapshot  *governance.Snapshot `json:"snapshot"`
	Selection string               `json:"selection,omitempty"`
	Status    Status               `json:"status"`

	scene *graph.Scene
}

// Scene returns the laid-out snapshot. It is nil before the first snapshot.
func (s State) Scene() *graph.Scene { return s.scene }

// Selected returns the selected agent.
func (s State) Selected() (governance.Agent, bool) {
	if s.Selection == "" {
		return governance.Agent{}, false
	}
	return s.Snapshot.Agent(s.Selection)
}

// Version is the snapshot version, or "" before the first snapshot.
func (s State) Version() string {
	if s.Snapshot == nil {
		return ""
	}
	return s.Snapshot.Version
}
