package governance

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"strings"
	"time"
)

// Snapshot is one successfully fetched agent list. It is immutable once
// built; consumers must not modify the Agents slice.
type Snapshot struct {
	Agents    []Agent   `json:"agents"`
	Version   string    `json:"version"`
	FetchedAt time.Time `json:"fetched_at"`

	index map[string]int
}

// NewSnapshot wraps agents, which must already be unique. Non-finite
// numbers are replaced: a NaN reputation becomes 0, an infinite one is
// clamped to [0, 100], and a non-finite voting power becomes 0. The caller's
// slice is never modified.
func NewSnapshot(agents []Agent, fetchedAt time.Time) *Snapshot {
	if agents == nil {
		agents = []Agent{}
	}
	agents = finiteAgents(agents)
	s := &Snapshot{
		Agents:    agents,
		FetchedAt: fetchedAt,
		index:     make(map[string]int, len(agents)),
	}
	for i, a := range agents {
		s.index[a.ID] = i
	}
	s.Version = contentVersion(agents)
	return s
}

// Len returns the number of agents, treating a nil snapshot as empty.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Agents)
}

// Has reports whether an agent with id is part of the snapshot.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.Agent(id)
	return ok
}

// Agent looks up an agent by id.
func (s *Snapshot) Agent(id string) (Agent, bool) {
	if s == nil {
		return Agent{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Agent{}, false
	}
	return s.Agents[i], true
}

// finiteAgents returns agents, or a sanitized copy when any agent carries
// a non-finite number.
func finiteAgents(agents []Agent) []Agent {
	var out []Agent
	for i, a := range agents {
		if isFinite(a.Reputation) && isFinite(a.VotingPower) {
			continue
		}
		if out == nil {
			out = append([]Agent(nil), agents...)
		}
		if !isFinite(a.Reputation) {
			out[i].Reputation = clamp(a.Reputation, 0, 100)
		}
		if !isFinite(a.VotingPower) {
			out[i].VotingPower = 0
		}
	}
	if out == nil {
		return agents
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// contentVersion hashes the agent list so identical fetches share a version.
// Every field is written with a length or fixed width, so distinct lists
// cannot collide by concatenation.
func contentVersion(agents []Agent) string {
	h := sha256.New()
	writeUint(h, uint64(len(agents)))
	for _, a := range agents {
		writeString(h, a.ID)
		writeString(h, a.Name)
		writeString(h, a.Role)
		writeUint(h, uint64(a.Status))
		writeUint(h, math.Float64bits(a.Reputation))
		writeUint(h, math.Float64bits(a.VotingPower))
		writeUint(h, uint64(len(a.Connections)))
		for _, c := range a.Connections {
			writeString(h, c)
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func writeUint(h hash.Hash, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}

func writeString(h hash.Hash, s string) {
	writeUint(h, uint64(len(s)))
	h.Write([]byte(s))
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
