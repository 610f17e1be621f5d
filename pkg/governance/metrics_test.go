package governance

import (
	"math"
	"testing"
	"time"

	"github.com/matzehuels/govdash/pkg/errors"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{12.4, "12"},
		{999, "999"},
		{4500, "4.5K"},
		{1_234_567, "1.23M"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeMetrics(t *testing.T) {
	if got := NormalizeMetrics(nil); got != (Metrics{}) {
		t.Errorf("NormalizeMetrics(nil) = %+v, want zero", got)
	}
	m := NormalizeMetrics(Record{"total_token_supply": "1000000", "activeProposals": 3, "total_agents": -1})
	if m.TotalTokenSupply != 1e6 || m.ActiveProposals != 3 || m.TotalAgents != 0 {
		t.Errorf("NormalizeMetrics = %+v", m)
	}
	merged := m.Merge(Metrics{TotalAgents: 4, ActiveAgents: 2, AverageReputation: 50})
	if merged.TotalAgents != 4 || merged.ActiveAgents != 2 {
		t.Errorf("Merge = %+v", merged)
	}
}

func TestSimulationParamsValidate(t *testing.T) {
	if err := DefaultSimulationParams().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	for _, s := range Scenarios {
		if err := s.Params.Validate(); err != nil {
			t.Errorf("scenario %q invalid: %v", s.Name, err)
		}
	}
	p := DefaultSimulationParams()
	p.ConflictProbability = 80
	err := p.Validate()
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Validate = %v, want INVALID_INPUT", err)
	}
}

func TestLookupScenario(t *testing.T) {
	s, ok := LookupScenario("stress test")
	if !ok || s.Params.AgentCount != 50 {
		t.Errorf("LookupScenario = %+v, %v", s, ok)
	}
	if _, ok := LookupScenario("nope"); ok {
		t.Error("LookupScenario(nope) ok")
	}
}

func TestSnapshot(t *testing.T) {
	agents := []Agent{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	s := NewSnapshot(agents, time.Unix(0, 0))
	if !s.Has("b") || s.Has("c") {
		t.Error("Has mismatch")
	}
	if a, _ := s.Agent("a"); a.Name != "A" {
		t.Errorf("Agent(a) = %+v", a)
	}
	other := NewSnapshot([]Agent{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}, time.Now())
	if s.Version != other.Version {
		t.Error("identical agents produced different versions")
	}
	if NewSnapshot(agents[:1], time.Now()).Version == s.Version {
		t.Error("different agents share a version")
	}
	var nilSnap *Snapshot
	if nilSnap.Len() != 0 || nilSnap.Has("a") {
		t.Error("nil snapshot not empty")
	}
}

func TestSnapshotNonFinite(t *testing.T) {
	nan := []Agent{{ID: "a", Reputation: math.NaN()}}
	other := []Agent{{ID: "x", Reputation: math.NaN()}, {ID: "y", VotingPower: math.Inf(1)}}

	s1 := NewSnapshot(nan, time.Now())
	s2 := NewSnapshot(other, time.Now())
	if s1.Version == s2.Version {
		t.Fatalf("different agents share version %s", s1.Version)
	}
	if a, _ := s1.Agent("a"); a.Reputation != 0 {
		t.Errorf("NaN reputation = %v, want 0", a.Reputation)
	}
	if y, _ := s2.Agent("y"); y.VotingPower != 0 {
		t.Errorf("infinite voting power = %v, want 0", y.VotingPower)
	}
	if s := NewSnapshot([]Agent{{ID: "z", Reputation: math.Inf(1)}}, time.Now()); s.Agents[0].Reputation != 100 {
		t.Errorf("+Inf reputation = %v, want 100", s.Agents[0].Reputation)
	}
	if !math.IsNaN(nan[0].Reputation) {
		t.Error("caller's slice was modified")
	}
}

func TestSnapshotVersionFieldBoundaries(t *testing.T) {
	a := NewSnapshot([]Agent{{ID: "ab", Name: "c"}}, time.Now())
	b := NewSnapshot([]Agent{{ID: "a", Name: "bc"}}, time.Now())
	if a.Version == b.Version {
		t.Error("shifting bytes between fields kept the version")
	}
	c := NewSnapshot([]Agent{{ID: "a", Connections: []string{"b", "c"}}}, time.Now())
	d := NewSnapshot([]Agent{{ID: "a", Connections: []string{"bc"}}}, time.Now())
	if c.Version == d.Version {
		t.Error("regrouped connections kept the version")
	}
}

func TestNormalizeSimulationRun(t *testing.T) {
	flat := NormalizeSimulationRun(Record{"id": 7, "speed": "2.5", "agent_count": 30, "created_at": "2025-03-01T09:00:00Z"})
	if flat.ID != "7" || flat.Params.Speed != 2.5 || flat.Params.AgentCount != 30 {
		t.Errorf("flat row = %+v", flat)
	}
	if flat.StartedAt.IsZero() {
		t.Error("created_at not used as start time")
	}

	nested := NormalizeSimulationRun(Record{
		"id":     "run-1",
		"params": map[string]any{"speed": 1.0, "agent_count": 10, "conflict_probability": 15},
	})
	if nested.Params.AgentCount != 10 || nested.Params.ConflictProbability != 15 {
		t.Errorf("nested params = %+v", nested.Params)
	}
}
