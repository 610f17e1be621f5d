package governance

import (
	"encoding/json"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"active", StatusActive},
		{"ACTIVE", StatusActive},
		{" inactive ", StatusInactive},
		{"", StatusInactive},
		{"suspended", StatusSuspended},
		{"banned", StatusUnknown},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.in); got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(StatusSuspended)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"suspended"` {
		t.Errorf("Marshal = %s, want \"suspended\"", data)
	}
	var s Status
	if err := json.Unmarshal([]byte(`"active"`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s != StatusActive {
		t.Errorf("Unmarshal = %v, want active", s)
	}
}

func TestNormalizeAgentDefaults(t *testing.T) {
	a := NormalizeAgent(Record{}, 0)
	if a.Name != DefaultAgentName {
		t.Errorf("Name = %q, want %q", a.Name, DefaultAgentName)
	}
	if a.Role != DefaultAgentRole {
		t.Errorf("Role = %q, want %q", a.Role, DefaultAgentRole)
	}
	if a.Status != StatusInactive {
		t.Errorf("Status = %v, want inactive", a.Status)
	}
	if a.Reputation != 0 || a.VotingPower != 0 {
		t.Errorf("Reputation, VotingPower = %v, %v, want 0, 0", a.Reputation, a.VotingPower)
	}
	if a.Connections == nil || len(a.Connections) != 0 {
		t.Errorf("Connections = %#v, want empty non-nil slice", a.Connections)
	}
	if a.ID == "" {
		t.Error("ID is empty, want generated id")
	}
}

func TestNormalizeAgentFields(t *testing.T) {
	rec := Record{
		"agent_id":     "a1",
		"name":         "Alice",
		"role":         "Validator",
		"status":       "active",
		"reputation":   150.0,
		"voting_power": "12.5",
		"connections":  []any{"a2", "a3"},
	}
	a := NormalizeAgent(rec, 3)
	if a.ID != "a1" || a.Name != "Alice" || a.Role != "Validator" {
		t.Errorf("identity = %q %q %q", a.ID, a.Name, a.Role)
	}
	if a.Status != StatusActive {
		t.Errorf("Status = %v, want active", a.Status)
	}
	if a.Reputation != 100 {
		t.Errorf("Reputation = %v, want 100 (clamped)", a.Reputation)
	}
	if a.VotingPower != 12.5 {
		t.Errorf("VotingPower = %v, want 12.5", a.VotingPower)
	}
	if len(a.Connections) != 2 || a.Connections[1] != "a3" {
		t.Errorf("Connections = %v, want [a2 a3]", a.Connections)
	}
}

func TestNormalizeAgentStateColumn(t *testing.T) {
	rec := Record{
		"id":       7,
		"agent_id": "bob",
		"state":    `{"name":"Bob","reputation":42,"status":"suspended","connections":"{alice,carol}"}`,
	}
	a := NormalizeAgent(rec, 0)
	if a.ID != "bob" {
		t.Errorf("ID = %q, want bob", a.ID)
	}
	if a.Name != "Bob" || a.Reputation != 42 || a.Status != StatusSuspended {
		t.Errorf("agent = %+v", a)
	}
	if len(a.Connections) != 2 || a.Connections[0] != "alice" {
		t.Errorf("Connections = %v, want [alice carol]", a.Connections)
	}
}

func TestNormalizeAgentRejectsBadNumbers(t *testing.T) {
	a := NormalizeAgent(Record{"reputation": "lots", "voting_power": -3}, 0)
	if a.Reputation != 0 {
		t.Errorf("Reputation = %v, want 0", a.Reputation)
	}
	if a.VotingPower != 0 {
		t.Errorf("VotingPower = %v, want 0", a.VotingPower)
	}
	a = NormalizeAgent(Record{"reputation": -20}, 0)
	if a.Reputation != 0 {
		t.Errorf("Reputation = %v, want 0 (clamped)", a.Reputation)
	}
}

func TestNormalizeAgentsGeneratedIDsAreStable(t *testing.T) {
	recs := []Record{{"name": "x"}, {"name": "x"}}
	first := NormalizeAgents(recs)
	second := NormalizeAgents(recs)
	if len(first) != 2 {
		t.Fatalf("len = %d, want 2", len(first))
	}
	if first[0].ID == first[1].ID {
		t.Error("records at different positions share an id")
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("id %d changed between runs: %q != %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestNormalizeAgentsDuplicateKeepsFirst(t *testing.T) {
	agents := NormalizeAgents([]Record{
		{"id": "a", "name": "first"},
		{"id": "b"},
		{"id": "a", "name": "second"},
	})
	if len(agents) != 2 {
		t.Fatalf("len = %d, want 2", len(agents))
	}
	if agents[0].Name != "first" {
		t.Errorf("Name = %q, want first", agents[0].Name)
	}
}

func TestSummarize(t *testing.T) {
	m := Summarize([]Agent{
		{Status: StatusActive, Reputation: 80},
		{Status: StatusInactive, Reputation: 40},
	})
	if m.TotalAgents != 2 || m.ActiveAgents != 1 || m.AverageReputation != 60 {
		t.Errorf("Summarize = %+v", m)
	}
	if got := Summarize(nil); got != (Metrics{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", got)
	}
}
