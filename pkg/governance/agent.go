package governance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an agent.
type Status int

// Agent statuses. The zero value is StatusUnknown so an uninitialised
// Status never passes for a real state.
const (
	StatusUnknown Status = iota
	StatusActive
	StatusInactive
	StatusSuspended
)

// ParseStatus maps a status string to a Status.
// The empty string is the documented default, inactive.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive
	case "", "inactive":
		return StatusInactive
	case "suspended":
		return StatusSuspended
	default:
		return StatusUnknown
	}
}

// String returns the lowercase wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	case StatusSuspended:
		return "suspended"
	case StatusUnknown:
		return "unknown"
	}
	return "unknown"
}

// MarshalJSON encodes the status as its wire name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	*s = ParseStatus(name)
	return nil
}

// MarshalYAML encodes the status as its wire name.
func (s Status) MarshalYAML() (any, error) {
	return s.String(), nil
}

// UnmarshalYAML decodes a status name.
func (s *Status) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	*s = ParseStatus(name)
	return nil
}

// Agent is a participant in the governance network.
//
// Connections are weak references used only for drawing edges; they may
// name agents that are not part of the current snapshot.
type Agent struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Role        string   `json:"role" yaml:"role"`
	Status      Status   `json:"status" yaml:"status"`
	Reputation  float64  `json:"reputation" yaml:"reputation"`
	VotingPower float64  `json:"voting_power" yaml:"voting_power"`
	Connections []string `json:"connections" yaml:"connections"`
}

// Agent defaults applied by NormalizeAgent.
const (
	DefaultAgentName = "Unknown"
	DefaultAgentRole = "Member"
)

// agentNamespace seeds the name-based ids of agents without one.
var agentNamespace = uuid.MustParse("5b1f0f0e-4a43-4c77-9d1e-6f0a2b6c9d3a")

// NormalizeAgent builds an Agent from a raw record, defaulting every
// missing or malformed field. index is the record's position in the source
// result and only matters for records without an id.
//
// A JSON "state" column (as stored in agent_states) is flattened underneath
// the top-level columns.
func NormalizeAgent(rec Record, index int) Agent {
	rec = rec.Flatten("state")

	a := Agent{
		Name:        DefaultAgentName,
		Role:        DefaultAgentRole,
		Status:      StatusInactive,
		Connections: []string{},
	}
	if name, ok := rec.String("name", "agent_name"); ok {
		a.Name = name
	}
	if role, ok := rec.String("role"); ok {
		a.Role = role
	}
	if status, ok := rec.String("status"); ok {
		a.Status = ParseStatus(status)
	}
	if rep, ok := rec.Float("reputation"); ok {
		a.Reputation = clamp(rep, 0, 100)
	}
	if vp, ok := rec.Float("voting_power", "votingPower"); ok && vp > 0 {
		a.VotingPower = vp
	}
	if conns, ok := rec.Strings("connections"); ok {
		a.Connections = conns
	}

	if id, ok := rec.String("agent_id", "id"); ok {
		a.ID = id
	} else {
		a.ID = uuid.NewSHA1(agentNamespace, []byte(fmt.Sprintf("%d:%s", index, a.Name))).String()
	}
	return a
}

// NormalizeAgents normalizes records in order. When several records share
// an id only the first is kept, so every id appears exactly once.
func NormalizeAgents(records []Record) []Agent {
	agents := make([]Agent, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		a := NormalizeAgent(rec, i)
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		agents = append(agents, a)
	}
	return agents
}

// Summarize derives the agent-related metrics from a set of agents.
func Summarize(agents []Agent) Metrics {
	m := Metrics{TotalAgents: len(agents)}
	if len(agents) == 0 {
		return m
	}
	var total float64
	for _, a := range agents {
		if a.Status == StatusActive {
			m.ActiveAgents++
		}
		total += a.Reputation
	}
	m.AverageReputation = total / float64(len(agents))
	return m
}
