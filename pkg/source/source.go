package source

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/governance"
)

// Kind names a collection a source can list.
type Kind string

// Listable kinds.
const (
	KindAgents    Kind = "agents"
	KindProposals Kind = "proposals"
	KindRules     Kind = "rules"
	KindConflicts Kind = "conflicts"
	KindMetrics   Kind = "metrics"
)

// Kinds returns every listable kind in panel order.
func Kinds() []Kind {
	return []Kind{KindAgents, KindProposals, KindRules, KindConflicts, KindMetrics}
}

// ParseKind maps a name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidKind, "unknown kind %q", s)
}

// Source is a governance data backend.
//
// Every list method returns normalized values. Implementations must be safe
// for concurrent use; the poll controller and HTTP handlers call them from
// different goroutines.
type Source interface {
	// Name identifies the backend in logs and cache keys.
	Name() string

	// Agents lists the network participants in source order.
	Agents(ctx context.Context) ([]governance.Agent, error)
	Proposals(ctx context.Context) ([]governance.Proposal, error)
	Rules(ctx context.Context) ([]governance.RuleChange, error)
	Conflicts(ctx context.Context) ([]governance.Conflict, error)

	// Metrics returns the global metrics row. An empty backend yields
	// zero values rather than an error.
	Metrics(ctx context.Context) (governance.Metrics, error)

	// CastVote records one vote and returns the updated proposal.
	CastVote(ctx context.Context, proposalID string, vote governance.VoteType) (governance.Proposal, error)

	// StartSimulation records a simulation run with the given parameters.
	StartSimulation(ctx context.Context, params governance.SimulationParams) (governance.SimulationRun, error)

	Close() error
}

// Health is the result of a backend liveness probe.
type Health struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Database string    `json:"database"`
	Time     time.Time `json:"time,omitzero"`
}

// TableStatus describes one backing table.
type TableStatus struct {
	Exists bool   `json:"exists"`
	Count  int64  `json:"count,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Column is one column of a backing table.
type Column struct {
	Name     string `json:"column_name"`
	DataType string `json:"data_type"`
}

// Inspector is implemented by sources that can describe their storage.
type Inspector interface {
	Health(ctx context.Context) (Health, error)
	CheckTables(ctx context.Context) (map[string]TableStatus, error)
	Columns(ctx context.Context, table string) ([]Column, error)
}

// Tables are the backing tables of the SQL and document sources.
var Tables = []string{"transactions", "agent_states", "governance_log", "simulation_runs"}

// ListEntities lists the collection named by kind. Metrics are returned as
// a single value.
func ListEntities(ctx context.Context, src Source, kind Kind) (any, error) {
	switch kind {
	case KindAgents:
		return src.Agents(ctx)
	case KindProposals:
		return src.Proposals(ctx)
	case KindRules:
		return src.Rules(ctx)
	case KindConflicts:
		return src.Conflicts(ctx)
	case KindMetrics:
		return src.Metrics(ctx)
	}
	return nil, errors.New(errors.ErrCodeInvalidKind, "unknown kind %q", kind)
}

// ValidateVote checks the arguments of Source.CastVote.
func ValidateVote(proposalID string, vote governance.VoteType) error {
	if strings.TrimSpace(proposalID) == "" {
		return errors.New(errors.ErrCodeInvalidVote, "proposal id is required")
	}
	if _, ok := governance.ParseVoteType(string(vote)); !ok {
		return errors.New(errors.ErrCodeInvalidVote, "unknown vote type %q", vote)
	}
	return nil
}

// AsInspector returns the Inspector behind src, looking through wrappers
// that expose Unwrap.
func AsInspector(src Source) (Inspector, bool) {
	for src != nil {
		if in, ok := src.(Inspector); ok {
			return in, true
		}
		u, ok := src.(interface{ Unwrap() Source })
		if !ok {
			break
		}
		src = u.Unwrap()
	}
	return nil, false
}
