// Package supabase reads governance data through a Supabase PostgREST API.
//
// Tables: proposals, rule_changes, conflicts, governance_metrics and
// simulation_runs. Agents come from the get_latest_agent_states RPC.
// Requests carry the project key both as the apikey header and as a bearer
// token, as the Supabase client libraries do.
package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/httputil"
	"github.com/matzehuels/govdash/pkg/source"
)

// Name is the backend name.
const Name = "supabase"

// AgentsRPC is the function returning the newest state of every agent.
const AgentsRPC = "get_latest_agent_states"

// Source calls a Supabase project. It is safe for concurrent use.
type Source struct {
	client *httputil.Client
}

// New creates a source for the project at projectURL, authenticated with
// key.
func New(projectURL, key string, timeout time.Duration) (*Source, error) {
	if key == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "supabase key is required")
	}
	opts := []httputil.ClientOption{
		httputil.WithHeader("apikey", key),
		httputil.WithHeader("Authorization", "Bearer "+key),
		httputil.WithHeader("Prefer", "return=representation"),
	}
	if timeout > 0 {
		opts = append(opts, httputil.WithTimeout(timeout))
	}
	u, err := url.JoinPath(projectURL, "rest", "v1")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "supabase url %q", projectURL)
	}
	c, err := httputil.NewClient(u, opts...)
	if err != nil {
		return nil, err
	}
	return &Source{client: c}, nil
}

// Name implements source.Source.
func (s *Source) Name() string { return Name }

func (s *Source) table(ctx context.Context, name, order string, extra url.Values) ([]governance.Record, error) {
	q := url.Values{"select": {"*"}}
	if order != "" {
		q.Set("order", order)
	}
	for k, vs := range extra {
		q[k] = vs
	}
	var out []governance.Record
	if err := s.client.GetJSON(ctx, name, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Agents calls the get_latest_agent_states RPC.
func (s *Source) Agents(ctx context.Context) ([]governance.Agent, error) {
	var out []governance.Record
	if err := s.client.PostJSON(ctx, "rpc/"+AgentsRPC, struct{}{}, &out); err != nil {
		return nil, err
	}
	return governance.NormalizeAgents(out), nil
}

// Proposals returns proposals, newest first.
func (s *Source) Proposals(ctx context.Context) ([]governance.Proposal, error) {
	recs, err := s.table(ctx, "proposals", "created_at.desc", nil)
	if err != nil {
		return nil, err
	}
	out := make([]governance.Proposal, len(recs))
	for i, rec := range recs {
		out[i] = governance.NormalizeProposal(rec)
	}
	return out, nil
}

// Rules returns rule changes, oldest first.
func (s *Source) Rules(ctx context.Context) ([]governance.RuleChange, error) {
	recs, err := s.table(ctx, "rule_changes", "timestamp.asc", nil)
	if err != nil {
		return nil, err
	}
	out := make([]governance.RuleChange, len(recs))
	for i, rec := range recs {
		out[i] = governance.NormalizeRuleChange(rec)
	}
	return out, nil
}

// Conflicts returns conflicts, newest first.
func (s *Source) Conflicts(ctx context.Context) ([]governance.Conflict, error) {
	recs, err := s.table(ctx, "conflicts", "created_at.desc", nil)
	if err != nil {
		return nil, err
	}
	out := make([]governance.Conflict, len(recs))
	for i, rec := range recs {
		out[i] = governance.NormalizeConflict(rec)
	}
	return out, nil
}

// Metrics reads the single governance_metrics row. An empty table yields
// zeros.
func (s *Source) Metrics(ctx context.Context) (governance.Metrics, error) {
	recs, err := s.table(ctx, "governance_metrics", "", url.Values{"limit": {"1"}})
	if err != nil {
		return governance.Metrics{}, err
	}
	if len(recs) == 0 {
		return governance.Metrics{}, nil
	}
	return governance.NormalizeMetrics(recs[0]), nil
}

// CastVote reads the proposal and writes back the incremented counter.
// PostgREST has no atomic increment, so concurrent votes on one proposal
// may be lost; deployments that care expose an RPC instead.
func (s *Source) CastVote(ctx context.Context, proposalID string, vote governance.VoteType) (governance.Proposal, error) {
	if err := source.ValidateVote(proposalID, vote); err != nil {
		return governance.Proposal{}, err
	}
	filter := url.Values{"id": {"eq." + proposalID}}
	recs, err := s.table(ctx, "proposals", "", filter)
	if err != nil {
		return governance.Proposal{}, err
	}
	if len(recs) == 0 {
		return governance.Proposal{}, errors.New(errors.ErrCodeProposalNotFound, "proposal %q not found", proposalID)
	}

	col := vote.Column()
	if _, ok := recs[0][col]; !ok {
		if camel := camelColumn(vote); recs[0][camel] != nil {
			col = camel
		}
	}
	current, _ := recs[0].Float(col)
	patch := map[string]any{col: current + 1}

	var updated []governance.Record
	if err := s.client.Do(ctx, http.MethodPatch, "proposals", filter, patch, &updated); err != nil {
		return governance.Proposal{}, err
	}
	if len(updated) == 0 {
		return governance.Proposal{}, errors.New(errors.ErrCodeProposalNotFound, "proposal %q not found", proposalID)
	}
	return governance.NormalizeProposal(updated[0]), nil
}

func camelColumn(v governance.VoteType) string {
	switch v {
	case governance.VoteFor:
		return "votesFor"
	case governance.VoteAgainst:
		return "votesAgainst"
	case governance.VoteAbstain:
		return "votesAbstain"
	}
	return string(v)
}

// StartSimulation inserts a simulation_runs row.
func (s *Source) StartSimulation(ctx context.Context, params governance.SimulationParams) (governance.SimulationRun, error) {
	if err := params.Validate(); err != nil {
		return governance.SimulationRun{}, err
	}
	var out []governance.Record
	if err := s.client.PostJSON(ctx, "simulation_runs", params, &out); err != nil {
		return governance.SimulationRun{}, err
	}
	if len(out) == 0 {
		return governance.SimulationRun{}, errors.New(errors.ErrCodeInternal, "insert returned no row")
	}
	return governance.NormalizeSimulationRun(out[0]), nil
}

// Health probes the metrics table.
func (s *Source) Health(ctx context.Context) (source.Health, error) {
	if _, err := s.table(ctx, "governance_metrics", "", url.Values{"limit": {"1"}}); err != nil {
		return source.Health{Status: "error", Message: errors.UserMessage(err), Database: "disconnected"}, err
	}
	return source.Health{Status: "ok", Message: "PostgREST reachable", Database: "connected", Time: time.Now().UTC()}, nil
}

// CheckTables probes every table the dashboard uses. Row counts are not
// reported.
func (s *Source) CheckTables(ctx context.Context) (map[string]source.TableStatus, error) {
	tables := []string{"proposals", "rule_changes", "conflicts", "governance_metrics", "simulation_runs"}
	out := make(map[string]source.TableStatus, len(tables))
	for _, t := range tables {
		_, err := s.table(ctx, t, "", url.Values{"limit": {"1"}})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			out[t] = source.TableStatus{Exists: false, Error: errors.UserMessage(err)}
			continue
		}
		out[t] = source.TableStatus{Exists: true}
	}
	return out, nil
}

// Columns is not exposed by PostgREST without an extra RPC.
func (s *Source) Columns(_ context.Context, table string) ([]source.Column, error) {
	return nil, errors.New(errors.ErrCodeUnsupported, "supabase source cannot list columns of %q", table)
}

// Close implements source.Source.
func (s *Source) Close() error { return nil }

var (
	_ source.Source    = (*Source)(nil)
	_ source.Inspector = (*Source)(nil)
)
