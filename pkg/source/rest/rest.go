// Package rest reads governance data from a dashboard API server over HTTP.
//
// The endpoints are the ones the govdash server exposes under /api, so one
// dashboard can be pointed at another:
//
//	GET  /agents, /proposals, /rules, /conflicts, /metrics
//	POST /vote               {"proposalId": "...", "voteType": "for"}
//	POST /simulation/start   {"speed": 1, "agent_count": 10, ...}
//	GET  /health, /check-tables, /columns/{table}
//
// Reads are retried on network errors and 5xx responses. Votes and
// simulation starts are sent once, since repeating them is not idempotent.
package rest

import (
	"context"
	"net/url"
	"time"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/httputil"
	"github.com/matzehuels/govdash/pkg/source"
)

// Name is the backend name.
const Name = "rest"

// DefaultBaseURL is where the API server listens by default.
const DefaultBaseURL = "http://localhost:3001/api"

// Options configures the client.
type Options struct {
	Timeout  time.Duration
	Attempts int
	Delay    time.Duration
	Headers  map[string]string
}

// Source calls a remote dashboard API.
type Source struct {
	read  *httputil.Client
	write *httputil.Client
}

// New creates a source for the API at baseURL.
func New(baseURL string, opts Options) (*Source, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	common := []httputil.ClientOption{}
	if opts.Timeout > 0 {
		common = append(common, httputil.WithTimeout(opts.Timeout))
	}
	for k, v := range opts.Headers {
		common = append(common, httputil.WithHeader(k, v))
	}

	readOpts := common
	if opts.Attempts > 0 {
		readOpts = append(readOpts[:len(readOpts):len(readOpts)], httputil.WithRetry(httputil.Backoff{Attempts: opts.Attempts, Delay: opts.Delay}))
	}
	read, err := httputil.NewClient(baseURL, readOpts...)
	if err != nil {
		return nil, err
	}
	write, err := httputil.NewClient(baseURL, append(common[:len(common):len(common)], httputil.WithRetry(httputil.Backoff{Attempts: 1}))...)
	if err != nil {
		return nil, err
	}
	return &Source{read: read, write: write}, nil
}

// Name implements source.Source.
func (s *Source) Name() string { return Name }

func (s *Source) list(ctx context.Context, path string) ([]governance.Record, error) {
	var out []governance.Record
	if err := s.read.GetJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Agents implements source.Source.
func (s *Source) Agents(ctx context.Context) ([]governance.Agent, error) {
	recs, err := s.list(ctx, "agents")
	if err != nil {
		return nil, err
	}
	return governance.NormalizeAgents(recs), nil
}

// Proposals implements source.Source.
func (s *Source) Proposals(ctx context.Context) ([]governance.Proposal, error) {
	recs, err := s.list(ctx, "proposals")
	if err != nil {
		return nil, err
	}
	out := make([]governance.Proposal, len(recs))
	for i, rec := range recs {
		out[i] = governance.NormalizeProposal(rec)
	}
	return out, nil
}

// Rules implements source.Source.
func (s *Source) Rules(ctx context.Context) ([]governance.RuleChange, error) {
	recs, err := s.list(ctx, "rules")
	if err != nil {
		return nil, err
	}
	out := make([]governance.RuleChange, len(recs))
	for i, rec := range recs {
		out[i] = governance.NormalizeRuleChange(rec)
	}
	return out, nil
}

// Conflicts implements source.Source.
func (s *Source) Conflicts(ctx context.Context) ([]governance.Conflict, error) {
	recs, err := s.list(ctx, "conflicts")
	if err != nil {
		return nil, err
	}
	out := make([]governance.Conflict, len(recs))
	for i, rec := range recs {
		out[i] = governance.NormalizeConflict(rec)
	}
	return out, nil
}

// Metrics implements source.Source.
func (s *Source) Metrics(ctx context.Context) (governance.Metrics, error) {
	var rec governance.Record
	if err := s.read.GetJSON(ctx, "metrics", nil, &rec); err != nil {
		return governance.Metrics{}, err
	}
	return governance.NormalizeMetrics(rec), nil
}

type voteRequest struct {
	ProposalID string              `json:"proposalId"`
	VoteType   governance.VoteType `json:"voteType"`
}

// CastVote implements source.Source.
func (s *Source) CastVote(ctx context.Context, proposalID string, vote governance.VoteType) (governance.Proposal, error) {
	if err := source.ValidateVote(proposalID, vote); err != nil {
		return governance.Proposal{}, err
	}
	var rec governance.Record
	err := s.write.PostJSON(ctx, "vote", voteRequest{ProposalID: proposalID, VoteType: vote}, &rec)
	if errors.Is(err, errors.ErrCodeNotFound) {
		return governance.Proposal{}, errors.Wrap(errors.ErrCodeProposalNotFound, err, "proposal %q", proposalID)
	}
	if err != nil {
		return governance.Proposal{}, err
	}
	return governance.NormalizeProposal(rec), nil
}

// StartSimulation implements source.Source.
func (s *Source) StartSimulation(ctx context.Context, params governance.SimulationParams) (governance.SimulationRun, error) {
	if err := params.Validate(); err != nil {
		return governance.SimulationRun{}, err
	}
	var rec governance.Record
	if err := s.write.PostJSON(ctx, "simulation/start", params, &rec); err != nil {
		return governance.SimulationRun{}, err
	}
	return governance.NormalizeSimulationRun(rec), nil
}

// Health implements source.Inspector.
func (s *Source) Health(ctx context.Context) (source.Health, error) {
	var h source.Health
	if err := s.read.GetJSON(ctx, "health", nil, &h); err != nil {
		return source.Health{Status: "error", Message: errors.UserMessage(err)}, err
	}
	return h, nil
}

// CheckTables implements source.Inspector.
func (s *Source) CheckTables(ctx context.Context) (map[string]source.TableStatus, error) {
	var out map[string]source.TableStatus
	if err := s.read.GetJSON(ctx, "check-tables", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Columns implements source.Inspector.
func (s *Source) Columns(ctx context.Context, table string) ([]source.Column, error) {
	if table == "" {
		return nil, errors.New(errors.ErrCodeInvalidTable, "table name is required")
	}
	var out []source.Column
	if err := s.read.GetJSON(ctx, "columns/"+url.PathEscape(table), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close implements source.Source.
func (s *Source) Close() error { return nil }

var (
	_ source.Source    = (*Source)(nil)
	_ source.Inspector = (*Source)(nil)
)
