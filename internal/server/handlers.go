package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/pipeline"
	"github.com/matzehuels/govdash/pkg/render"
	"github.com/matzehuels/govdash/pkg/source"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// =============================================================================
// Backend passthrough
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	in, ok := source.AsInspector(s.src)
	if !ok {
		writeJSON(w, http.StatusOK, source.Health{
			Status:   "ok",
			Message:  "API server is running",
			Database: s.src.Name(),
			Time:     time.Now().UTC(),
		})
		return
	}
	h, err := in.Health(r.Context())
	if err != nil {
		s.logger.Warn("health check failed", "source", s.src.Name(), "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Database connection failed",
			"error":   errors.UserMessage(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleCheckTables(w http.ResponseWriter, r *http.Request) {
	in, ok := source.AsInspector(s.src)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "source %s cannot list tables", s.src.Name()))
		return
	}
	tables, err := in.CheckTables(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	in, ok := source.AsInspector(s.src)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "source %s cannot list columns", s.src.Name()))
		return
	}
	cols, err := in.Columns(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cols == nil {
		cols = []source.Column{}
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) handleList(kind source.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := source.ListEntities(r.Context(), s.src, kind)
		if err != nil {
			s.writeError(w, r, withKind(err, kind))
			return
		}
		writeJSON(w, http.StatusOK, nonNil(v))
	}
}

// Dashboard is every panel of the dashboard in one response. A panel that
// failed to load is absent and its error is listed under Errors.
type Dashboard struct {
	Agents    []governance.Agent      `json:"agents"`
	Proposals []governance.Proposal   `json:"proposals"`
	Rules     []governance.RuleChange `json:"rules"`
	Conflicts []governance.Conflict   `json:"conflicts"`
	Metrics   governance.Metrics      `json:"metrics"`
	Errors    map[source.Kind]string  `json:"errors,omitempty"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// dashboard loads all panels concurrently. It only fails when every panel
// failed.
func (s *Server) dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		d     Dashboard
		mu    sync.Mutex
		first error
		g     errgroup.Group
	)
	fail := func(kind source.Kind, err error) {
		mu.Lock()
		defer mu.Unlock()
		if d.Errors == nil {
			d.Errors = map[source.Kind]string{}
		}
		d.Errors[kind] = errors.UserMessage(err)
		if first == nil {
			first = withKind(err, kind)
		}
	}
	load := func(kind source.Kind, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				fail(kind, err)
			}
			return nil
		})
	}

	load(source.KindAgents, func() (err error) { d.Agents, err = s.src.Agents(ctx); return })
	load(source.KindProposals, func() (err error) { d.Proposals, err = s.src.Proposals(ctx); return })
	load(source.KindRules, func() (err error) { d.Rules, err = s.src.Rules(ctx); return })
	load(source.KindConflicts, func() (err error) { d.Conflicts, err = s.src.Conflicts(ctx); return })
	load(source.KindMetrics, func() (err error) { d.Metrics, err = s.src.Metrics(ctx); return })
	_ = g.Wait()

	if len(d.Errors) == len(source.Kinds()) {
		return nil, first
	}
	if d.Agents == nil {
		d.Agents = []governance.Agent{}
	}
	if d.Proposals == nil {
		d.Proposals = []governance.Proposal{}
	}
	if d.Rules == nil {
		d.Rules = []governance.RuleChange{}
	}
	if d.Conflicts == nil {
		d.Conflicts = []governance.Conflict{}
	}
	return &d, nil
}

type voteRequest struct {
	ProposalID string `json:"proposalId"`
	VoteType   string `json:"voteType"`
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	vote, ok := governance.ParseVoteType(req.VoteType)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidVote, "unknown vote type %q", req.VoteType))
		return
	}
	if err := source.ValidateVote(req.ProposalID, vote); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.src.CastVote(r.Context(), req.ProposalID, vote)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("vote cast", "proposal", req.ProposalID, "vote", vote)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleStartSimulation(w http.ResponseWriter, r *http.Request) {
	params, err := simulationParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := params.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	run, err := s.src.StartSimulation(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("simulation started", "run", run.ID, "agents", params.AgentCount)
	writeJSON(w, http.StatusOK, run)
}

// simulationParams reads the request body over the defaults. A "scenario"
// field selects a preset that the remaining fields then override.
func simulationParams(r *http.Request) (governance.SimulationParams, error) {
	params := governance.DefaultSimulationParams()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return params, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body")
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return params, nil
	}
	var preset struct {
		Scenario string `json:"scenario"`
	}
	if err := json.Unmarshal(data, &preset); err != nil {
		return params, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode body")
	}
	if preset.Scenario != "" {
		sc, ok := governance.LookupScenario(preset.Scenario)
		if !ok {
			return params, errors.New(errors.ErrCodeNotFound, "unknown scenario %q", preset.Scenario)
		}
		params = sc.Params
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return params, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode body")
	}
	return params, nil
}

func (s *Server) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, governance.Scenarios)
}

// =============================================================================
// Poll state and graph
// =============================================================================

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	fetched, err := s.ctrl.Tick(r.Context())
	if err != nil && errors.Is(err, errors.ErrCodeClosed) {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fetched": fetched,
		"state":   s.ctrl.State(),
	})
}

// handleGraph renders the current scene. param names the URL parameter
// holding the format; empty means JSON.
func (s *Server) handleGraph(param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := s.graphOptions(r, param)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		state := s.ctrl.State()
		scene := state.Scene()
		if scene == nil {
			s.writeError(w, r, errors.New(errors.ErrCodeSourceUnavailable, "no snapshot loaded yet"))
			return
		}
		if opts.Selected == "" {
			opts.Selected = state.Selection
		}
		art, err := s.runner.RenderScene(r.Context(), scene, state.Version(), opts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		h := w.Header()
		h.Set("Content-Type", art.ContentType)
		h.Set("Cache-Control", "no-cache")
		h.Set("X-Snapshot-Version", art.Version)
		if art.CacheHit {
			h.Set("X-Cache", "hit")
		} else {
			h.Set("X-Cache", "miss")
		}
		if state.Status.Stale() {
			h.Set("X-Snapshot-Stale", "true")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(art.Data)
	}
}

func (s *Server) graphOptions(r *http.Request, param string) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Format:     render.FormatJSON,
		Layout:     s.ctrl.Layout(),
		Selected:   q.Get("selected"),
		Background: q.Get("bg"),
		Titles:     queryBool(q.Get("titles")),
		Graphviz:   queryBool(q.Get("graphviz")),
	}
	if param != "" {
		opts.Format = render.Format(chi.URLParam(r, param))
	}
	if v := q.Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "invalid scale %q", v)
		}
		opts.Scale = f
	}
	return opts, nil
}

type clickRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type selectionResponse struct {
	Selected string            `json:"selected"`
	Hit      bool              `json:"hit"`
	Agent    *governance.Agent `json:"agent,omitempty"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, hit := s.ctrl.Click(graph.Point{X: req.X, Y: req.Y})
	writeJSON(w, http.StatusOK, s.selection(id, hit))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ctrl.Select(req.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.selection(req.ID, req.ID != ""))
}

func (s *Server) handleDeselect(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.Deselect()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) selection(id string, hit bool) selectionResponse {
	resp := selectionResponse{Selected: id, Hit: hit}
	if a, ok := s.ctrl.State().Selected(); ok && a.ID == id {
		resp.Agent = &a
	}
	return resp
}

// =============================================================================
// Helpers
// =============================================================================

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return errors.New(errors.ErrCodeInvalidInput, "request body is required")
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode body")
	}
	return nil
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

// nonNil replaces typed nil slices so lists encode as [] rather than null.
func nonNil(v any) any {
	switch x := v.(type) {
	case []governance.Agent:
		if x == nil {
			return []governance.Agent{}
		}
	case []governance.Proposal:
		if x == nil {
			return []governance.Proposal{}
		}
	case []governance.RuleChange:
		if x == nil {
			return []governance.RuleChange{}
		}
	case []governance.Conflict:
		if x == nil {
			return []governance.Conflict{}
		}
	}
	return v
}
