package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/poll"
	"github.com/matzehuels/govdash/pkg/source"
	"github.com/matzehuels/govdash/pkg/source/mock"
)

type fixture struct {
	src  *mock.Source
	ctrl *poll.Controller
	ts   *httptest.Server
}

func newFixture(t *testing.T, tick bool) *fixture {
	t.Helper()
	src, err := mock.New()
	require.NoError(t, err)
	cached := source.NewCached(src, nil, nil, 0)
	ctrl := poll.New(cached, poll.WithLogger(log.New(io.Discard)))
	if tick {
		_, err := ctrl.Tick(context.Background())
		require.NoError(t, err)
	}
	srv := New(cached, ctrl, nil, log.New(io.Discard), Options{CORSOrigin: "*"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctrl.Close()
	})
	return &fixture{src: src, ctrl: ctrl, ts: ts}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)
	resp := f.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	h := decode[source.Health](t, resp)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "memory", h.Database)
}

func TestHealthFailure(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.src.Close())

	resp := f.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Database connection failed", body["message"])
	assert.NotEmpty(t, body["error"])
}

func TestCheckTablesAndColumns(t *testing.T) {
	f := newFixture(t, false)

	resp := f.do(t, http.MethodGet, "/api/check-tables", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tables := decode[map[string]source.TableStatus](t, resp)
	assert.True(t, tables["agent_states"].Exists)
	assert.EqualValues(t, 8, tables["agent_states"].Count)

	resp = f.do(t, http.MethodGet, "/api/columns/agent_states", nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	e := decode[errorResponse](t, resp)
	assert.Equal(t, string(errors.ErrCodeUnsupported), e.Code)
}

func TestLists(t *testing.T) {
	f := newFixture(t, false)

	resp := f.do(t, http.MethodGet, "/api/agents", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]governance.Agent](t, resp), 8)

	resp = f.do(t, http.MethodGet, "/api/proposals", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	props := decode[[]governance.Proposal](t, resp)
	require.NotEmpty(t, props)
	for i := 1; i < len(props); i++ {
		assert.False(t, props[i].CreatedAt.After(props[i-1].CreatedAt), "proposals not newest first")
	}

	resp = f.do(t, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode[governance.Metrics](t, resp)
	assert.Equal(t, 8, m.TotalAgents)
}

func TestListFailureHint(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.src.Close())

	resp := f.do(t, http.MethodGet, "/api/agents", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	e := decode[errorResponse](t, resp)
	assert.Equal(t, "Make sure the agent_states table exists", e.Hint)
	assert.Equal(t, string(errors.ErrCodeClosed), e.Code)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, false)
	resp := f.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decode[Dashboard](t, resp)
	assert.Len(t, d.Agents, 8)
	assert.NotEmpty(t, d.Proposals)
	assert.NotEmpty(t, d.Rules)
	assert.Empty(t, d.Errors)
}

func TestDashboardAllFailed(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.src.Close())
	resp := f.do(t, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestVote(t *testing.T) {
	f := newFixture(t, false)

	resp := f.do(t, http.MethodPost, "/api/vote", map[string]string{"proposalId": "prop-101", "voteType": "for"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[governance.Proposal](t, resp)
	assert.EqualValues(t, 4201, p.VotesFor)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"bad vote type", map[string]string{"proposalId": "prop-101", "voteType": "maybe"}, http.StatusBadRequest},
		{"missing proposal", map[string]string{"voteType": "against"}, http.StatusBadRequest},
		{"unknown proposal", map[string]string{"proposalId": "nope", "voteType": "abstain"}, http.StatusNotFound},
		{"no body", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/api/vote", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestStartSimulation(t *testing.T) {
	f := newFixture(t, false)

	resp := f.do(t, http.MethodPost, "/api/simulation/start", map[string]any{"agent_count": 12})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	run := decode[governance.SimulationRun](t, resp)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 12, run.Params.AgentCount)
	assert.Equal(t, governance.DefaultSimulationParams().TransactionRate, run.Params.TransactionRate)

	resp = f.do(t, http.MethodPost, "/api/simulation/start", map[string]any{"scenario": "stress test", "speed": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	run = decode[governance.SimulationRun](t, resp)
	assert.Equal(t, 50, run.Params.AgentCount)
	assert.EqualValues(t, 3, run.Params.Speed)

	resp = f.do(t, http.MethodPost, "/api/simulation/start", map[string]any{"scenario": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/simulation/start", map[string]any{"agent_count": -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Len(t, f.src.Runs(), 2)

	resp = f.do(t, http.MethodGet, "/api/simulation/scenarios", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]governance.Scenario](t, resp), len(governance.Scenarios))
}

func TestGraphBeforeFirstFetch(t *testing.T) {
	f := newFixture(t, false)
	resp := f.do(t, http.MethodGet, "/api/graph.svg", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestGraphFormats(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		path        string
		contentType string
		prefix      string
	}{
		{"/api/graph", "application/json", "{"},
		{"/api/graph.svg", "image/svg+xml", "<svg"},
		{"/api/graph.png?scale=2", "image/png", "\x89PNG"},
		{"/api/graph.dot?titles=true", "text/vnd.graphviz", "graph agents"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := f.do(t, http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), tt.contentType),
				"content type %q", resp.Header.Get("Content-Type"))
			assert.Equal(t, f.ctrl.State().Version(), resp.Header.Get("X-Snapshot-Version"))
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(strings.TrimSpace(string(body)), tt.prefix), "body %.40q", body)
		})
	}

	resp := f.do(t, http.MethodGet, "/api/graph.pdf", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/api/graph.png?scale=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClickAndSelection(t *testing.T) {
	f := newFixture(t, true)
	node := f.ctrl.State().Scene().Nodes[0]

	resp := f.do(t, http.MethodPost, "/api/graph/click", clickRequest{X: node.Pos.X, Y: node.Pos.Y})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sel := decode[selectionResponse](t, resp)
	assert.True(t, sel.Hit)
	assert.Equal(t, node.Agent.ID, sel.Selected)
	require.NotNil(t, sel.Agent)
	assert.Equal(t, node.Agent.Name, sel.Agent.Name)
	assert.Equal(t, node.Agent.ID, f.ctrl.State().Selection)

	resp = f.do(t, http.MethodGet, "/api/graph", nil)
	var g struct {
		Selected string `json:"selected"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&g))
	assert.Equal(t, node.Agent.ID, g.Selected)

	resp = f.do(t, http.MethodPost, "/api/graph/click", clickRequest{X: -1000, Y: -1000})
	sel = decode[selectionResponse](t, resp)
	assert.False(t, sel.Hit)
	assert.Empty(t, f.ctrl.State().Selection)

	resp = f.do(t, http.MethodPut, "/api/graph/selection", map[string]string{"id": "agent-echo"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "agent-echo", f.ctrl.State().Selection)

	resp = f.do(t, http.MethodPut, "/api/graph/selection", map[string]string{"id": "ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, f.ctrl.Select("agent-echo"))
	resp = f.do(t, http.MethodDelete, "/api/graph/selection", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, f.ctrl.State().Selection)
}

func TestStateAndRefresh(t *testing.T) {
	f := newFixture(t, false)

	resp := f.do(t, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Fetched bool `json:"fetched"`
		State   struct {
			Snapshot governance.Snapshot `json:"snapshot"`
			Status   struct {
				Phase  string `json:"phase"`
				Source string `json:"source"`
			} `json:"status"`
		} `json:"state"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Fetched)
	assert.Len(t, body.State.Snapshot.Agents, 8)
	assert.Equal(t, "idle", body.State.Status.Phase)

	resp = f.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, f.ctrl.Close())
	resp = f.do(t, http.MethodPost, "/api/refresh", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, false)
	resp := f.do(t, http.MethodOptions, "/api/vote", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebsocket(t *testing.T) {
	f := newFixture(t, true)
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	type event struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	type state struct {
		Selection string `json:"selection"`
	}

	var ev event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "state", ev.Type)

	require.NoError(t, conn.WriteJSON(wsCommand{Type: "select", ID: "agent-draco"}))
	for {
		require.NoError(t, conn.ReadJSON(&ev))
		var st state
		require.NoError(t, json.Unmarshal(ev.Payload, &st))
		if st.Selection == "agent-draco" {
			break
		}
	}

	require.NoError(t, conn.WriteJSON(wsCommand{Type: "bogus"}))
	for {
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == "error" {
			break
		}
	}
	assert.Contains(t, string(ev.Payload), "bogus")
}
