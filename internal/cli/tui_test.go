package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/poll"
)

type staticSource struct{ agents []governance.Agent }

func (s staticSource) Name() string { return "static" }

func (s staticSource) Agents(context.Context) ([]governance.Agent, error) { return s.agents, nil }

func watchFixture(t *testing.T) (*poll.Controller, WatchModel) {
	t.Helper()
	src := staticSource{agents: []governance.Agent{
		{ID: "a", Name: "Atlas", Status: governance.StatusActive, Reputation: 90},
		{ID: "b", Name: "Borealis", Status: governance.StatusSuspended, Reputation: 20, Connections: []string{"a"}},
		{ID: "c", Name: "Cygnus", Status: governance.StatusInactive, Reputation: 55},
	}}
	ctrl := poll.New(src, poll.WithLogger(log.New(io.Discard)))
	t.Cleanup(func() { ctrl.Close() })
	if _, err := ctrl.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	states, unsubscribe := ctrl.Subscribe()
	t.Cleanup(unsubscribe)
	return ctrl, newWatchModel(ctrl, states)
}

// next feeds the latest controller state into m.
func next(t *testing.T, m WatchModel) WatchModel {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- waitState(m.states)() }()
	select {
	case msg := <-done:
		updated, _ := m.Update(msg)
		return updated.(WatchModel)
	case <-time.After(2 * time.Second):
		t.Fatal("no state published")
	}
	return m
}

func key(m WatchModel, k string) WatchModel {
	var msg tea.KeyMsg
	switch k {
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	updated, _ := m.Update(msg)
	return updated.(WatchModel)
}

func TestWatchModelView(t *testing.T) {
	_, m := watchFixture(t)
	if !strings.Contains(m.View(), "waiting for the first snapshot") {
		t.Error("empty model should wait for a snapshot")
	}

	m = next(t, m)
	view := m.View()
	for _, want := range []string{"Atlas", "Borealis", "Cygnus", "no agent selected"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q", want)
		}
	}
}

func TestWatchModelSelection(t *testing.T) {
	ctrl, m := watchFixture(t)
	m = next(t, m)

	m = key(m, "down")
	if got := ctrl.State().Selection; got != "b" {
		t.Fatalf("down selected %q, want b", got)
	}
	m = next(t, m)
	if !strings.Contains(m.View(), "Voting power") {
		t.Error("detail panel missing for selected agent")
	}

	m = key(m, "up")
	m = key(m, "up")
	if got := ctrl.State().Selection; got != "c" {
		t.Errorf("up twice from b selected %q, want c (wrap)", got)
	}

	m = key(m, "esc")
	if got := ctrl.State().Selection; got != "" {
		t.Errorf("esc left selection %q", got)
	}
}

func TestWatchModelQuitsOnClose(t *testing.T) {
	ctrl, m := watchFixture(t)
	m = next(t, m)
	ctrl.Close()

	done := make(chan tea.Msg, 1)
	go func() { done <- waitState(m.states)() }()
	select {
	case msg := <-done:
		if _, ok := msg.(closedMsg); !ok {
			// A final state may still be buffered.
			msg = waitState(m.states)()
			if _, ok := msg.(closedMsg); !ok {
				t.Fatalf("got %T after close", msg)
			}
		}
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatal("closed subscription did not quit")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
}
