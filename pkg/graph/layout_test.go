package graph

import (
	"fmt"
	"math"
	"testing"

	"github.com/matzehuels/govdash/pkg/governance"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func agentsN(n int) []governance.Agent {
	agents := make([]governance.Agent, n)
	for i := range agents {
		agents[i] = governance.Agent{ID: fmt.Sprintf("agent-%d", i)}
	}
	return agents
}

func TestLayoutPositionCount(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 7, 50, 251} {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			pos := Layout(agentsN(n), DefaultConfig())
			if pos == nil {
				t.Fatal("Layout returned nil map")
			}
			if len(pos) != n {
				t.Fatalf("len = %d, want %d", len(pos), n)
			}
			seen := make(map[Point]string, n)
			for id, p := range pos {
				if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
					t.Errorf("%s at non-finite %v", id, p)
				}
				if other, dup := seen[p]; dup {
					t.Errorf("%s and %s share position %v", id, other, p)
				}
				seen[p] = id
			}
		})
	}
}

func TestLayoutDeterministic(t *testing.T) {
	agents := agentsN(13)
	first := Layout(agents, DefaultConfig())
	for run := 0; run < 5; run++ {
		again := Layout(agents, DefaultConfig())
		for id, p := range first {
			if again[id] != p {
				t.Fatalf("run %d: %s moved from %v to %v", run, id, p, again[id])
			}
		}
	}
}

func TestLayoutStartsAtTwelveClockwise(t *testing.T) {
	pos := Layout(agentsN(4), DefaultConfig())
	want := []Point{{300, 70}, {480, 250}, {300, 430}, {120, 250}}
	for i, w := range want {
		got := pos[fmt.Sprintf("agent-%d", i)]
		if !near(got.X, w.X) || !near(got.Y, w.Y) {
			t.Errorf("agent-%d = %v, want %v", i, got, w)
		}
	}
}

func TestLayoutDuplicatesKeepSpacing(t *testing.T) {
	agents := []governance.Agent{{ID: "a"}, {ID: "a"}, {ID: "b"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	pos := Layout(agents, DefaultConfig())
	if len(pos) != 4 {
		t.Fatalf("len = %d, want 4", len(pos))
	}
	want := Layout(agentsN(4), DefaultConfig())
	for i, id := range []string{"a", "b", "c", "d"} {
		w := want[fmt.Sprintf("agent-%d", i)]
		if got := pos[id]; !near(got.X, w.X) || !near(got.Y, w.Y) {
			t.Errorf("%s = %v, want %v", id, got, w)
		}
	}
}

func TestLayoutOnlyInputIDs(t *testing.T) {
	agents := []governance.Agent{{ID: "a", Connections: []string{"ghost"}}}
	pos := Layout(agents, DefaultConfig())
	if _, ok := pos["ghost"]; ok {
		t.Error("position assigned to id absent from input")
	}
}

func TestConfigNormalize(t *testing.T) {
	c := Config{Width: 800, Height: 400}.Normalize()
	if c.Radius != DefaultRadius {
		t.Errorf("Radius = %v, want %v", c.Radius, DefaultRadius)
	}
	if c.Center == nil || c.Center.X != 400 || c.Center.Y != 200 {
		t.Errorf("Center = %v, want (400, 200)", c.Center)
	}
}

func TestNodeRadius(t *testing.T) {
	tests := []struct {
		rep  float64
		want float64
	}{
		{0, 8},
		{100, 16},
		{50, 12},
		{-40, 8},
		{250, 16},
		{math.NaN(), 8},
	}
	for _, tt := range tests {
		if got := NodeRadius(tt.rep); got != tt.want {
			t.Errorf("NodeRadius(%v) = %v, want %v", tt.rep, got, tt.want)
		}
	}
}

func TestNodeRadiusMonotonic(t *testing.T) {
	prev := NodeRadius(0)
	for rep := 0.5; rep <= 100; rep += 0.5 {
		r := NodeRadius(rep)
		if r <= prev {
			t.Fatalf("NodeRadius(%v) = %v, not greater than %v", rep, r, prev)
		}
		prev = r
	}
}
