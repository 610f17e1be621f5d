package graph

import (
	"math"

	"github.com/matzehuels/govdash/pkg/governance"
)

// =============================================================================
// Layout Constants
// =============================================================================

// Default canvas and circle dimensions.
const (
	DefaultWidth  = 600
	DefaultHeight = 500
	DefaultRadius = 180
)

// Node radius bounds. A node grows linearly with reputation between them.
const (
	MinNodeRadius = 8
	MaxNodeRadius = 16
)

// =============================================================================
// Config
// =============================================================================

// Point is a canvas coordinate. The y axis grows downwards.
type Point struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
}

// Config holds the canvas size and the layout circle.
// Zero fields are filled by [Config.Normalize].
type Config struct {
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
	Radius float64 `json:"radius" toml:"radius"`
	Center *Point  `json:"center,omitempty" toml:"center"`
}

// DefaultConfig returns a 600×500 canvas with a circle of radius 180
// around (300, 250).
func DefaultConfig() Config {
	return Config{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Radius: DefaultRadius,
		Center: &Point{X: DefaultWidth / 2, Y: DefaultHeight / 2},
	}
}

// Normalize fills unset dimensions. A missing center defaults to the middle
// of the canvas.
func (c Config) Normalize() Config {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.Radius <= 0 {
		c.Radius = DefaultRadius
	}
	if c.Center == nil {
		c.Center = &Point{X: c.Width / 2, Y: c.Height / 2}
	}
	return c
}

// =============================================================================
// Layout
// =============================================================================

// Positions maps agent ids to canvas coordinates.
type Positions map[string]Point

// Layout places agents evenly on the configured circle in the given order.
// An empty input yields an empty, non-nil map. Duplicate ids are dropped
// before spacing, so the first occurrence gets the only slot and the
// distinct agents are spread evenly.
func Layout(agents []governance.Agent, cfg Config) Positions {
	cfg = cfg.Normalize()
	ids := make([]string, 0, len(agents))
	seen := make(map[string]struct{}, len(agents))
	for _, a := range agents {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		ids = append(ids, a.ID)
	}

	pos := make(Positions, len(ids))
	n := float64(len(ids))
	for i, id := range ids {
		theta := float64(i)/n*2*math.Pi - math.Pi/2
		pos[id] = Point{
			X: cfg.Center.X + cfg.Radius*math.Cos(theta),
			Y: cfg.Center.Y + cfg.Radius*math.Sin(theta),
		}
	}
	return pos
}

// NodeRadius returns the drawn radius for a reputation score. Scores are
// clamped to [0, 100] so the radius always lies in [8, 16].
func NodeRadius(reputation float64) float64 {
	if math.IsNaN(reputation) {
		reputation = 0
	}
	rep := math.Max(0, math.Min(100, reputation))
	return MinNodeRadius + (MaxNodeRadius-MinNodeRadius)*rep/100
}
