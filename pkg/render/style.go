package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/matzehuels/govdash/pkg/governance"
)

// Stroke and edge styling shared by every output format. The selection
// ring sits SelectionGap pixels outside the node.
const (
	EdgeColor       = "#cbd5e1"
	EdgeWidth       = 1.5
	NodeStroke      = "#ffffff"
	NodeStrokeWidth = 2.0
	SelectionColor  = "#3b82f6"
	SelectionWidth  = 3.0
	SelectionGap    = 4.0
)

// Gradient is a two-stop radial fill, Inner at the node center and Outer
// at its rim.
type Gradient struct {
	Name  string
	Inner string
	Outer string
}

var (
	gradientActive   = Gradient{Name: "active", Inner: "#10b981", Outer: "#059669"}
	gradientInactive = Gradient{Name: "inactive", Inner: "#94a3b8", Outer: "#64748b"}
	gradientAlert    = Gradient{Name: "alert", Inner: "#ef4444", Outer: "#dc2626"}
)

// NodeGradient maps a status to its fill. Suspended agents and agents
// with an unrecognized status share the red alert fill.
func NodeGradient(s governance.Status) Gradient {
	switch s {
	case governance.StatusActive:
		return gradientActive
	case governance.StatusInactive:
		return gradientInactive
	case governance.StatusSuspended, governance.StatusUnknown:
		return gradientAlert
	}
	return gradientAlert
}

// Gradients lists every distinct node fill, in a fixed order.
func Gradients() []Gradient {
	return []Gradient{gradientActive, gradientInactive, gradientAlert}
}

// ParseHex converts a #rgb or #rrggbb color to an opaque RGBA value.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// MustParseHex is like [ParseHex] but panics on malformed input. It is
// meant for the package constants.
func MustParseHex(s string) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}
