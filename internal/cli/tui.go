package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/govdash/pkg/governance"
	"github.com/matzehuels/govdash/pkg/graph"
	"github.com/matzehuels/govdash/pkg/poll"
	"github.com/matzehuels/govdash/pkg/render"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	panelStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
)

// Map size in terminal cells.
const (
	mapCols = 48
	mapRows = 20
)

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live terminal dashboard of the agent network",
		Long: `Watch polls the source and shows the agent network in the terminal. Use the
arrow keys to select an agent, esc to clear the selection, r to refresh now
and q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context())
		},
	}
}

func (c *CLI) runWatch(ctx context.Context) error {
	cfg, b, err := c.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	// The TUI owns the terminal; logs would garble it.
	c.Logger.SetOutput(io.Discard)

	ctrl := c.newController(ctx, cfg, b)
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = ctrl.Run(ctx) }()

	states, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	p := tea.NewProgram(newWatchModel(ctrl, states), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// =============================================================================
// WatchModel - live network view
// =============================================================================

// controller is the part of poll.Controller the watch model drives.
type controller interface {
	Select(id string) error
	Deselect()
	Tick(ctx context.Context) (bool, error)
}

type stateMsg poll.State

type closedMsg struct{}

type refreshedMsg struct{ err error }

// WatchModel is the bubbletea model of the watch command.
type WatchModel struct {
	ctrl   controller
	states <-chan poll.State
	state  poll.State
	cursor int
	err    string
}

func newWatchModel(ctrl controller, states <-chan poll.State) WatchModel {
	return WatchModel{ctrl: ctrl, states: states}
}

func (m WatchModel) Init() tea.Cmd {
	return waitState(m.states)
}

// waitState delivers the next published state.
func waitState(ch <-chan poll.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return stateMsg(st)
	}
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = poll.State(msg)
		m.syncCursor()
		return m, waitState(m.states)
	case closedMsg:
		return m, tea.Quit
	case refreshedMsg:
		m.err = ""
		if msg.err != nil {
			m.err = msg.err.Error()
		}
	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m WatchModel) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	agents := m.agents()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.ctrl.Deselect()
	case "up", "k":
		if len(agents) > 0 {
			m.cursor = (m.cursor - 1 + len(agents)) % len(agents)
			m.selectCursor(agents)
		}
	case "down", "j", "tab":
		if len(agents) > 0 {
			m.cursor = (m.cursor + 1) % len(agents)
			m.selectCursor(agents)
		}
	case "r":
		ctrl := m.ctrl
		return m, func() tea.Msg {
			_, err := ctrl.Tick(context.Background())
			return refreshedMsg{err}
		}
	}
	return m, nil
}

func (m *WatchModel) selectCursor(agents []governance.Agent) {
	if err := m.ctrl.Select(agents[m.cursor].ID); err != nil {
		m.err = err.Error()
	}
}

// syncCursor moves the cursor onto the selected agent.
func (m *WatchModel) syncCursor() {
	agents := m.agents()
	for i, a := range agents {
		if a.ID == m.state.Selection {
			m.cursor = i
			return
		}
	}
	if m.cursor >= len(agents) {
		m.cursor = max(0, len(agents)-1)
	}
}

func (m WatchModel) agents() []governance.Agent {
	if m.state.Snapshot == nil {
		return nil
	}
	return m.state.Snapshot.Agents
}

func (m WatchModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Governance Network"))
	b.WriteString("  ")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ select  esc clear  r refresh  q quit"))
	b.WriteString("\n\n")

	scene := m.state.Scene()
	if scene == nil {
		b.WriteString(listDimStyle.Render("  waiting for the first snapshot..."))
		return b.String()
	}

	left := panelStyle.Render(networkMap(scene, m.state.Selection))
	right := lipgloss.JoinVertical(lipgloss.Left, m.agentTable(), m.detail())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styleIconError.Render(iconError) + " " + m.err)
	}
	return b.String()
}

func (m WatchModel) statusLine() string {
	st := m.state.Status
	parts := []string{StyleDim.Render(st.Source), StyleDim.Render(st.Phase.String())}
	switch {
	case st.Demo:
		parts = append(parts, StyleWarning.Render("demo data"))
	case st.LastError != "":
		parts = append(parts, styleIconError.Render("stale: "+st.LastError))
	case !st.LastSuccess.IsZero():
		parts = append(parts, StyleSuccess.Render("updated "+st.LastSuccess.Format("15:04:05")))
	}
	if st.Failures > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d failures", st.Failures)))
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

func (m WatchModel) agentTable() string {
	agents := m.agents()
	rows := make([][]string, len(agents))
	for i, a := range agents {
		cursor := "  "
		if i == m.cursor && a.ID == m.state.Selection {
			cursor = "▸ "
		}
		rows[i] = []string{cursor, a.Name, a.Status.String(), fmt.Sprintf("%.0f", a.Reputation)}
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Agent", "Status", "Rep").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(agents) {
				return lipgloss.NewStyle()
			}
			a := agents[row]
			base := lipgloss.NewStyle()
			if a.ID == m.state.Selection {
				base = base.Bold(true)
			}
			if col == 2 {
				return base.Foreground(statusColor(a.Status))
			}
			if a.ID == m.state.Selection {
				return base.Foreground(colorCyan)
			}
			return base.Foreground(colorWhite)
		}).
		String()
}

func (m WatchModel) detail() string {
	a, ok := m.state.Selected()
	if !ok {
		return listDimStyle.Render("  no agent selected")
	}
	lines := []string{
		listSelectedStyle.Render(a.Name) + listDimStyle.Render("  "+a.ID),
		kv("Role", a.Role),
		kv("Status", lipgloss.NewStyle().Foreground(statusColor(a.Status)).Render(a.Status.String())),
		kv("Reputation", fmt.Sprintf("%.1f", a.Reputation)),
		kv("Voting power", governance.FormatNumber(a.VotingPower)),
		kv("Connections", fmt.Sprint(len(a.Connections))),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func kv(k, v string) string {
	return lipgloss.NewStyle().Foreground(colorGray).Width(13).Render(k) + v
}

// statusColor matches the node fills of the rendered graph.
func statusColor(s governance.Status) lipgloss.Color {
	return lipgloss.Color(render.NodeGradient(s).Inner)
}

// networkMap draws the scene on a character grid: edges as dots, agents as
// the first letter of their name.
func networkMap(scene *graph.Scene, selected string) string {
	grid := make([][]string, mapRows)
	for r := range grid {
		grid[r] = make([]string, mapCols)
		for c := range grid[r] {
			grid[r][c] = " "
		}
	}
	cell := func(p graph.Point) (int, int) {
		c := int(p.X / scene.Width * float64(mapCols-1))
		r := int(p.Y / scene.Height * float64(mapRows-1))
		return min(max(r, 0), mapRows-1), min(max(c, 0), mapCols-1)
	}

	edge := listDimStyle.Render("·")
	for _, e := range scene.Edges {
		const steps = 24
		for i := 1; i < steps; i++ {
			t := float64(i) / steps
			r, c := cell(graph.Point{
				X: e.FromPos.X + (e.ToPos.X-e.FromPos.X)*t,
				Y: e.FromPos.Y + (e.ToPos.Y-e.FromPos.Y)*t,
			})
			grid[r][c] = edge
		}
	}
	for _, n := range scene.Nodes {
		r, c := cell(n.Pos)
		glyph := "?"
		if n.Agent.Name != "" {
			glyph = strings.ToUpper(string([]rune(n.Agent.Name)[0]))
		}
		style := lipgloss.NewStyle().Foreground(statusColor(n.Agent.Status))
		if n.Agent.ID == selected {
			style = style.Reverse(true).Bold(true)
		}
		grid[r][c] = style.Render(glyph)
	}

	lines := make([]string, mapRows)
	for r, row := range grid {
		lines[r] = strings.Join(row, "")
	}
	return strings.Join(lines, "\n")
}
