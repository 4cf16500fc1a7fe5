package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	uio "github.com/volvulus/untwist/pkg/io"
	"github.com/volvulus/untwist/pkg/pipeline"
	"github.com/volvulus/untwist/pkg/project"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	tabActiveStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Underline(true)
)

func (c *CLI) inspectCommand() *cobra.Command {
	var fromJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <dump>",
		Short: "Browse a loaded graph in the terminal",
		Long: `Inspect loads a dump and opens an interactive browser over its nodes.
The details pane shows the selected node's attributes and edges; tab
switches to the warnings of the load.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				rg       *project.RenderableGraph
				warnings []pipeline.Warning
			)
			if fromJSON {
				g, err := uio.ImportGraph(args[0])
				if err != nil {
					return err
				}
				rg = g
			} else {
				out, err := c.load(cmd, args[0], false)
				if err != nil {
					return err
				}
				if !out.OK() {
					printFailure(out.Failure)
					return out.Err()
				}
				rg, warnings = out.Graph, out.Warnings
			}

			p := tea.NewProgram(newInspectModel(rg, warnings), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err := p.Run()
			return err
		},
	}
	addPipelineFlags(cmd)
	cmd.Flags().BoolVar(&fromJSON, "from-json", false, "read a graph JSON written by render -f json")
	return cmd
}

// Inspector panes.
const (
	paneNodes = iota
	paneWarnings
)

// inspectModel is the bubbletea model of the inspect command.
type inspectModel struct {
	graph    *project.RenderableGraph
	warnings []pipeline.Warning
	out, in  map[string][]project.RenderEdge

	pane   int
	cursor [2]int
	offset [2]int
	height int
}

func newInspectModel(rg *project.RenderableGraph, warnings []pipeline.Warning) inspectModel {
	if rg == nil {
		rg = &project.RenderableGraph{}
	}
	m := inspectModel{
		graph:    rg,
		warnings: warnings,
		out:      make(map[string][]project.RenderEdge),
		in:       make(map[string][]project.RenderEdge),
		height:   15,
	}
	for _, e := range rg.Edges {
		m.out[e.Source] = append(m.out[e.Source], e)
		m.in[e.Target] = append(m.in[e.Target], e)
	}
	return m
}

func (m inspectModel) Init() tea.Cmd { return nil }

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.pane = (m.pane + 1) % 2
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "pgup":
			m.move(-m.height)
		case "pgdown":
			m.move(m.height)
		case "home", "g":
			m.move(-m.rows())
		case "end", "G":
			m.move(m.rows())
		}
	case tea.WindowSizeMsg:
		m.height = max(5, msg.Height-8)
	}
	return m, nil
}

// rows returns the length of the active pane's list.
func (m inspectModel) rows() int {
	if m.pane == paneWarnings {
		return len(m.warnings)
	}
	return len(m.graph.Nodes)
}

// move shifts the cursor of the active pane by delta, keeping it visible.
func (m *inspectModel) move(delta int) {
	n := m.rows()
	if n == 0 {
		return
	}
	p := m.pane
	m.cursor[p] = min(max(m.cursor[p]+delta, 0), n-1)
	if m.cursor[p] < m.offset[p] {
		m.offset[p] = m.cursor[p]
	}
	if m.cursor[p] >= m.offset[p]+m.height {
		m.offset[p] = m.cursor[p] - m.height + 1
	}
}

// selected returns the node under the cursor.
func (m inspectModel) selected() (project.RenderNode, bool) {
	if len(m.graph.Nodes) == 0 {
		return project.RenderNode{}, false
	}
	return m.graph.Nodes[m.cursor[paneNodes]], true
}

func (m inspectModel) View() string {
	var b strings.Builder

	tabs := []string{
		fmt.Sprintf("Nodes (%d)", len(m.graph.Nodes)),
		fmt.Sprintf("Warnings (%d)", len(m.warnings)),
	}
	for i, t := range tabs {
		if i == m.pane {
			tabs[i] = tabActiveStyle.Render(t)
		} else {
			tabs[i] = listDimStyle.Render(t)
		}
	}
	b.WriteString(styleTitle.Render("untwist") + "  " + strings.Join(tabs, "  "))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  tab switch  q quit"))
	b.WriteString("\n\n")

	if m.pane == paneWarnings {
		b.WriteString(m.warningsView())
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.nodesView(), "  ", m.detailsView()))
	}

	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.cursor[m.pane]+1, m.rows()), m.rows())))
	return b.String()
}

func (m inspectModel) nodesView() string {
	if len(m.graph.Nodes) == 0 {
		return listDimStyle.Render("graph is empty")
	}
	start := m.offset[paneNodes]
	end := min(start+m.height, len(m.graph.Nodes))

	rows := make([][]string, 0, end-start)
	for i := start; i < end; i++ {
		n := m.graph.Nodes[i]
		cursor := "  "
		if i == m.cursor[paneNodes] {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, n.Label, string(n.StyleKind)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "Style").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			idx := start + row
			if idx >= len(m.graph.Nodes) {
				return lipgloss.NewStyle()
			}
			if idx == m.cursor[paneNodes] {
				return listSelectedStyle
			}
			if col == 2 {
				return lipgloss.NewStyle().Foreground(kindColors[m.graph.Nodes[idx].StyleKind])
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}

func (m inspectModel) detailsView() string {
	n, ok := m.selected()
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(styleTitle.Render(n.Label) + "\n")
	b.WriteString(listDimStyle.Render(n.ID) + "\n\n")

	for _, d := range n.Details {
		b.WriteString(styleKey.Render(d.Name) + " " + styleValue.Render(d.Value) + "\n")
	}
	if len(n.Details) > 0 && len(n.Attributes) > 0 {
		b.WriteString("\n")
	}
	for _, k := range slices.Sorted(maps.Keys(n.Attributes)) {
		b.WriteString(styleKey.Render(k) + " " + styleValue.Render(fmt.Sprint(n.Attributes[k])) + "\n")
	}

	edgeLines := func(title string, edges []project.RenderEdge, other func(project.RenderEdge) string) {
		if len(edges) == 0 {
			return
		}
		b.WriteString("\n" + styleNumber.Render(fmt.Sprintf("%s (%d)", title, len(edges))) + "\n")
		for _, e := range edges {
			b.WriteString(fmt.Sprintf("  %s %s %s\n", iconArrow, other(e), listDimStyle.Render(string(e.StyleKind))))
		}
	}
	edgeLines("Outgoing", m.out[n.ID], func(e project.RenderEdge) string { return e.Target })
	edgeLines("Incoming", m.in[n.ID], func(e project.RenderEdge) string { return e.Source })

	return lipgloss.NewStyle().Width(60).Render(b.String())
}

func (m inspectModel) warningsView() string {
	if len(m.warnings) == 0 {
		return styleIconSuccess.Render(iconSuccess) + " no warnings"
	}
	start := m.offset[paneWarnings]
	end := min(start+m.height, len(m.warnings))

	var b strings.Builder
	for i := start; i < end; i++ {
		w := m.warnings[i]
		line := fmt.Sprintf("%-9s %-26s %s", w.Source, w.Code, w.Message)
		if i == m.cursor[paneWarnings] {
			b.WriteString(listSelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString("  " + styleWarning.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
