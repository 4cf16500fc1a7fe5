package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/volvulus/untwist/pkg/kind"
	"github.com/volvulus/untwist/pkg/pipeline"
	"github.com/volvulus/untwist/pkg/project"
)

func testGraph() *project.RenderableGraph {
	return &project.RenderableGraph{
		Nodes: []project.RenderNode{
			{ID: "alloc:a", Label: "a", StyleKind: kind.StyleMemory, Attributes: map[string]any{"size": 16}},
			{ID: "alloc:b", Label: "b", StyleKind: kind.StyleMemory},
			{
				ID: "user:c", Label: "c", StyleKind: kind.StyleIdentity,
				Details: []kind.Field{{Name: "account", Value: "carol"}},
			},
		},
		Edges: []project.RenderEdge{
			{ID: "alloc:a->alloc:b", Source: "alloc:a", Target: "alloc:b", StyleKind: kind.StyleLink},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m inspectModel, keys ...string) inspectModel {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(inspectModel)
	}
	return m
}

func TestInspectNavigation(t *testing.T) {
	m := newInspectModel(testGraph(), nil)

	tests := []struct {
		keys []string
		want string
	}{
		{nil, "alloc:a"},
		{[]string{"j"}, "alloc:b"},
		{[]string{"down", "down", "down"}, "user:c"},
		{[]string{"G", "k"}, "alloc:b"},
		{[]string{"k", "k"}, "alloc:a"},
	}
	for _, tt := range tests {
		got := press(m, tt.keys...)
		n, ok := got.selected()
		if !ok || n.ID != tt.want {
			t.Errorf("keys %v: selected %q, want %q", tt.keys, n.ID, tt.want)
		}
	}
}

func TestInspectDetails(t *testing.T) {
	m := newInspectModel(testGraph(), nil)

	view := m.View()
	for _, want := range []string{"Nodes (3)", "Warnings (0)", "size", "Outgoing (1)", "alloc:b"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q", want)
		}
	}

	view = press(m, "j").View()
	if !strings.Contains(view, "Incoming (1)") {
		t.Error("second node should list its incoming edge")
	}

	view = press(m, "G").View()
	for _, want := range []string{"account", "carol"} {
		if !strings.Contains(view, want) {
			t.Errorf("payload details lack %q", want)
		}
	}
}

func TestInspectWarningsPane(t *testing.T) {
	warnings := []pipeline.Warning{
		{Source: pipeline.SourceValidator, Code: "ISOLATED_NODE", NodeID: "user:c", Message: "user:c has no edges"},
	}
	m := press(newInspectModel(testGraph(), warnings), "tab")
	if m.pane != paneWarnings {
		t.Fatalf("pane = %d, want warnings", m.pane)
	}
	if view := m.View(); !strings.Contains(view, "user:c has no edges") {
		t.Errorf("warnings view = %q", view)
	}

	// Moving in the warnings pane leaves the node cursor alone.
	m = press(m, "j", "tab")
	if n, _ := m.selected(); n.ID != "alloc:a" {
		t.Errorf("selected = %q after moving in warnings", n.ID)
	}
}

func TestInspectEmptyGraph(t *testing.T) {
	m := press(newInspectModel(nil, nil), "j", "tab", "j")
	if _, ok := m.selected(); ok {
		t.Error("empty graph has no selection")
	}
	if !strings.Contains(m.View(), "no warnings") {
		t.Error("empty warnings pane should say so")
	}
}

func TestInspectQuit(t *testing.T) {
	_, cmd := newInspectModel(testGraph(), nil).Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
