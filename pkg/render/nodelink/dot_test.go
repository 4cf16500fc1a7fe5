package nodelink

import (
	"strings"
	"testing"

	"github.com/volvulus/untwist/pkg/kind"
	"github.com/volvulus/untwist/pkg/project"
)

func sample() *project.RenderableGraph {
	return &project.RenderableGraph{
		Nodes: []project.RenderNode{
			{ID: "user:u", Label: "Ann", StyleKind: kind.StyleIdentity, Attributes: map[string]any{"enabled": true, "cn": "ann"}},
			{
				ID: "group:g", Label: "Admins", StyleKind: kind.StyleCollection, Attributes: map[string]any{},
				Details: []kind.Field{{Name: "account", Value: "admins"}},
			},
			{ID: "unknown.frob:x", StyleKind: kind.StyleUnknown, Attributes: map[string]any{}},
		},
		Edges: []project.RenderEdge{
			{ID: "group:g->user:u#member", Source: "group:g", Target: "user:u", StyleKind: kind.StyleCollection},
			{ID: "user:u->group:g#relates", Source: "user:u", Target: "group:g", StyleKind: kind.StyleLink},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sample(), Options{})

	for _, want := range []string{
		"digraph G {",
		"rankdir=TB;",
		`"user:u" [label="Ann", shape=ellipse`,
		`"group:g" [label="Admins", shape=folder`,
		`"unknown.frob:x" [label="unknown.frob:x", shape=box`,
		`"group:g" -> "user:u" [style=bold];`,
		`"user:u" -> "group:g";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Index(dot, `"user:u" [`) > strings.Index(dot, `"group:g" [`) {
		t.Error("nodes should keep graph order")
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(sample(), Options{Detailed: true, RankDir: RankLeftRight})
	if !strings.Contains(dot, "rankdir=LR;") {
		t.Error("rank direction not applied")
	}
	if !strings.Contains(dot, `label="Ann\ncn: ann\nenabled: true"`) {
		t.Errorf("detailed label missing sorted attributes:\n%s", dot)
	}
	if !strings.Contains(dot, `label="Admins\naccount: admins"`) {
		t.Errorf("detailed label missing payload details:\n%s", dot)
	}
}

func TestToDOTEmpty(t *testing.T) {
	for _, rg := range []*project.RenderableGraph{nil, {}} {
		dot := ToDOT(rg, Options{})
		if !strings.HasPrefix(dot, "digraph G {") || !strings.HasSuffix(dot, "}\n") {
			t.Errorf("unexpected DOT for empty graph:\n%s", dot)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50">`) {
		t.Errorf("normalizeViewBox = %s", out)
	}

	plain := []byte(`<svg><g/></svg>`)
	if string(normalizeViewBox(plain)) != string(plain) {
		t.Error("SVG without viewBox should be unchanged")
	}
}
