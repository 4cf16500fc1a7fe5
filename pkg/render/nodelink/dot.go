package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/volvulus/untwist/pkg/kind"
	"github.com/volvulus/untwist/pkg/project"
)

// Rank directions accepted by Options.RankDir.
const (
	RankTopBottom = "TB"
	RankLeftRight = "LR"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds the node's attributes to its label.
	Detailed bool

	// RankDir is RankTopBottom (default) or RankLeftRight.
	RankDir string
}

type nodeStyle struct {
	shape string
	fill  string
}

var nodeStyles = map[kind.StyleKind]nodeStyle{
	kind.StyleMemory:     {"box", "#e3f2fd"},
	kind.StyleLink:       {"cds", "#ede7f6"},
	kind.StyleIdentity:   {"ellipse", "#e8f5e9"},
	kind.StyleCollection: {"folder", "#fff8e1"},
	kind.StyleContainer:  {"box3d", "#fbe9e7"},
	kind.StylePolicy:     {"note", "#f3e5f5"},
	kind.StyleUnknown:    {"box", "#eeeeee"},
}

var edgeStyles = map[kind.StyleKind]string{
	kind.StyleCollection: "style=bold",
	kind.StyleContainer:  "arrowhead=diamond",
	kind.StyleIdentity:   "color=\"#2e7d32\"",
	kind.StylePolicy:     "style=dashed",
	kind.StyleUnknown:    "color=grey",
}

// ToDOT converts rg to Graphviz DOT. Nodes and edges are written in the
// graph's order.
func ToDOT(rg *project.RenderableGraph, opts Options) string {
	rankdir := opts.RankDir
	if rankdir != RankLeftRight {
		rankdir = RankTopBottom
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=\"rounded,filled\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	if rg != nil {
		for _, n := range rg.Nodes {
			st, ok := nodeStyles[n.StyleKind]
			if !ok {
				st = nodeStyles[kind.StyleUnknown]
			}
			attrs := []string{
				fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed)),
				fmt.Sprintf("shape=%s", st.shape),
				fmt.Sprintf("fillcolor=%q", st.fill),
				fmt.Sprintf("tooltip=%q", n.ID),
			}
			fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
		}

		buf.WriteString("\n")
		for _, e := range rg.Edges {
			if attr, ok := edgeStyles[e.StyleKind]; ok {
				fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, attr)
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n project.RenderNode, detailed bool) string {
	label := n.Label
	if label == "" {
		label = n.ID
	}
	if !detailed || len(n.Details)+len(n.Attributes) == 0 {
		return label
	}
	parts := make([]string, 0, len(n.Details)+len(n.Attributes))
	for _, d := range n.Details {
		parts = append(parts, d.Name+": "+d.Value)
	}
	for _, k := range slices.Sorted(maps.Keys(n.Attributes)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Attributes[k]))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

// RenderSVG lays out and renders a DOT graph to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales with its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
