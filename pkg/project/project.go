package project

import (
	"encoding/json"
	"slices"
	"unicode/utf8"

	"github.com/volvulus/untwist/pkg/graph"
	"github.com/volvulus/untwist/pkg/kind"
)

// DefaultMaxAttributeLength is the rune limit for string attributes.
const DefaultMaxAttributeLength = 256

// Ellipsis is appended to truncated strings.
const Ellipsis = "…"

// DefaultDropAttributes lists attributes that carry binary blobs in
// directory dumps.
var DefaultDropAttributes = []string{"nTSecurityDescriptor", "objectGUID", "objectSid"}

// Options configures Project. The zero value uses the defaults.
type Options struct {
	// DropAttributes are removed from every node. Nil means
	// DefaultDropAttributes; an empty non-nil slice drops nothing.
	DropAttributes []string `json:"dropAttributes,omitempty"`

	// MaxAttributeLength truncates longer strings. Zero means
	// DefaultMaxAttributeLength; negative disables truncation.
	MaxAttributeLength int `json:"maxAttributeLength,omitempty"`
}

func (o Options) withDefaults() Options {
	if o.DropAttributes == nil {
		o.DropAttributes = DefaultDropAttributes
	}
	if o.MaxAttributeLength == 0 {
		o.MaxAttributeLength = DefaultMaxAttributeLength
	}
	return o
}

// RenderableGraph is the node/edge shape handed to the renderer.
type RenderableGraph struct {
	Nodes []RenderNode `json:"nodes"`
	Edges []RenderEdge `json:"edges"`
}

// RenderNode is one node as the renderer sees it.
type RenderNode struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	StyleKind  kind.StyleKind `json:"styleKind"`
	Attributes map[string]any `json:"attributes"`

	// Details are the node's kind payload, formatted for display.
	Details []kind.Field `json:"details,omitempty"`
}

// RenderEdge is one edge as the renderer sees it.
type RenderEdge struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Target    string         `json:"target"`
	StyleKind kind.StyleKind `json:"styleKind"`
}

// Node returns the node with the given id.
func (rg *RenderableGraph) Node(id string) (RenderNode, bool) {
	for _, n := range rg.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return RenderNode{}, false
}

// Project converts g. It never fails; a nil graph projects to an empty one.
func Project(g *graph.Graph, opts Options) *RenderableGraph {
	opts = opts.withDefaults()
	rg := &RenderableGraph{Nodes: []RenderNode{}, Edges: []RenderEdge{}}
	if g == nil {
		return rg
	}

	rg.Nodes = make([]RenderNode, 0, g.NodeCount())
	for i := range g.NodeCount() {
		n := g.NodeAt(i)
		rg.Nodes = append(rg.Nodes, RenderNode{
			ID:         n.ID,
			Label:      n.Label,
			StyleKind:  n.Kind.Style(),
			Attributes: scalars(n.Attributes, opts),
			Details:    details(n.Payload, opts),
		})
	}

	rg.Edges = make([]RenderEdge, 0, g.EdgeCount())
	for i := range g.EdgeCount() {
		e := g.EdgeAt(i)
		rg.Edges = append(rg.Edges, RenderEdge{
			ID:        e.ID,
			Source:    e.Source,
			Target:    e.Target,
			StyleKind: EdgeStyle(e.Kind),
		})
	}
	return rg
}

// EdgeStyle maps an edge kind to a style category.
func EdgeStyle(k graph.EdgeKind) kind.StyleKind {
	switch k {
	case graph.Relates, graph.References:
		return kind.StyleLink
	case graph.Member:
		return kind.StyleCollection
	case graph.Contains:
		return kind.StyleContainer
	case graph.Owns:
		return kind.StyleIdentity
	case graph.Applies:
		return kind.StylePolicy
	}
	return kind.StyleUnknown
}

func details(p kind.Payload, opts Options) []kind.Field {
	fs := kind.Describe(p)
	for i := range fs {
		fs[i].Value = truncate(fs[i].Value, opts.MaxAttributeLength)
	}
	return fs
}

// scalars returns the string, bool and number attributes of attrs.
// The result is never nil.
func scalars(attrs map[string]any, opts Options) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if slices.Contains(opts.DropAttributes, k) {
			continue
		}
		switch v := v.(type) {
		case string:
			out[k] = truncate(v, opts.MaxAttributeLength)
		case bool, json.Number, float64, float32, int, int64, int32, uint64, uint32:
			out[k] = v
		}
	}
	return out
}

func truncate(s string, limit int) string {
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}
