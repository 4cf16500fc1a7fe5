package graph

import (
	"errors"
	"slices"
	"strings"

	"github.com/volvulus/untwist/pkg/kind"
)

// ErrNodeNotFound is returned when a node id is not part of the graph.
var ErrNodeNotFound = errors.New("node not found")

// EdgeKind names the relation an edge stands for.
type EdgeKind string

// Well-known relations. Any normalized relation name is a valid EdgeKind.
const (
	Relates    EdgeKind = "relates"
	Member     EdgeKind = "member"
	Contains   EdgeKind = "contains"
	References EdgeKind = "references"
	Owns       EdgeKind = "owns"
	Applies    EdgeKind = "applies"
)

// NormalizeEdgeKind maps a raw relation name to an EdgeKind. Names are
// lower-cased and characters outside [a-z0-9._-] become '_'. An empty name
// is Relates.
func NormalizeEdgeKind(rel string) EdgeKind {
	rel = strings.ToLower(strings.TrimSpace(rel))
	if rel == "" {
		return Relates
	}
	return EdgeKind(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, rel))
}

// Node is a vertex of the graph.
type Node struct {
	ID         string // canonical id
	SourceID   string // id as spelled in the dump
	Kind       kind.Kind
	RawKind    string
	Label      string
	Payload    kind.Payload
	Attributes map[string]any

	// Record is the index of the dump record the node was built from.
	Record int
}

// Edge is a directed relation between two nodes.
type Edge struct {
	ID         string
	Source     string
	Target     string
	Kind       EdgeKind
	Attributes map[string]any

	// Record is the index of the dump record that declared the edge.
	Record int
}

// IsSelfLoop reports whether the edge starts and ends at the same node.
func (e Edge) IsSelfLoop() bool { return e.Source == e.Target }

// Graph is an immutable snapshot of nodes and edges in insertion order.
// The zero value is an empty graph.
type Graph struct {
	nodes []Node
	edges []Edge
	index map[string]int // node id -> position of its first occurrence
}

// Assemble creates a Graph from nodes and edges in the given order. The
// slices are copied. Assemble does not check invariants.
func Assemble(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		nodes: slices.Clone(nodes),
		edges: slices.Clone(edges),
		index: make(map[string]int, len(nodes)),
	}
	for i, n := range g.nodes {
		if _, ok := g.index[n.ID]; !ok {
			g.index[n.ID] = i
		}
	}
	return g
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Nodes returns the nodes in insertion order. The returned slice is a copy.
func (g *Graph) Nodes() []Node { return slices.Clone(g.nodes) }

// Edges returns the edges in insertion order. The returned slice is a copy.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeAt returns the i-th node in insertion order.
func (g *Graph) NodeAt(i int) Node { return g.nodes[i] }

// EdgeAt returns the i-th edge in insertion order.
func (g *Graph) EdgeAt(i int) Edge { return g.edges[i] }

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, error) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, ErrNodeNotFound
	}
	return g.nodes[i], nil
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Outgoing returns the edges whose source is id, in insertion order.
func (g *Graph) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the edges whose target is id, in insertion order.
func (g *Graph) Incoming(id string) []Edge {
	var in []Edge
	for _, e := range g.edges {
		if e.Target == id {
			in = append(in, e)
		}
	}
	return in
}
