package validate

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/volvulus/untwist/pkg/graph"
)

// Stats describes the connectivity of a graph.
type Stats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`

	// Components is the number of weakly connected components.
	Components int `json:"components"`

	// LargestComponent is the node count of the biggest component.
	LargestComponent int `json:"largestComponent"`

	// CyclicGroups is the number of strongly connected components with
	// more than one node. Self-loops are not counted.
	CyclicGroups int `json:"cyclicGroups"`

	SelfLoops int `json:"selfLoops"`
	Isolated  int `json:"isolated"`
}

// connectivity computes Stats with gonum. Duplicate node ids and dangling
// endpoints are ignored here; they are reported as findings.
func connectivity(g *graph.Graph) Stats {
	st := Stats{Nodes: g.NodeCount(), Edges: g.EdgeCount()}

	ids := make(map[string]int64, g.NodeCount())
	directed := simple.NewDirectedGraph()
	undirected := simple.NewUndirectedGraph()
	for i := range g.NodeCount() {
		id := g.NodeAt(i).ID
		if _, dup := ids[id]; dup {
			continue
		}
		n := int64(len(ids))
		ids[id] = n
		directed.AddNode(simple.Node(n))
		undirected.AddNode(simple.Node(n))
	}

	degree := make(map[int64]int, len(ids))
	for i := range g.EdgeCount() {
		e := g.EdgeAt(i)
		from, okFrom := ids[e.Source]
		to, okTo := ids[e.Target]
		if !okFrom || !okTo {
			continue
		}
		degree[from]++
		degree[to]++
		if from == to {
			st.SelfLoops++
			continue
		}
		directed.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		undirected.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}

	for _, n := range ids {
		if degree[n] == 0 {
			st.Isolated++
		}
	}

	for _, cc := range topo.ConnectedComponents(undirected) {
		st.Components++
		st.LargestComponent = max(st.LargestComponent, len(cc))
	}
	for _, scc := range topo.TarjanSCC(directed) {
		if len(scc) > 1 {
			st.CyclicGroups++
		}
	}
	return st
}
