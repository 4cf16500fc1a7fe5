package build

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"slices"

	"github.com/volvulus/untwist/pkg/dump"
	"github.com/volvulus/untwist/pkg/graph"
	"github.com/volvulus/untwist/pkg/kind"
)

// DefaultParallelThreshold is the record count from which classification
// runs on multiple goroutines.
const DefaultParallelThreshold = 2048

// Options configures Build. The zero value is ready to use.
type Options struct {
	// Parallelism is the number of classification workers.
	// Zero means runtime.GOMAXPROCS(0); one disables parallelism.
	Parallelism int

	// ParallelThreshold is the minimum record count for parallel
	// classification. Zero means DefaultParallelThreshold.
	ParallelThreshold int
}

func (o Options) withDefaults() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	if o.ParallelThreshold <= 0 {
		o.ParallelThreshold = DefaultParallelThreshold
	}
	return o
}

// Stats summarises one build.
type Stats struct {
	Records  int
	Nodes    int
	Edges    int
	Skipped  int  // records that produced no node
	Deferred int  // edges whose target appears later in the dump
	Parallel bool // classification ran on multiple goroutines
}

// Result is the output of Build.
type Result struct {
	Graph   *graph.Graph
	Notices []Notice
	Stats   Stats
}

// Build derives a graph from env. A nil envelope or one without records
// builds to an empty graph. The only error is ctx.Err(), checked between phases.
func Build(ctx context.Context, env *dump.Envelope, opts Options) (*Result, error) {
	if env == nil {
		env = &dump.Envelope{}
	}
	opts = opts.withDefaults()
	b := &builder{records: env.Records}

	items, parallel, err := classifyAll(ctx, env.Records, opts.Parallelism, opts.ParallelThreshold)
	if err != nil {
		return nil, err
	}
	b.stats.Parallel = parallel
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.collectNodes(items)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.resolveEdges()

	b.stats.Records = len(env.Records)
	b.stats.Nodes = len(b.nodes)
	b.stats.Edges = len(b.edges)
	return &Result{
		Graph:   graph.Assemble(b.nodes, b.edges),
		Notices: b.notices,
		Stats:   b.stats,
	}, nil
}

// builder holds the state of one Build call.
type builder struct {
	records []dump.RawRecord

	nodes    []graph.Node
	edges    []graph.Edge
	notices  []Notice
	stats    Stats
	owner    map[string]int      // canonical id -> winning record index
	bySource map[string][]string // source id -> canonical ids, sorted
	kept     []int               // record indices that produced a node, in order
}

func (b *builder) collectNodes(items []classified) {
	b.owner = make(map[string]int, len(items))
	b.bySource = make(map[string][]string, len(items))

	for i, it := range items {
		rec := b.records[i]
		if !it.ok {
			b.stats.Skipped++
			b.notify(Notice{
				Code:    NoticeMissingID,
				Record:  i,
				Message: fmt.Sprintf("records[%d] has no id", i),
			})
			continue
		}

		id := it.node.ID
		if winner, dup := b.owner[id]; dup {
			b.stats.Skipped++
			b.notify(Notice{
				Code:     NoticeDuplicateID,
				Record:   i,
				RecordID: rec.ID,
				NodeID:   id,
				Winner:   winner,
				Message:  fmt.Sprintf("records[%d]: %s already defined by records[%d]", i, id, winner),
			})
			continue
		}

		b.owner[id] = i
		it.node.Record = i
		b.nodes = append(b.nodes, it.node)
		b.kept = append(b.kept, i)

		ids := b.bySource[rec.ID]
		pos, _ := slices.BinarySearch(ids, id)
		b.bySource[rec.ID] = slices.Insert(ids, pos, id)
	}
}

func (b *builder) resolveEdges() {
	seen := make(map[string]bool)

	for n, i := range b.kept {
		rec := b.records[i]
		source := b.nodes[n].ID

		for _, ref := range rec.RelatesTo {
			target, ok := b.resolve(i, rec, ref)
			if !ok {
				continue
			}

			k := graph.NormalizeEdgeKind(ref.Rel)
			id := graph.EdgeID(source, target, k)
			if seen[id] {
				b.notify(Notice{
					Code:     NoticeDuplicateEdge,
					Record:   i,
					RecordID: rec.ID,
					NodeID:   source,
					EdgeID:   id,
					Target:   ref.ID,
					Message:  fmt.Sprintf("records[%d]: edge %s declared more than once", i, id),
				})
				continue
			}
			seen[id] = true

			if b.owner[target] > i {
				b.stats.Deferred++
			}
			b.edges = append(b.edges, graph.Edge{
				ID:         id,
				Source:     source,
				Target:     target,
				Kind:       k,
				Attributes: maps.Clone(ref.Attributes),
				Record:     i,
			})
		}
	}
}

// resolve returns the canonical id ref points to.
func (b *builder) resolve(i int, rec dump.RawRecord, ref dump.Reference) (string, bool) {
	if ref.ID == "" {
		b.unresolved(i, rec, ref, "an empty id")
		return "", false
	}
	if ref.Qualified() {
		id := graph.NodeID(kind.Tag(kind.Classify(ref.Kind), ref.Kind), ref.ID)
		if _, ok := b.owner[id]; ok {
			return id, true
		}
		b.unresolved(i, rec, ref, fmt.Sprintf("%s (kind %s)", ref.ID, ref.Kind))
		return "", false
	}

	candidates := b.bySource[ref.ID]
	switch len(candidates) {
	case 0:
		b.unresolved(i, rec, ref, ref.ID)
		return "", false
	case 1:
		return candidates[0], true
	}

	target := candidates[0]
	b.notify(Notice{
		Code:     NoticeAmbiguousReference,
		Record:   i,
		RecordID: rec.ID,
		NodeID:   target,
		Target:   ref.ID,
		Message: fmt.Sprintf("records[%d]: reference %q matches %d nodes; using %s",
			i, ref.ID, len(candidates), target),
	})
	return target, true
}

func (b *builder) unresolved(i int, rec dump.RawRecord, ref dump.Reference, what string) {
	b.notify(Notice{
		Code:     NoticeUnresolvedReference,
		Record:   i,
		RecordID: rec.ID,
		Target:   ref.ID,
		Message:  fmt.Sprintf("records[%d]: unresolved reference to %s", i, what),
	})
}

func (b *builder) notify(n Notice) {
	b.notices = append(b.notices, n)
}
