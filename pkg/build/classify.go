package build

import (
	"context"
	"maps"

	"golang.org/x/sync/errgroup"

	"github.com/volvulus/untwist/pkg/dump"
	"github.com/volvulus/untwist/pkg/graph"
	"github.com/volvulus/untwist/pkg/kind"
)

// labelKeys are the attributes tried, in order, for a node's display label.
var labelKeys = []string{"label", "displayName", "name", "sAMAccountName", "cn"}

// classified is the per-record output of the classification phase.
type classified struct {
	node graph.Node
	ok   bool // false when the record has no id
}

func classify(rec dump.RawRecord) classified {
	if rec.ID == "" {
		return classified{}
	}
	k := kind.Classify(rec.Kind)
	return classified{
		ok: true,
		node: graph.Node{
			ID:         graph.NodeID(kind.Tag(k, rec.Kind), rec.ID),
			SourceID:   rec.ID,
			Kind:       k,
			RawKind:    rec.Kind,
			Label:      label(rec),
			Payload:    kind.PayloadFor(k, rec.Kind, rec.Attributes),
			Attributes: maps.Clone(rec.Attributes),
			Record:     rec.Index,
		},
	}
}

func label(rec dump.RawRecord) string {
	for _, key := range labelKeys {
		if s, ok := rec.Attributes[key].(string); ok && s != "" {
			return s
		}
	}
	return rec.ID
}

// classifyAll classifies every record. With at least threshold records the
// work is split into contiguous chunks across workers.
func classifyAll(ctx context.Context, records []dump.RawRecord, workers, threshold int) ([]classified, bool, error) {
	out := make([]classified, len(records))
	if workers <= 1 || len(records) < threshold {
		for i, rec := range records {
			out[i] = classify(rec)
		}
		return out, false, nil
	}

	chunk := (len(records) + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(records); start += chunk {
		end := min(start+chunk, len(records))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if (i-start)%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				out[i] = classify(records[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, true, err
	}
	return out, true, nil
}
