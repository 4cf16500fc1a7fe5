// Package pkg provides the core libraries of untwist, which turns object
// dumps into graphs.
//
// # Overview
//
// A dump is a JSON envelope of records: heap allocations and the references
// between them, or directory objects (users, groups, OUs, policies) and
// their relations. untwist decodes the dump, builds a graph from it, checks
// the graph, and hands a renderable view to a viewer.
//
// # Architecture
//
// The data flow through untwist:
//
//	JSON dump
//	     ↓
//	[dump] (decode the envelope, keep unknown fields)
//	     ↓
//	[build] (classify records, resolve references, collect notices)
//	     ↓
//	[validate] (structural findings and connectivity stats)
//	     ↓
//	[project] (renderable nodes and edges)
//	     ↓
//	SVG / DOT / JSON, the HTTP viewer, the terminal inspector
//
// [pipeline] runs these stages for the CLI and the HTTP server, with caching
// and a single-flight [pipeline.Loader] in front.
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	out := pipeline.NewLoader(runner).Load(ctx, raw, pipeline.Options{})
//	if !out.OK() {
//	    return out.Err()
//	}
//	for _, n := range out.Graph.Nodes {
//	    fmt.Println(n.ID, n.StyleKind)
//	}
//
// # Main Packages
//
// ## Core
//
// [dump] - Envelope and record types and the strict decoder.
//
// [kind] - Record kinds, their style classes and typed payloads.
//
// [graph] - The insertion-ordered node/edge graph and id helpers.
//
// [build] - Graph construction with parallel classification.
//
// [validate] - Fatal and warning findings plus gonum connectivity stats.
//
// [project] - The renderer-facing view with attribute filtering.
//
// ## Rendering
//
// [render/nodelink] - DOT generation and SVG layout via Graphviz.
//
// [io] - JSON import and export of renderable graphs.
//
// ## Infrastructure
//
// [pipeline] - Decode → build → validate → project orchestration.
//
// [cache] - Result and artifact caches: null, file, LRU memory and Redis.
//
// [storage] - Snapshot archives in memory, on disk or in MongoDB.
//
// [config] - Layered configuration (defaults, TOML file, environment, flags).
//
// [server] - The HTTP backend of the viewer.
//
// [watch] - Debounced reloads of a dump file.
//
// [observability] - Pipeline, cache and HTTP hooks; [observability/prom]
// exports them as Prometheus metrics.
//
// [errors] - Coded errors shared by every surface.
//
// # Testing
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/build/...     # Specific package
//	go test -run Example ./...  # Examples only
//
// [dump]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/dump
// [kind]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/kind
// [graph]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/graph
// [build]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/build
// [validate]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/validate
// [project]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/project
// [render/nodelink]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/render/nodelink
// [io]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/io
// [pipeline]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/pipeline
// [pipeline.Loader]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/pipeline#Loader
// [cache]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/cache
// [storage]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/storage
// [config]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/config
// [server]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/server
// [watch]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/watch
// [observability]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/observability
// [observability/prom]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/observability/prom
// [errors]: https://pkg.go.dev/github.com/volvulus/untwist/pkg/errors
package pkg
