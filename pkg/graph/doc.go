// Package graph defines the node/edge model derived from a dump.
//
// # Overview
//
// A [Graph] is an ordered set of [Node] values and an ordered sequence of
// [Edge] values. It is assembled once by the builder and never mutated:
// a new dump produces a new Graph. Order is the builder's insertion order
// and is part of the contract, since the projector and every renderer
// downstream rely on it for visual stability.
//
// # Identifiers
//
// Node ids are derived from a record's kind tag and source id, and edge ids
// from their endpoints and relation:
//
//	graph.NodeID("alloc", "a")                        // "alloc:a"
//	graph.EdgeID("alloc:b", "alloc:a", graph.Relates) // "alloc:b->alloc:a#relates"
//
// Both functions are pure and injective: the characters used as separators
// are percent-escaped inside the components, so distinct inputs never
// produce the same id.
//
// # Invariants
//
// [Assemble] does not enforce uniqueness of ids or that edge endpoints
// resolve. Those are checked by pkg/validate, which treats a violation as a
// builder defect.
//
// # Concurrency
//
// A Graph is safe for concurrent reads.
package graph
