// Package build derives a [graph.Graph] from a decoded dump.
//
// # Algorithm
//
// Build runs in three phases:
//
//  1. Classification. Each record's kind, canonical id, label and payload
//     are derived independently of every other record. Large dumps are
//     split across worker goroutines; results are written by record index,
//     so the outcome does not depend on scheduling.
//  2. Node collection, in input order. The first record for a canonical id
//     wins. Later records with the same id, and records without an id, are
//     skipped with a [Notice].
//  3. Edge resolution. This phase starts only once every node is final, so
//     a reference resolves no matter where its target appears in the dump.
//     References that still do not resolve are reported, never dropped
//     silently.
//
// Skips are collected as notices and never returned as errors. The only
// error Build returns is the context's, checked between phases.
//
// # Reference resolution
//
// A reference that names its target kind resolves to exactly that node.
// A bare reference resolves by source id; when several kinds share the id,
// the lexicographically smallest canonical id wins and an
// AMBIGUOUS_REFERENCE notice is emitted. This rule depends only on the node
// set, not on record order.
package build
