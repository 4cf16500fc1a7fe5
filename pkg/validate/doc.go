// Package validate checks a built graph against its structural invariants.
//
// [Graph] runs every check; none short-circuits. Findings are either
// fatal or warnings:
//
//	DUPLICATE_NODE     fatal    two nodes share a canonical id
//	DUPLICATE_EDGE_ID  fatal    two edges share a canonical id
//	DANGLING_EDGE      fatal    an edge endpoint is not a node
//	ISOLATED_NODE      warning  a node has no incident edge
//	SELF_LOOP          warning  an edge starts and ends at the same node
//
// Fatal findings indicate a builder defect rather than bad input: the
// builder never emits them for any dump. A report with a fatal finding
// must stop the pipeline before projection; [Report.Err] turns it into a
// VALIDATION_FATAL error.
//
// Connectivity figures (weakly connected components, cyclic groups) are
// reported in [Stats] for display. They are never findings.
package validate
