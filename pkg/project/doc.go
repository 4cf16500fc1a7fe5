// Package project maps a validated graph to the shape the graph canvas
// consumes.
//
// A [RenderableGraph] holds nodes as {id, label, styleKind, attributes} and
// edges as {id, source, target, styleKind}, in the order the builder
// produced them. Nothing is re-sorted, so repeated renders of the same dump
// are stable. No positions are computed; layout belongs to the renderer.
//
// Projection is total. It keeps scalar attributes only, drops keys the
// renderer has no use for, and truncates long strings:
//
//	rg := project.Project(g, project.Options{})
//	json.NewEncoder(w).Encode(rg)
package project
