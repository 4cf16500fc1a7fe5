// Package nodelink renders projected graphs as node-link diagrams.
//
// Convert a graph to DOT, then render it to SVG:
//
//	dot := nodelink.ToDOT(rg, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Each style category gets its own shape and fill colour so that memory
// records, principals and containers are told apart at a glance. With
// Options.Detailed the label lists the node's attributes.
//
// This package uses [github.com/goccy/go-graphviz] for in-process layout
// and rendering; no Graphviz installation is needed.
package nodelink
