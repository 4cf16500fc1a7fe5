// Package render holds the renderers for projected graphs.
//
// The core hands out a [project.RenderableGraph] without positions; layout
// is the renderer's job. The [nodelink] subpackage lays it out with
// Graphviz and produces DOT or SVG for the CLI and the HTTP backend.
//
// [project.RenderableGraph]: github.com/volvulus/untwist/pkg/project
// [nodelink]: github.com/volvulus/untwist/pkg/render/nodelink
package render
