package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/volvulus/untwist/pkg/project"
)

// WriteJSON encodes v as indented JSON to w.
func WriteJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteGraph encodes rg as JSON to w. A nil graph is written as an empty one.
func WriteGraph(rg *project.RenderableGraph, w io.Writer) error {
	if rg == nil {
		rg = &project.RenderableGraph{}
	}
	out := *rg
	if out.Nodes == nil {
		out.Nodes = []project.RenderNode{}
	}
	if out.Edges == nil {
		out.Edges = []project.RenderEdge{}
	}
	return WriteJSON(out, w)
}

// ExportGraph writes rg to a JSON file at path.
func ExportGraph(rg *project.RenderableGraph, path string) error {
	return exportFile(path, func(w io.Writer) error { return WriteGraph(rg, w) })
}

// ExportJSON writes v to a JSON file at path.
func ExportJSON(v any, path string) error {
	return exportFile(path, func(w io.Writer) error { return WriteJSON(v, w) })
}

func exportFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
