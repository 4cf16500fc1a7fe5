package io

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/volvulus/untwist/pkg/project"
)

// Sentinel errors returned by ReadGraph.
var (
	ErrDuplicateNode = errors.New("duplicate node id")
	ErrUnknownNode   = errors.New("unknown node")
)

// ReadGraph decodes a projected graph from r.
//
// ReadGraph fails when the JSON is malformed, when two nodes share an id,
// or when an edge endpoint names no node. Missing arrays and attribute maps
// are returned empty, never nil. ReadGraph does not close r.
func ReadGraph(r io.Reader) (*project.RenderableGraph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rg project.RenderableGraph
	if err := dec.Decode(&rg); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if rg.Nodes == nil {
		rg.Nodes = []project.RenderNode{}
	}
	if rg.Edges == nil {
		rg.Edges = []project.RenderEdge{}
	}

	ids := make(map[string]bool, len(rg.Nodes))
	for i := range rg.Nodes {
		n := &rg.Nodes[i]
		if ids[n.ID] {
			return nil, fmt.Errorf("node %s: %w", n.ID, ErrDuplicateNode)
		}
		ids[n.ID] = true
		if n.Attributes == nil {
			n.Attributes = map[string]any{}
		}
	}
	for _, e := range rg.Edges {
		for _, end := range []string{e.Source, e.Target} {
			if !ids[end] {
				return nil, fmt.Errorf("edge %s: %w %q", e.ID, ErrUnknownNode, end)
			}
		}
	}
	return &rg, nil
}

// ImportGraph reads a projected graph from the JSON file at path.
func ImportGraph(path string) (*project.RenderableGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}
