package io

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/volvulus/untwist/pkg/kind"
	"github.com/volvulus/untwist/pkg/project"
)

func TestGraphRoundTrip(t *testing.T) {
	src := `{
  "nodes": [
    {"id": "alloc:a", "label": "a", "styleKind": "memory", "attributes": {"size": 16, "ratio": 0.5},
     "details": [{"name": "size", "value": "16"}]},
    {"id": "alloc:b", "label": "b", "styleKind": "memory"}
  ],
  "edges": [
    {"id": "alloc:b->alloc:a#relates", "source": "alloc:b", "target": "alloc:a", "styleKind": "link"}
  ]
}`
	rg, err := ReadGraph(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadGraph: %v", err)
	}
	if rg.Nodes[1].Attributes == nil {
		t.Error("missing attributes should read as an empty map")
	}
	if d := rg.Nodes[0].Details; len(d) != 1 || d[0] != (kind.Field{Name: "size", Value: "16"}) {
		t.Errorf("details = %v", d)
	}
	if rg.Edges[0].StyleKind != kind.StyleLink {
		t.Errorf("edge style = %q", rg.Edges[0].StyleKind)
	}

	var first bytes.Buffer
	if err := WriteGraph(rg, &first); err != nil {
		t.Fatal(err)
	}
	again, err := ReadGraph(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	var second bytes.Buffer
	if err := WriteGraph(again, &second); err != nil {
		t.Fatal(err)
	}
	if first.String() != second.String() {
		t.Errorf("round trip changed output:\n%s\n%s", first.String(), second.String())
	}
	if !strings.Contains(first.String(), `"size": 16`) {
		t.Errorf("numbers should keep their literal form:\n%s", first.String())
	}
}

func TestReadGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"duplicate", `{"nodes":[{"id":"a"},{"id":"a"}]}`, ErrDuplicateNode},
		{"unknown source", `{"nodes":[{"id":"a"}],"edges":[{"id":"e","source":"x","target":"a"}]}`, ErrUnknownNode},
		{"unknown target", `{"nodes":[{"id":"a"}],"edges":[{"id":"e","source":"a","target":"x"}]}`, ErrUnknownNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGraph(strings.NewReader(tt.src))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := ReadGraph(strings.NewReader("{")); err == nil {
		t.Error("malformed JSON should fail")
	}
}

func TestWriteGraphEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGraph(nil, &buf); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(strings.Fields(buf.String()), "")
	if got != `{"nodes":[],"edges":[]}` {
		t.Errorf("WriteGraph(nil) = %s", got)
	}
}

func TestExportImportGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	rg := &project.RenderableGraph{
		Nodes: []project.RenderNode{{ID: "user:u", Label: "u", StyleKind: kind.StyleIdentity, Attributes: map[string]any{}}},
		Edges: []project.RenderEdge{},
	}
	if err := ExportGraph(rg, path); err != nil {
		t.Fatalf("ExportGraph: %v", err)
	}
	got, err := ImportGraph(path)
	if err != nil {
		t.Fatalf("ImportGraph: %v", err)
	}
	if len(got.Nodes) != 1 || got.Nodes[0].ID != "user:u" {
		t.Errorf("imported = %+v", got)
	}

	if _, err := ImportGraph(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ImportGraph of a missing file should fail")
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := ExportJSON(map[string]string{"status": "success"}, path); err != nil {
		t.Fatal(err)
	}
	if err := ExportJSON(map[string]string{}, filepath.Join(path, "nested")); err == nil {
		t.Error("ExportJSON into a file path should fail")
	}
}
