// Package storage archives successful loads as snapshots.
//
// A snapshot is the projected graph of one load together with its warnings
// and statistics. The HTTP backend keeps every successful load so that a
// viewer can go back to an earlier dump by id. Three backends implement
// [Store]:
//
//   - [MemoryStore] keeps the most recent snapshots in process
//   - [FileStore] writes one JSON file per snapshot, for the CLI
//   - [MongoStore] shares snapshots between server replicas
//
// Snapshots are immutable once stored.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/volvulus/untwist/pkg/pipeline"
	"github.com/volvulus/untwist/pkg/project"
)

// Sentinel errors for snapshot operations.
var (
	// ErrNotFound is returned when a snapshot does not exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrNotSuccess is returned when archiving a failed outcome.
	ErrNotSuccess = errors.New("only successful loads can be archived")
)

// Snapshot is one archived load.
type Snapshot struct {
	ID          string    `json:"id"`
	RunID       string    `json:"runId"`
	Source      string    `json:"source"`
	DumpHash    string    `json:"dumpHash"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generatedAt,omitzero"`
	CreatedAt   time.Time `json:"createdAt"`

	Graph    *project.RenderableGraph `json:"graph"`
	Warnings []pipeline.Warning       `json:"warnings"`
	Stats    pipeline.Stats           `json:"stats"`
}

// Summary is the listing form of a snapshot.
type Summary struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	DumpHash  string    `json:"dumpHash"`
	CreatedAt time.Time `json:"createdAt"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	Warnings  int       `json:"warnings"`
}

// Store is the interface for snapshot backends.
type Store interface {
	// Put stores s. Storing an id twice replaces the first snapshot.
	Put(ctx context.Context, s *Snapshot) error

	// Get returns the snapshot with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// Latest returns the most recently created snapshot or ErrNotFound.
	Latest(ctx context.Context) (*Snapshot, error)

	// List returns up to limit summaries, newest first. A limit of zero or
	// less lists everything.
	List(ctx context.Context, limit int) ([]Summary, error)

	Close(ctx context.Context) error
}

// New builds a snapshot from a successful outcome. source names where the
// dump came from (a path, or "upload").
func New(source string, out *pipeline.Outcome) (*Snapshot, error) {
	if out == nil || !out.OK() || out.Result == nil {
		return nil, ErrNotSuccess
	}
	res := out.Result
	warnings := res.Warnings
	if warnings == nil {
		warnings = []pipeline.Warning{}
	}
	return &Snapshot{
		ID:          uuid.NewString(),
		RunID:       out.RunID,
		Source:      source,
		DumpHash:    res.DumpHash,
		Version:     res.Version,
		GeneratedAt: res.GeneratedAt,
		CreatedAt:   time.Now().UTC(),
		Graph:       res.Graph,
		Warnings:    warnings,
		Stats:       res.Stats,
	}, nil
}

// Summary returns the listing form of s.
func (s *Snapshot) Summary() Summary {
	sum := Summary{
		ID:        s.ID,
		Source:    s.Source,
		DumpHash:  s.DumpHash,
		CreatedAt: s.CreatedAt,
		Warnings:  len(s.Warnings),
	}
	if s.Graph != nil {
		sum.Nodes, sum.Edges = len(s.Graph.Nodes), len(s.Graph.Edges)
	}
	return sum
}

// Outcome returns s as a success outcome, as served to the viewer.
func (s *Snapshot) Outcome() *pipeline.Outcome {
	stats := s.Stats
	return &pipeline.Outcome{
		Status:   pipeline.StatusSuccess,
		RunID:    s.RunID,
		Graph:    s.Graph,
		Warnings: s.Warnings,
		Stats:    &stats,
	}
}

// decode parses a JSON snapshot. Attribute numbers stay json.Number so they
// re-encode exactly as stored.
func decode(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
