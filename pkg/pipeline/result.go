package pipeline

import (
	"time"

	"github.com/volvulus/untwist/pkg/build"
	"github.com/volvulus/untwist/pkg/project"
	"github.com/volvulus/untwist/pkg/validate"
)

// Warning sources.
const (
	SourceBuilder   = "builder"
	SourceValidator = "validator"
)

// Warning is a non-fatal note attached to a successful load: a builder
// skip or a validation warning.
type Warning struct {
	Source   string `json:"source"`
	Code     string `json:"code"`
	NodeID   string `json:"nodeId,omitempty"`
	EdgeID   string `json:"edgeId,omitempty"`
	RecordID string `json:"recordId,omitempty"`
	Message  string `json:"message"`
}

// Result is the output of a successful run.
type Result struct {
	// Graph is the projected graph.
	Graph *project.RenderableGraph `json:"graph"`

	// Warnings holds builder notices then validation warnings. Never nil.
	Warnings []Warning `json:"warnings"`

	// DumpHash is the SHA-256 of the raw dump.
	DumpHash string `json:"dumpHash"`

	// Version and GeneratedAt are copied from the envelope.
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generatedAt,omitzero"`

	Stats Stats `json:"stats"`

	// CacheHit reports whether the result came from the cache.
	CacheHit bool `json:"-"`
}

// Stats contains sizes and timings of a run.
type Stats struct {
	Bytes    int  `json:"bytes"`
	Records  int  `json:"records"`
	Nodes    int  `json:"nodes"`
	Edges    int  `json:"edges"`
	Skipped  int  `json:"skipped"`
	Deferred int  `json:"deferred"`
	Notices  int  `json:"notices"`
	Parallel bool `json:"parallel"`

	Connectivity validate.Stats `json:"connectivity"`

	DecodeTime   time.Duration `json:"decodeTime"`
	BuildTime    time.Duration `json:"buildTime"`
	ValidateTime time.Duration `json:"validateTime"`
	ProjectTime  time.Duration `json:"projectTime"`
}

// Total returns the summed stage time.
func (s Stats) Total() time.Duration {
	return s.DecodeTime + s.BuildTime + s.ValidateTime + s.ProjectTime
}

func noticeWarning(n build.Notice) Warning {
	return Warning{
		Source:   SourceBuilder,
		Code:     string(n.Code),
		NodeID:   n.NodeID,
		EdgeID:   n.EdgeID,
		RecordID: n.RecordID,
		Message:  n.Message,
	}
}

func findingWarning(f validate.Finding) Warning {
	return Warning{
		Source:  SourceValidator,
		Code:    string(f.Code),
		NodeID:  f.NodeID,
		EdgeID:  f.EdgeID,
		Message: f.Message,
	}
}
