package validate

import (
	"fmt"

	"github.com/volvulus/untwist/pkg/errors"
	"github.com/volvulus/untwist/pkg/graph"
)

// Severity of a finding.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityWarning Severity = "warning"
)

// Code identifies a check.
type Code string

// Finding codes.
const (
	CodeDuplicateNode   Code = "DUPLICATE_NODE"
	CodeDuplicateEdgeID Code = "DUPLICATE_EDGE_ID"
	CodeDanglingEdge    Code = "DANGLING_EDGE"
	CodeIsolatedNode    Code = "ISOLATED_NODE"
	CodeSelfLoop        Code = "SELF_LOOP"
)

// Finding is one problem found by the validator.
type Finding struct {
	Severity Severity
	Code     Code
	NodeID   string
	EdgeID   string
	Message  string
}

// Fatal reports whether the finding halts the pipeline.
func (f Finding) Fatal() bool { return f.Severity == SeverityFatal }

// String implements fmt.Stringer.
func (f Finding) String() string {
	return fmt.Sprintf("%s %s: %s", f.Severity, f.Code, f.Message)
}

// Report is the outcome of validating one graph.
type Report struct {
	Findings []Finding
	Stats    Stats
}

// HasFatal reports whether any finding is fatal.
func (r *Report) HasFatal() bool {
	for _, f := range r.Findings {
		if f.Fatal() {
			return true
		}
	}
	return false
}

// Fatals returns the fatal findings in report order.
func (r *Report) Fatals() []Finding { return r.filter(SeverityFatal) }

// Warnings returns the warnings in report order.
func (r *Report) Warnings() []Finding { return r.filter(SeverityWarning) }

func (r *Report) filter(s Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// Err returns a VALIDATION_FATAL error describing the first fatal finding,
// or nil when there is none.
func (r *Report) Err() error {
	fatals := r.Fatals()
	if len(fatals) == 0 {
		return nil
	}
	first := fatals[0]
	msg := first.Message
	if len(fatals) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(fatals)-1)
	}
	return errors.New(errors.ErrCodeValidationFatal, "%s: %s", first.Code, msg)
}

// Graph validates g. Findings are ordered by check, then by the graph's
// insertion order.
func Graph(g *graph.Graph) *Report {
	r := &Report{}
	r.checkNodes(g)
	r.checkEdges(g)
	r.checkIsolated(g)
	r.Stats = connectivity(g)
	return r
}

func (r *Report) add(f Finding) { r.Findings = append(r.Findings, f) }

func (r *Report) checkNodes(g *graph.Graph) {
	seen := make(map[string]bool, g.NodeCount())
	for i := range g.NodeCount() {
		n := g.NodeAt(i)
		if seen[n.ID] {
			r.add(Finding{
				Severity: SeverityFatal,
				Code:     CodeDuplicateNode,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("node %s appears more than once", n.ID),
			})
		}
		seen[n.ID] = true
	}
}

func (r *Report) checkEdges(g *graph.Graph) {
	seen := make(map[string]bool, g.EdgeCount())
	for i := range g.EdgeCount() {
		e := g.EdgeAt(i)
		if seen[e.ID] {
			r.add(Finding{
				Severity: SeverityFatal,
				Code:     CodeDuplicateEdgeID,
				EdgeID:   e.ID,
				Message:  fmt.Sprintf("edge %s appears more than once", e.ID),
			})
		}
		seen[e.ID] = true

		ends := []string{e.Source}
		if !e.IsSelfLoop() {
			ends = append(ends, e.Target)
		}
		for _, end := range ends {
			if !g.HasNode(end) {
				r.add(Finding{
					Severity: SeverityFatal,
					Code:     CodeDanglingEdge,
					NodeID:   end,
					EdgeID:   e.ID,
					Message:  fmt.Sprintf("edge %s references unknown node %s", e.ID, end),
				})
			}
		}

		if e.IsSelfLoop() {
			r.add(Finding{
				Severity: SeverityWarning,
				Code:     CodeSelfLoop,
				NodeID:   e.Source,
				EdgeID:   e.ID,
				Message:  fmt.Sprintf("node %s relates to itself", e.Source),
			})
		}
	}
}

func (r *Report) checkIsolated(g *graph.Graph) {
	incident := make(map[string]bool, g.NodeCount())
	for i := range g.EdgeCount() {
		e := g.EdgeAt(i)
		incident[e.Source] = true
		incident[e.Target] = true
	}
	reported := make(map[string]bool)
	for i := range g.NodeCount() {
		n := g.NodeAt(i)
		if incident[n.ID] || reported[n.ID] {
			continue
		}
		reported[n.ID] = true
		r.add(Finding{
			Severity: SeverityWarning,
			Code:     CodeIsolatedNode,
			NodeID:   n.ID,
			Message:  fmt.Sprintf("node %s has no relations", n.ID),
		})
	}
}
