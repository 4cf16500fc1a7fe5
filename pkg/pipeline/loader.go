package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/volvulus/untwist/pkg/errors"
	"github.com/volvulus/untwist/pkg/observability"
	"github.com/volvulus/untwist/pkg/project"
)

// Outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Outcome is the discriminated result handed to the UI shell: either a
// graph with its warnings, or a single classified failure.
type Outcome struct {
	Status string
	RunID  string

	// Set on success.
	Graph    *project.RenderableGraph
	Warnings []Warning
	Stats    *Stats

	// Set on failure.
	Failure *Failure

	// Result is the full run result on success. It is not serialised.
	Result *Result
}

// Failure describes why a load failed.
type Failure struct {
	Kind     errors.Code `json:"kind"`
	Message  string      `json:"message"`
	RecordID string      `json:"recordId,omitempty"`
}

// OK reports whether the load succeeded.
func (o *Outcome) OK() bool { return o.Status == StatusSuccess }

// Err returns the failure as a coded error, or nil on success.
func (o *Outcome) Err() error {
	if o.OK() || o.Failure == nil {
		return nil
	}
	return errors.New(o.Failure.Kind, "%s", o.Failure.Message).WithRecord(o.Failure.RecordID)
}

type outcomeJSON struct {
	Status   string                   `json:"status"`
	RunID    string                   `json:"runId"`
	Graph    *project.RenderableGraph `json:"graph,omitempty"`
	Warnings *[]Warning               `json:"warnings,omitempty"`
	Stats    *Stats                   `json:"stats,omitempty"`
	Failure  *Failure                 `json:"error,omitempty"`
}

// MarshalJSON writes {status, runId, graph, warnings, stats} on success
// and {status, runId, error} on failure.
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{Status: o.Status, RunID: o.RunID}
	if o.OK() {
		warnings := o.Warnings
		if warnings == nil {
			warnings = []Warning{}
		}
		out.Graph, out.Warnings, out.Stats = o.Graph, &warnings, o.Stats
	} else {
		out.Failure = o.Failure
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var in outcomeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*o = Outcome{Status: in.Status, RunID: in.RunID, Graph: in.Graph, Stats: in.Stats, Failure: in.Failure}
	if in.Warnings != nil {
		o.Warnings = *in.Warnings
	}
	return nil
}

// Succeeded wraps a result in a success outcome.
func Succeeded(runID string, res *Result) *Outcome {
	return &Outcome{
		Status:   StatusSuccess,
		RunID:    runID,
		Graph:    res.Graph,
		Warnings: res.Warnings,
		Stats:    &res.Stats,
		Result:   res,
	}
}

// Failed wraps err in a failure outcome. Errors without a code are
// reported as INTERNAL_ERROR; context errors as CANCELED.
func Failed(runID string, err error) *Outcome {
	code := errors.GetCode(err)
	switch {
	case code != "":
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		code = errors.ErrCodeCanceled
	default:
		code = errors.ErrCodeInternal
	}
	return &Outcome{
		Status: StatusFailure,
		RunID:  runID,
		Failure: &Failure{
			Kind:     code,
			Message:  errors.UserMessage(err),
			RecordID: errors.GetRecordID(err),
		},
	}
}

// Loader runs at most one load at a time.
type Loader struct {
	runner *Runner
	busy   atomic.Bool
	newID  func() string
}

// NewLoader wraps runner. A nil runner is NewRunner(nil, nil, nil).
func NewLoader(runner *Runner) *Loader {
	if runner == nil {
		runner = NewRunner(nil, nil, nil)
	}
	return &Loader{runner: runner, newID: uuid.NewString}
}

// Runner returns the wrapped runner.
func (l *Loader) Runner() *Runner { return l.runner }

// Busy reports whether a load is in flight.
func (l *Loader) Busy() bool { return l.busy.Load() }

// Load runs the pipeline over raw unless another load is in flight, in
// which case it returns at once with a LOAD_IN_PROGRESS failure. The
// outcome is never nil.
func (l *Loader) Load(ctx context.Context, raw []byte, opts Options) *Outcome {
	runID := l.newID()
	if !l.busy.CompareAndSwap(false, true) {
		observability.Pipeline().OnLoadRejected(ctx)
		l.runner.Logger.Warn("load rejected", "run", runID, "reason", "another load is in progress")
		return Failed(runID, errors.New(errors.ErrCodeBusy, "another load is in progress"))
	}
	defer l.busy.Store(false)

	start := time.Now()
	res, err := l.runner.Run(ctx, raw, opts)
	elapsed := time.Since(start)
	if err != nil {
		out := Failed(runID, err)
		status := observability.StatusFailure
		if out.Failure.Kind == errors.ErrCodeCanceled {
			status = observability.StatusCanceled
		}
		observability.Pipeline().OnLoadComplete(ctx, status, elapsed)
		l.runner.Logger.Warn("load failed", "run", runID, "kind", out.Failure.Kind, "error", out.Failure.Message)
		return out
	}
	observability.Pipeline().OnLoadComplete(ctx, observability.StatusSuccess, elapsed)
	return Succeeded(runID, res)
}
