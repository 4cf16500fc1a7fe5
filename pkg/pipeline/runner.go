package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/volvulus/untwist/pkg/build"
	"github.com/volvulus/untwist/pkg/cache"
	"github.com/volvulus/untwist/pkg/dump"
	"github.com/volvulus/untwist/pkg/errors"
	"github.com/volvulus/untwist/pkg/observability"
	"github.com/volvulus/untwist/pkg/project"
	"github.com/volvulus/untwist/pkg/validate"
)

// Cache key types reported to observability hooks.
const (
	keyTypeResult   = "result"
	keyTypeArtifact = "artifact"
)

// validateGraph is replaced in tests to inject fatal findings.
var validateGraph = validate.Graph

// Runner runs the pipeline with result caching.
//
// A Runner holds no per-run state; goroutines may share one. It does not
// limit concurrency itself: wrap it in a Loader for that.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer is
// a DefaultKeyer and a nil logger is log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Run loads raw. On failure the error carries one of the codes
// DECODE_ERROR, VALIDATION_FATAL or CANCELED (INVALID_CONFIG for bad
// options).
func (r *Runner) Run(ctx context.Context, raw []byte, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	if int64(len(raw)) > opts.MaxBytes {
		return nil, errors.Wrap(errors.ErrCodeDecode, dump.ErrTooLarge, "dump is larger than %d bytes", opts.MaxBytes)
	}

	hash := cache.Hash(raw)
	key := r.Keyer.ResultKey(hash, opts.ResultKeyOpts())

	if !opts.Refresh {
		if res, ok := r.lookup(ctx, key); ok {
			opts.Logger.Debug("result cache hit", "hash", hash[:12])
			return res, nil
		}
	}

	res, err := r.execute(ctx, raw, opts)
	if err != nil {
		return nil, err
	}
	res.DumpHash = hash
	r.store(ctx, key, res)
	return res, nil
}

// RunReader reads at most opts.MaxBytes from rd and runs the pipeline.
func (r *Runner) RunReader(ctx context.Context, rd io.Reader, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(io.LimitReader(rd, opts.MaxBytes+1))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "read dump")
	}
	return r.Run(ctx, raw, opts)
}

func (r *Runner) execute(ctx context.Context, raw []byte, opts Options) (*Result, error) {
	hooks := observability.Pipeline()
	res := &Result{Warnings: []Warning{}}
	res.Stats.Bytes = len(raw)

	// Decode
	start := time.Now()
	env, err := dump.Decode(raw)
	res.Stats.DecodeTime = time.Since(start)
	hooks.OnDecodeComplete(ctx, len(raw), env.Len(), res.Stats.DecodeTime, err)
	if err != nil {
		return nil, err
	}
	res.Version = env.Version
	res.GeneratedAt = env.GeneratedAt
	res.Stats.Records = env.Len()
	opts.Logger.Debug("decoded dump", "version", env.Version, "records", env.Len(), "duration", res.Stats.DecodeTime)
	if err := canceled(ctx); err != nil {
		return nil, err
	}

	// Build
	start = time.Now()
	built, err := build.Build(ctx, env, build.Options{
		Parallelism:       opts.Parallelism,
		ParallelThreshold: opts.ParallelThreshold,
	})
	res.Stats.BuildTime = time.Since(start)
	if err != nil {
		hooks.OnBuildComplete(ctx, 0, 0, 0, res.Stats.BuildTime, err)
		return nil, wrapContext(err)
	}
	hooks.OnBuildComplete(ctx, built.Stats.Nodes, built.Stats.Edges, len(built.Notices), res.Stats.BuildTime, nil)
	res.Stats.Skipped = built.Stats.Skipped
	res.Stats.Deferred = built.Stats.Deferred
	res.Stats.Parallel = built.Stats.Parallel
	res.Stats.Notices = len(built.Notices)
	for _, n := range built.Notices {
		opts.Logger.Debug("builder notice", "code", n.Code, "record", n.Record, "message", n.Message)
		res.Warnings = append(res.Warnings, noticeWarning(n))
	}
	opts.Logger.Debug("built graph",
		"nodes", built.Stats.Nodes,
		"edges", built.Stats.Edges,
		"deferred", built.Stats.Deferred,
		"duration", res.Stats.BuildTime)
	if err := canceled(ctx); err != nil {
		return nil, err
	}

	// Validate
	start = time.Now()
	report := validateGraph(built.Graph)
	res.Stats.ValidateTime = time.Since(start)
	res.Stats.Connectivity = report.Stats
	fatals, warnings := report.Fatals(), report.Warnings()
	hooks.OnValidateComplete(ctx, len(fatals), len(warnings), res.Stats.ValidateTime)
	if err := report.Err(); err != nil {
		for _, f := range fatals {
			opts.Logger.Error("validation failed", "code", f.Code, "node", f.NodeID, "edge", f.EdgeID)
		}
		return nil, err
	}
	for _, f := range warnings {
		res.Warnings = append(res.Warnings, findingWarning(f))
	}
	if err := canceled(ctx); err != nil {
		return nil, err
	}

	// Project
	start = time.Now()
	res.Graph = project.Project(built.Graph, opts.ProjectOptions())
	res.Stats.ProjectTime = time.Since(start)
	res.Stats.Nodes = len(res.Graph.Nodes)
	res.Stats.Edges = len(res.Graph.Edges)
	hooks.OnProjectComplete(ctx, res.Stats.Nodes, res.Stats.Edges, res.Stats.ProjectTime)

	opts.Logger.Info("loaded dump",
		"nodes", res.Stats.Nodes,
		"edges", res.Stats.Edges,
		"warnings", len(res.Warnings),
		"duration", res.Stats.Total())
	return res, nil
}

func (r *Runner) lookup(ctx context.Context, key string) (*Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("result cache read failed", "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyTypeResult)
		return nil, false
	}
	// Attribute numbers must come back as json.Number, as Decode produced them.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var res Result
	if err := dec.Decode(&res); err != nil || res.Graph == nil {
		observability.Cache().OnCacheMiss(ctx, keyTypeResult)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyTypeResult)
	if res.Warnings == nil {
		res.Warnings = []Warning{}
	}
	res.CacheHit = true
	return &res, true
}

func (r *Runner) store(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLResult); err != nil {
		r.Logger.Warn("result cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeResult, len(data))
}

// Close releases the runner's cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// canceled returns a CANCELED error once ctx is done.
func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCanceled, err, "load canceled")
	}
	return nil
}

func wrapContext(err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeCanceled, err, "load canceled")
	}
	return errors.Wrap(errors.ErrCodeInternal, err, "build")
}
