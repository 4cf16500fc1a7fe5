// Package pipeline runs the load pipeline: decode, build, validate, project.
//
// Every entry point (CLI, HTTP backend, file watcher) goes through this
// package so that a dump produces the same graph wherever it is loaded.
//
// # Stages
//
//  1. Decode: check the envelope and type the records ([dump.Decode])
//  2. Build: derive nodes and edges, two-phase ([build.Build])
//  3. Validate: check structural invariants ([validate.Graph])
//  4. Project: map to the renderer's shape ([project.Project])
//
// Stages run one after another on the caller's goroutine. A fatal failure
// halts the run with a single coded error; nothing is projected after a
// fatal validation finding. Non-fatal builder notices and validation
// warnings travel with the result as [Warning]s.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Run(ctx, raw, pipeline.Options{})
//	if err != nil {
//	    // errors.GetCode(err) is DECODE_ERROR, VALIDATION_FATAL or CANCELED
//	}
//	json.NewEncoder(w).Encode(res.Graph)
//
// A [Loader] adds the single in-flight gate the viewer needs: a load
// issued while another is running is rejected with LOAD_IN_PROGRESS, never
// queued.
//
// [dump.Decode]: github.com/volvulus/untwist/pkg/dump
// [build.Build]: github.com/volvulus/untwist/pkg/build
// [validate.Graph]: github.com/volvulus/untwist/pkg/validate
// [project.Project]: github.com/volvulus/untwist/pkg/project
package pipeline

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/volvulus/untwist/pkg/cache"
	"github.com/volvulus/untwist/pkg/dump"
	"github.com/volvulus/untwist/pkg/errors"
	"github.com/volvulus/untwist/pkg/project"
)

// Output formats understood by Render.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, dot, svg)", format)
	}
	return nil
}

// Options configures one pipeline run. The zero value is ready to use.
type Options struct {
	// Projection options. A nil DropAttributes means
	// project.DefaultDropAttributes; zero MaxAttributeLength means
	// project.DefaultMaxAttributeLength and a negative one disables
	// truncation.
	DropAttributes     []string `json:"dropAttributes,omitempty"`
	MaxAttributeLength int      `json:"maxAttributeLength,omitempty"`

	// Builder options, see build.Options.
	Parallelism       int `json:"parallelism,omitempty"`
	ParallelThreshold int `json:"parallelThreshold,omitempty"`

	// MaxBytes is the largest dump accepted. Zero means dump.DefaultMaxBytes.
	MaxBytes int64 `json:"maxBytes,omitempty"`

	// Refresh skips the cache lookup. The fresh result is still stored.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the options and fills in defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Parallelism < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "parallelism must not be negative")
	}
	if o.ParallelThreshold < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "parallel threshold must not be negative")
	}
	if o.MaxBytes < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max bytes must not be negative")
	}

	if o.DropAttributes == nil {
		o.DropAttributes = slices.Clone(project.DefaultDropAttributes)
	}
	if o.MaxAttributeLength == 0 {
		o.MaxAttributeLength = project.DefaultMaxAttributeLength
	}
	if o.MaxBytes == 0 {
		o.MaxBytes = dump.DefaultMaxBytes
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ProjectOptions returns the projection options.
func (o *Options) ProjectOptions() project.Options {
	return project.Options{
		DropAttributes:     o.DropAttributes,
		MaxAttributeLength: o.MaxAttributeLength,
	}
}

// ResultKeyOpts returns the options that are part of the result cache key.
// Builder parallelism is not: it never changes the result.
func (o *Options) ResultKeyOpts() cache.ResultKeyOpts {
	return cache.ResultKeyOpts{
		DropAttributes:     o.DropAttributes,
		MaxAttributeLength: o.MaxAttributeLength,
	}
}
