package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/volvulus/untwist/pkg/cache"
	"github.com/volvulus/untwist/pkg/io"
	"github.com/volvulus/untwist/pkg/observability"
	"github.com/volvulus/untwist/pkg/project"
	"github.com/volvulus/untwist/pkg/render/nodelink"
)

// RenderOptions configures Render.
type RenderOptions struct {
	Detailed bool
	RankDir  string
}

// Render converts rg to format: json, dot or svg.
func Render(ctx context.Context, rg *project.RenderableGraph, format string, opts RenderOptions) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := io.WriteGraph(rg, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatDOT:
		return []byte(nodelink.ToDOT(rg, nodelink.Options{Detailed: opts.Detailed, RankDir: opts.RankDir})), nil
	}

	dot := nodelink.ToDOT(rg, nodelink.Options{Detailed: opts.Detailed, RankDir: opts.RankDir})
	svg, err := nodelink.RenderSVG(ctx, dot)
	if err != nil {
		return nil, fmt.Errorf("render svg: %w", err)
	}
	return svg, nil
}

// Render renders rg like the package-level Render, caching dot and svg
// output under the hash of the graph's JSON form.
func (r *Runner) Render(ctx context.Context, rg *project.RenderableGraph, format string, opts RenderOptions) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	graphJSON, err := Render(ctx, rg, FormatJSON, opts)
	if err != nil {
		return nil, err
	}
	if format == FormatJSON {
		return graphJSON, nil
	}

	variant := format
	if opts.Detailed {
		variant += "+detailed"
	}
	if opts.RankDir != "" {
		variant += "+" + opts.RankDir
	}
	key := r.Keyer.ArtifactKey(cache.Hash(graphJSON), variant)

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)

	data, err := Render(ctx, rg, format, opts)
	if err != nil {
		return nil, err
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
		r.Logger.Warn("artifact cache write failed", "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
	}
	return data, nil
}
