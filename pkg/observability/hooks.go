// Package observability provides hooks for metrics and logging.
//
// Libraries emit events through the registered hooks; main decides what
// backs them. The defaults are no-ops, so library code never needs a nil
// check and tests never see global side effects.
//
// Register hooks at startup:
//
//	collector := prom.New("untwist")
//	observability.SetPipelineHooks(collector)
//	observability.SetCacheHooks(collector)
//	observability.SetHTTPHooks(collector)
//
// Emit events from libraries:
//
//	start := time.Now()
//	env, err := dump.Decode(raw)
//	observability.Pipeline().OnDecodeComplete(ctx, len(raw), env.Len(), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Load statuses reported by OnLoadComplete.
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusCanceled = "canceled"
)

// PipelineHooks receives events from the load pipeline.
type PipelineHooks interface {
	OnDecodeComplete(ctx context.Context, size, records int, duration time.Duration, err error)
	OnBuildComplete(ctx context.Context, nodes, edges, notices int, duration time.Duration, err error)
	OnValidateComplete(ctx context.Context, fatals, warnings int, duration time.Duration)
	OnProjectComplete(ctx context.Context, nodes, edges int, duration time.Duration)

	// OnLoadRejected records a load refused because another was in flight.
	OnLoadRejected(ctx context.Context)

	// OnLoadComplete records the end of a load with one of the Status values.
	OnLoadComplete(ctx context.Context, status string, duration time.Duration)
}

// CacheHooks receives events from cache lookups. keyType is "result" or
// "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	// OnResponse records a served request. route is the matched pattern,
	// not the raw path.
	OnResponse(ctx context.Context, method, route string, status int, duration time.Duration)
}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnDecodeComplete(context.Context, int, int, time.Duration, error)     {}
func (NoopPipelineHooks) OnBuildComplete(context.Context, int, int, int, time.Duration, error) {}
func (NoopPipelineHooks) OnValidateComplete(context.Context, int, int, time.Duration)          {}
func (NoopPipelineHooks) OnProjectComplete(context.Context, int, int, time.Duration)           {}
func (NoopPipelineHooks) OnLoadRejected(context.Context)                                       {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, time.Duration)                {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers pipeline hooks. Nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op hooks.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
