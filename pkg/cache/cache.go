// Package cache stores pipeline results keyed by dump content.
//
// Pipeline output is a pure function of the dump bytes and the projection
// options, so a result computed once can be served again for the same
// input. Four backends implement [Cache]:
//
//   - [NullCache] disables caching
//   - [FileCache] keeps entries on disk for the CLI
//   - [MemoryCache] is a bounded in-process LRU for the server
//   - [RedisCache] shares entries between server replicas
//
// Keys come from a [Keyer] so callers never build them by hand:
//
//	key := keyer.ResultKey(cache.Hash(dump), cache.ResultKeyOpts{MaxAttributeLength: 256})
package cache

import (
	"context"
	"time"
)

// TTLs for cached entries.
const (
	TTLResult   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiry. A zero ttl means no expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// ResultKey is the key of a pipeline result for a dump with the given hash.
	ResultKey(dumpHash string, opts ResultKeyOpts) string

	// ArtifactKey is the key of a rendered graph (svg, dot) for a result.
	ArtifactKey(resultHash string, format string) string
}

// ResultKeyOpts are the options that change a pipeline result.
type ResultKeyOpts struct {
	DropAttributes     []string `json:"drop"`
	MaxAttributeLength int      `json:"max_len"`
}

// schemaVersion is bumped when the cached result encoding changes.
const schemaVersion = 1

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ResultKey implements Keyer.
func (DefaultKeyer) ResultKey(dumpHash string, opts ResultKeyOpts) string {
	return hashKey("result", schemaVersion, dumpHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(resultHash string, format string) string {
	return hashKey("artifact", schemaVersion, resultHash, format)
}

var _ Keyer = DefaultKeyer{}
