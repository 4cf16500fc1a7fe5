package cache

import "errors"

// Sentinel errors for cache backends.
var (
	// ErrNetwork wraps failures talking to a remote cache.
	ErrNetwork = errors.New("cache network error")

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache closed")
)
