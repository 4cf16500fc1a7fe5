package cache

// ScopedKeyer prefixes every key of an inner Keyer. The server uses it to
// keep its entries apart from the CLI's when both share a Redis instance.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner. A nil inner is a DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ResultKey implements Keyer.
func (k *ScopedKeyer) ResultKey(dumpHash string, opts ResultKeyOpts) string {
	return k.prefix + k.inner.ResultKey(dumpHash, opts)
}

// ArtifactKey implements Keyer.
func (k *ScopedKeyer) ArtifactKey(resultHash string, format string) string {
	return k.prefix + k.inner.ArtifactKey(resultHash, format)
}
