package cache

// ScopedKeyer wraps a Keyer with a prefix, so several configurations (or
// several teams) can share one Redis or Mongo backend without collisions.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "ci:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// POMKey generates a prefixed key for POM caching.
func (k *ScopedKeyer) POMKey(repo, coordinate string) string {
	return k.prefix + k.inner.POMKey(repo, coordinate)
}

// GraphKey generates a prefixed key for graph caching.
func (k *ScopedKeyer) GraphKey(root string, opts GraphKeyOpts) string {
	return k.prefix + k.inner.GraphKey(root, opts)
}
