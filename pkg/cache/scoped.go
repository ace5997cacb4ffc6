package cache

// ScopedKeyer wraps a Keyer with a prefix, so several tenants or model
// versions can share one backend without seeing each other's entries.
//
//	tenant := NewScopedKeyer(NewDefaultKeyer(), "project:bridge-a:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) FormKey(topologyHash string, opts FormKeyOpts) string {
	return k.prefix + k.inner.FormKey(topologyHash, opts)
}

func (k *ScopedKeyer) ResultKey(requestHash string) string {
	return k.prefix + k.inner.ResultKey(requestHash)
}

func (k *ScopedKeyer) RenderKey(formHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(formHash, opts)
}
