package ontology

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the entry limit of each Cached cache.
const DefaultCacheSize = 4096

type ancestorAnswer struct {
	class string
	ok    bool
}

// Cached memoises an Oracle with bounded LRU caches. Each engine instance
// owns its own Cached value; nothing is shared between instances.
type Cached struct {
	inner     Oracle
	checks    *lru.Cache[string, bool]
	ancestors *lru.Cache[string, ancestorAnswer]
	depths    *lru.Cache[string, int]
}

// NewCached wraps o with caches holding up to size entries each.
func NewCached(o Oracle, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	checks, err := lru.New[string, bool](size)
	if err != nil {
		return nil, fmt.Errorf("create subsumption cache: %w", err)
	}
	ancestors, err := lru.New[string, ancestorAnswer](size)
	if err != nil {
		return nil, fmt.Errorf("create ancestor cache: %w", err)
	}
	depths, err := lru.New[string, int](size)
	if err != nil {
		return nil, fmt.Errorf("create depth cache: %w", err)
	}
	return &Cached{inner: o, checks: checks, ancestors: ancestors, depths: depths}, nil
}

// Purge empties every cache, e.g. after the underlying taxonomy changed.
func (c *Cached) Purge() {
	c.checks.Purge()
	c.ancestors.Purge()
	c.depths.Purge()
}

func (c *Cached) check(key string, fn func() (bool, error)) (bool, error) {
	if v, ok := c.checks.Get(key); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return false, err
	}
	c.checks.Add(key, v)
	return v, nil
}

func (c *Cached) IsSubclass(ctx context.Context, child, parent string) (bool, error) {
	return c.check("sub\x00"+child+"\x00"+parent, func() (bool, error) {
		return c.inner.IsSubclass(ctx, child, parent)
	})
}

func (c *Cached) IsInstance(ctx context.Context, term, class string) (bool, error) {
	return c.check("ins\x00"+term+"\x00"+class, func() (bool, error) {
		return c.inner.IsInstance(ctx, term, class)
	})
}

func (c *Cached) IsSubAttribute(ctx context.Context, attr, parent string) (bool, error) {
	return c.check("att\x00"+attr+"\x00"+parent, func() (bool, error) {
		return c.inner.IsSubAttribute(ctx, attr, parent)
	})
}

func (c *Cached) Contains(ctx context.Context, term string) (bool, error) {
	return c.check("has\x00"+term, func() (bool, error) {
		return c.inner.Contains(ctx, term)
	})
}

func (c *Cached) ClassesOf(ctx context.Context, term string) ([]string, error) {
	return c.inner.ClassesOf(ctx, term)
}

func (c *Cached) CommonAncestor(ctx context.Context, a, b string) (string, bool, error) {
	if b < a {
		a, b = b, a
	}
	key := a + "\x00" + b
	if v, ok := c.ancestors.Get(key); ok {
		return v.class, v.ok, nil
	}
	class, ok, err := c.inner.CommonAncestor(ctx, a, b)
	if err != nil {
		return "", false, err
	}
	c.ancestors.Add(key, ancestorAnswer{class: class, ok: ok})
	return class, ok, nil
}

func (c *Cached) Depth(ctx context.Context, class string) (int, error) {
	if v, ok := c.depths.Get(class); ok {
		return v, nil
	}
	d, err := c.inner.Depth(ctx, class)
	if err != nil {
		return 0, err
	}
	c.depths.Add(class, d)
	return d, nil
}

var _ Oracle = (*Cached)(nil)
