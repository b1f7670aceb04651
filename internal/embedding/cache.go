package embedding

import (
	"context"
	"crypto/sha256"
	"sync"
)

// Cached memoizes vectors of another provider keyed by the text hash. When
// the cache is full it is reset.
type Cached struct {
	provider Provider
	size     int

	mu      sync.RWMutex
	vectors map[[sha256.Size]byte][]float32
}

// NewCached wraps provider. A non-positive size disables caching.
func NewCached(provider Provider, size int) Provider {
	if size <= 0 {
		return provider
	}
	return &Cached{
		provider: provider,
		size:     size,
		vectors:  make(map[[sha256.Size]byte][]float32, size),
	}
}

func (c *Cached) Dimension() int { return c.provider.Dimension() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if IsBlank(text) {
		return Zero(c.Dimension()), nil
	}

	key := sha256.Sum256([]byte(text))

	c.mu.RLock()
	vec, ok := c.vectors[key]
	c.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.vectors) >= c.size {
		c.vectors = make(map[[sha256.Size]byte][]float32, c.size)
	}
	c.vectors[key] = vec
	c.mu.Unlock()

	return vec, nil
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}
