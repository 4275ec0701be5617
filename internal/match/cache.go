package match

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/your-org/facetrack/internal/models"
)

// IdentitySource loads enrolled identity vectors for brute-force matching.
type IdentitySource interface {
	ListIdentityVectors(ctx context.Context) ([]models.IdentityVector, error)
}

// Cache holds a periodically refreshed snapshot of all identity vectors.
// Refreshes replace the slice wholesale under the write lock, so readers
// always see a consistent snapshot and never a partially updated one.
type Cache struct {
	src IdentitySource
	ttl time.Duration

	mu      sync.RWMutex
	vectors []models.IdentityVector
	fetched time.Time
}

func NewCache(src IdentitySource, ttl time.Duration) *Cache {
	return &Cache{src: src, ttl: ttl}
}

// Vectors returns the cached snapshot, refreshing it synchronously when
// the cache is empty or stale.
func (c *Cache) Vectors(ctx context.Context) ([]models.IdentityVector, error) {
	c.mu.RLock()
	vectors, fetched := c.vectors, c.fetched
	c.mu.RUnlock()

	if vectors != nil && time.Since(fetched) < c.ttl {
		return vectors, nil
	}
	return c.refresh(ctx)
}

func (c *Cache) refresh(ctx context.Context) ([]models.IdentityVector, error) {
	fresh, err := c.src.ListIdentityVectors(ctx)
	if err != nil {
		// serve the stale snapshot if we have one
		c.mu.RLock()
		vectors := c.vectors
		c.mu.RUnlock()
		if vectors != nil {
			return vectors, nil
		}
		return nil, fmt.Errorf("refresh identity cache: %w", err)
	}
	if fresh == nil {
		fresh = []models.IdentityVector{}
	}

	c.mu.Lock()
	c.vectors = fresh
	c.fetched = time.Now()
	c.mu.Unlock()

	return fresh, nil
}

// Invalidate forces the next read to refetch. Called after enrollments and
// deletions.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.vectors = nil
	c.fetched = time.Time{}
	c.mu.Unlock()
}
