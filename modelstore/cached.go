package modelstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// CachedStore keeps the most recently used models of another Store in
// memory.
type CachedStore struct {
	Store Store

	cache *lru.Cache
}

// NewCachedStore wraps s with an LRU cache holding up to size models.
func NewCachedStore(s Store, size int) (*CachedStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "create model cache")
	}
	return &CachedStore{Store: s, cache: cache}, nil
}

func (c *CachedStore) Put(ctx context.Context, name string, data []byte) error {
	c.cache.Remove(name)
	if err := c.Store.Put(ctx, name, data); err != nil {
		return err
	}
	c.cache.Add(name, append([]byte{}, data...))
	return nil
}

func (c *CachedStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data, ok := c.cache.Get(name); ok {
		return append([]byte{}, data.([]byte)...), nil
	}
	data, err := c.Store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	c.cache.Add(name, append([]byte{}, data...))
	return data, nil
}

func (c *CachedStore) Delete(ctx context.Context, name string) error {
	c.cache.Remove(name)
	return c.Store.Delete(ctx, name)
}

// Len returns the number of cached models.
func (c *CachedStore) Len() int {
	return c.cache.Len()
}
