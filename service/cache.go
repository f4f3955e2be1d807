package service

import (
	"context"
	"sync"
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
	"golang.org/x/sync/singleflight"
)

// ReferenceSource supplies a reference table by key.
type ReferenceSource interface {
	Fetch(ctx context.Context, key string) (*tabular.Table, error)
}

type cacheEntry struct {
	table   *tabular.Table
	fetched time.Time
}

// CachedSource keeps fetched tables for ttl and collapses concurrent fetches
// of the same key into one upstream call. Cached tables are shared and must
// not be modified.
type CachedSource struct {
	source ReferenceSource
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

func NewCachedSource(source ReferenceSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedSource) Fetch(ctx context.Context, key string) (*tabular.Table, error) {
	if t, ok := c.lookup(key); ok {
		return t, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if t, ok := c.lookup(key); ok {
			return t, nil
		}
		// Waiters share this fetch, so one caller going away must not
		// cancel it for the rest.
		t, err := c.source.Fetch(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{table: t, fetched: c.now()}
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*tabular.Table), nil
}

func (c *CachedSource) lookup(key string) (*tabular.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetched) >= c.ttl {
		return nil, false
	}
	return e.table, true
}

// Invalidate drops one key so the next Fetch goes upstream.
func (c *CachedSource) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *CachedSource) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
