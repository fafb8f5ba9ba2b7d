// Package cache holds the merge-only price and fee caches of the activity store.
//
// Entries are inserted or overwritten by Merge and never evicted: stale values stay
// visible until a later merge replaces them.
package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// Cache is a typed, merge-only key/value cache
type Cache[V any] struct {
	store *gocache.Cache
}

// New creates an empty cache with no expiration and no janitor
func New[V any]() *Cache[V] {
	return &Cache[V]{store: gocache.New(gocache.NoExpiration, 0)}
}

// Merge inserts or overwrites every entry. Keys absent from entries are untouched.
func (c *Cache[V]) Merge(entries map[string]V) {
	for key, value := range entries {
		c.store.Set(key, value, gocache.NoExpiration)
	}
}

// Lookup returns the best known value for key. found is false when the key has
// never been merged, which is distinct from a stored zero value.
func (c *Cache[V]) Lookup(key string) (value V, found bool) {
	raw, ok := c.store.Get(key)
	if !ok {
		return value, false
	}
	value, found = raw.(V)
	return value, found
}

// Snapshot copies the current contents into a new map
func (c *Cache[V]) Snapshot() map[string]V {
	items := c.store.Items()
	out := make(map[string]V, len(items))
	for key, item := range items {
		if value, ok := item.Object.(V); ok {
			out[key] = value
		}
	}
	return out
}

// Len returns the number of cached entries
func (c *Cache[V]) Len() int {
	return c.store.ItemCount()
}

// Price is a cached asset price and the currency it was quoted in
type Price struct {
	Value    float64
	Currency string
}

// PriceCache maps asset ratio ids to prices
type PriceCache = Cache[Price]

// FeeCache maps transaction ids to estimated fees in the smallest denomination
type FeeCache = Cache[uint64]

// NewPriceCache creates an empty price cache
func NewPriceCache() *PriceCache {
	return New[Price]()
}

// NewFeeCache creates an empty fee cache
func NewFeeCache() *FeeCache {
	return New[uint64]()
}

// MergePrices stores quotes fetched in currency
func MergePrices(c *PriceCache, quotes map[string]float64, currency string) {
	entries := make(map[string]Price, len(quotes))
	for id, value := range quotes {
		entries[id] = Price{Value: value, Currency: currency}
	}
	c.Merge(entries)
}
