package fdsn

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/couchcryptid/geomag-etl/internal/observability"
)

// CachedStations wraps a StationSource with an in-memory LRU cache.
type CachedStations struct {
	inner   domain.StationSource
	cache   *lruCache[string, domain.Station]
	metrics *observability.Metrics
}

// NewCachedStations creates a cache decorator around a station source.
func NewCachedStations(inner domain.StationSource, maxEntries int, metrics *observability.Metrics) *CachedStations {
	return &CachedStations{
		inner:   inner,
		cache:   newLRUCache[string, domain.Station](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedStations) Station(ctx context.Context, network, station string) (*domain.Station, error) {
	key := strings.ToUpper(network + "." + station)
	if st, ok := c.cache.get(key); ok {
		c.metrics.StationCache.WithLabelValues("hit").Inc()
		return &st, nil
	}
	c.metrics.StationCache.WithLabelValues("miss").Inc()

	st, err := c.inner.Station(ctx, network, station)
	if err != nil {
		return nil, err
	}
	// Unknown stations are not cached so they can appear later.
	if st != nil {
		c.cache.put(key, *st)
	}
	return st, nil
}

// lruCache is a bounded, mutex-guarded LRU map. Values are stored by value
// so callers never share them.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List // front is most recently used
	entries    map[K]*list.Element
}

type lruItem[K comparable, V any] struct {
	key   K
	value V
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[K]*list.Element),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruItem[K, V]).value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*lruItem[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&lruItem[K, V]{key: key, value: value})

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruItem[K, V]).key)
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
