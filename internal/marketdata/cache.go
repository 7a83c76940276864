package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type cacheEntry struct {
	candles   []Candle
	fetchedAt time.Time
}

// CachedProvider wraps a Provider with a per-(symbol, interval) TTL cache
// so one analysis cycle does not refetch the same window repeatedly.
type CachedProvider struct {
	provider Provider
	ttl      time.Duration
	mu       sync.RWMutex
	entries  map[string]cacheEntry
}

func NewCachedProvider(provider Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		ttl:      ttl,
		entries:  make(map[string]cacheEntry),
	}
}

func cacheKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("%s:%s:%d", symbol, interval, limit)
}

func (cp *CachedProvider) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	key := cacheKey(symbol, interval, limit)

	cp.mu.RLock()
	entry, ok := cp.entries[key]
	cp.mu.RUnlock()

	if ok && time.Since(entry.fetchedAt) < cp.ttl {
		return entry.candles, nil
	}

	candles, err := cp.provider.GetKlines(ctx, symbol, interval, limit)
	if err != nil {
		// Serve stale data over nothing when the upstream is down.
		if ok {
			return entry.candles, nil
		}
		return nil, err
	}

	cp.mu.Lock()
	cp.entries[key] = cacheEntry{candles: candles, fetchedAt: time.Now()}
	cp.mu.Unlock()

	return candles, nil
}

func (cp *CachedProvider) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return cp.provider.GetCurrentPrice(ctx, symbol)
}

// Invalidate drops all cached windows for a symbol.
func (cp *CachedProvider) Invalidate(symbol string) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	for key := range cp.entries {
		if len(key) >= len(symbol) && key[:len(symbol)] == symbol {
			delete(cp.entries, key)
		}
	}
}
