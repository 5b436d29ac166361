// Package search provides a caching, fallback-chained search layer
// used by research-style workers. Successful queries are cached with a
// TTL; on a miss the primary backend runs first, then each fallback in
// declared order, and only when every backend fails does the caller
// see an error.
package search

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultTTL is how long a cached entry stays fresh.
	DefaultTTL = time.Hour
	// DefaultCacheSize bounds the number of cached queries.
	DefaultCacheSize = 1024
)

// CacheEntry is one cached search outcome. Never mutated after
// creation; expiry is judged against its own TTL.
type CacheEntry struct {
	// Results is the cached hit list.
	Results []Result
	// CreatedAt is when the entry was stored.
	CreatedAt time.Time
	// TTL is the entry's time to live.
	TTL time.Duration
}

// Expired reports whether the entry is past its TTL at the given time.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// Stats describes the cache for observability.
type Stats struct {
	// TotalEntries is the number of cached entries, fresh or not.
	TotalEntries int `json:"total_entries"`
	// ExpiredEntries counts entries past their TTL still in the cache.
	ExpiredEntries int `json:"expired_entries"`
	// Hits counts searches served from a fresh cache entry.
	Hits uint64 `json:"hits"`
	// Misses counts searches that had to call a backend.
	Misses uint64 `json:"misses"`
	// Fallbacks counts searches the primary failed and a fallback served.
	Fallbacks uint64 `json:"fallbacks"`
}

// Options configures a Provider. Zero fields take defaults.
type Options struct {
	// TTL for new cache entries. Default one hour.
	TTL time.Duration
	// CacheSize bounds the cache. Default 1024 entries.
	CacheSize int
	// Now supplies the clock; tests inject a fake. Default time.Now.
	Now func() time.Time
}

// Provider is the caching search layer. Safe for concurrent use.
type Provider struct {
	primary   Backend
	fallbacks []Backend
	ttl       time.Duration
	now       func() time.Time

	cache *lru.Cache[string, CacheEntry]

	statsMu   sync.Mutex
	hits      uint64
	misses    uint64
	fallbackN uint64
}

// NewProvider builds a provider over a primary backend and ordered
// fallbacks.
func NewProvider(primary Backend, fallbacks []Backend, opts Options) (*Provider, error) {
	if primary == nil {
		return nil, fmt.Errorf("search provider needs a primary backend")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cache, err := lru.New[string, CacheEntry](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}
	return &Provider{
		primary:   primary,
		fallbacks: fallbacks,
		ttl:       opts.TTL,
		now:       opts.Now,
		cache:     cache,
	}, nil
}

// cacheKey composes the lookup key from the query and result count.
func cacheKey(query string, maxResults int) string {
	return query + ":" + strconv.Itoa(maxResults)
}

// Search answers the query: a fresh cached entry returns immediately;
// otherwise the primary backend runs, then each fallback in order, and
// the first success is cached. When every backend fails the error
// names each backend tried.
func (p *Provider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	key := cacheKey(query, maxResults)
	if entry, ok := p.cache.Get(key); ok && !entry.Expired(p.now()) {
		p.bump(func() { p.hits++ })
		log.Printf("[search] cache hit for %q", key)
		return entry.Results, nil
	}
	p.bump(func() { p.misses++ })

	var tried []string
	var errs []string
	for i, b := range append([]Backend{p.primary}, p.fallbacks...) {
		results, err := b.Search(ctx, query, maxResults)
		if err != nil {
			tried = append(tried, b.Name())
			errs = append(errs, fmt.Sprintf("%s: %v", b.Name(), err))
			log.Printf("[search] backend %s failed for %q: %v", b.Name(), key, err)
			continue
		}
		if i > 0 {
			p.bump(func() { p.fallbackN++ })
		}
		p.cache.Add(key, CacheEntry{Results: results, CreatedAt: p.now(), TTL: p.ttl})
		log.Printf("[search] backend %s answered %q with %d results", b.Name(), key, len(results))
		return results, nil
	}
	return nil, fmt.Errorf("all search backends failed (tried %s): %s",
		strings.Join(tried, ", "), strings.Join(errs, "; "))
}

// ClearExpired sweeps every entry past its TTL and returns how many
// were removed.
func (p *Provider) ClearExpired() int {
	now := p.now()
	removed := 0
	for _, key := range p.cache.Keys() {
		if entry, ok := p.cache.Peek(key); ok && entry.Expired(now) {
			p.cache.Remove(key)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[search] swept %d expired cache entries", removed)
	}
	return removed
}

// ClearAll empties the cache.
func (p *Provider) ClearAll() {
	p.cache.Purge()
}

// Stats reports cache size, expired-entry count, and hit counters.
func (p *Provider) Stats() Stats {
	now := p.now()
	expired := 0
	for _, key := range p.cache.Keys() {
		if entry, ok := p.cache.Peek(key); ok && entry.Expired(now) {
			expired++
		}
	}
	s := Stats{TotalEntries: p.cache.Len(), ExpiredEntries: expired}
	p.bump(func() {
		s.Hits = p.hits
		s.Misses = p.misses
		s.Fallbacks = p.fallbackN
	})
	return s
}

// bump runs fn with the counter lock held.
func (p *Provider) bump(fn func()) {
	p.statsMu.Lock()
	fn()
	p.statsMu.Unlock()
}
