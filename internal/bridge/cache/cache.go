// Package cache maintains the in-memory id↔username index derived from the
// ledger. The index is never patched entry by entry: any staleness or mutation
// triggers a full rebuild, which rules out index/ledger divergence.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"wikibridge/internal/bridge/models"
	id "wikibridge/pkg/domain"
)

// DefaultTTL bounds how long a built index is served without consulting the ledger.
const DefaultTTL = 20 * time.Second

// Loader supplies the ledger document the index is folded from.
type Loader interface {
	Load(ctx context.Context) (*models.Ledger, error)
}

// Index holds the two derived lookup maps. The maps are replaced wholesale on
// rebuild and must not be mutated by callers.
type Index struct {
	IDToUsername map[id.GameID]string
	UsernameToID map[string]id.GameID
}

// Cache is the TTL'd index over active ledger records.
type Cache struct {
	loader Loader
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	index   *Index
	builtAt time.Time
	gen     uint64
}

type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates an index cache over the given loader. A non-positive ttl falls
// back to DefaultTTL.
func New(loader Loader, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the current index, rebuilding from the ledger when the cache is
// empty or older than the TTL. Concurrent callers share a single rebuild.
func (c *Cache) Get(ctx context.Context) (*Index, error) {
	c.mu.RLock()
	index, builtAt := c.index, c.builtAt
	c.mu.RUnlock()

	if index != nil && c.now().Sub(builtAt) <= c.ttl {
		return index, nil
	}

	rebuilt, err, _ := c.group.Do("rebuild", func() (any, error) {
		// Another caller may have finished the rebuild while we waited.
		c.mu.RLock()
		index, builtAt := c.index, c.builtAt
		c.mu.RUnlock()
		if index != nil && c.now().Sub(builtAt) <= c.ttl {
			return index, nil
		}
		return c.rebuild(ctx)
	})
	if err != nil {
		return nil, err
	}
	return rebuilt.(*Index), nil
}

// Invalidate forces the next Get to rebuild, regardless of TTL. Must be called
// after every successful ledger mutation. Bumping the generation makes an
// in-flight rebuild discard its snapshot: it may have read the ledger before
// the mutation was written.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.index = nil
	c.mu.Unlock()
}

func (c *Cache) rebuild(ctx context.Context) (*Index, error) {
	for {
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		ledger, err := c.loader.Load(ctx)
		if err != nil {
			return nil, err
		}

		index := &Index{
			IDToUsername: make(map[id.GameID]string),
			UsernameToID: make(map[string]id.GameID),
		}
		for _, record := range ledger.Accounts {
			if !record.Linked {
				continue
			}
			index.IDToUsername[record.GameID] = record.WikiUsername
			index.UsernameToID[record.WikiUsername] = record.GameID
		}

		c.mu.Lock()
		if c.gen != gen {
			// The ledger mutated while we were reading it; reload.
			c.mu.Unlock()
			continue
		}
		c.index = index
		c.builtAt = c.now()
		c.mu.Unlock()

		if c.logger != nil {
			c.logger.DebugContext(ctx, "account index rebuilt", "active_links", len(index.IDToUsername))
		}
		return index, nil
	}
}
