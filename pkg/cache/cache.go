// Package cache keeps computed verdicts per policy URL for a fixed time to
// live. Stale entries are ignored on lookup and overwritten on the next store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/0x-stone/clauseguard/pkg/engine"
)

// DefaultTTL is how long a verdict stays fresh.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned by stores when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Entry is one stored verdict.
type Entry struct {
	Key       string          `json:"link"`
	Data      *engine.Verdict `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store is the persistence behind a Cache: a point lookup and an upsert.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, entry Entry) error
	Close() error
}

// Cache applies the freshness rule on top of a Store.
type Cache struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Cache. A non-positive ttl selects DefaultTTL.
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{store: store, ttl: ttl, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the verdict for url when one was stored less than the TTL
// ago. A missing or stale entry is reported as ok == false with no error.
func (c *Cache) Lookup(ctx context.Context, url string) (*engine.Verdict, bool, error) {
	entry, err := c.store.Get(ctx, url)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup %s: %w", url, err)
	}
	if entry.Data == nil {
		return nil, false, nil
	}

	age := c.now().Sub(entry.Timestamp)
	if age >= c.ttl {
		c.logger.Debug("cache entry stale", zap.String("url", url), zap.Duration("age", age))
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Store upserts the verdict for url stamped with the current time.
func (c *Cache) Store(ctx context.Context, url string, v *engine.Verdict) error {
	if err := c.store.Put(ctx, Entry{Key: url, Data: v, Timestamp: c.now().UTC()}); err != nil {
		return fmt.Errorf("cache store %s: %w", url, err)
	}
	return nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
