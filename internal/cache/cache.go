// Package cache holds the process-wide survey snapshot with a time-to-live.
package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"ergopulse/internal/survey"
)

// ErrEmpty is returned when nothing is cached and no loader is configured
var ErrEmpty = errors.New("no snapshot cached")

// Entry is an immutable cached snapshot. A zero TTL never expires.
type Entry struct {
	Snapshot  *survey.Snapshot `json:"-"`
	FetchedAt time.Time        `json:"fetched_at"`
	TTL       time.Duration    `json:"ttl"`
}

// ExpiresAt returns when the entry stops being valid, zero if never
func (e *Entry) ExpiresAt() time.Time {
	if e == nil || e.TTL <= 0 {
		return time.Time{}
	}
	return e.FetchedAt.Add(e.TTL)
}

// Valid reports whether the entry may still be served at now
func (e *Entry) Valid(now time.Time) bool {
	if e == nil || e.Snapshot == nil {
		return false
	}
	if e.TTL <= 0 {
		return true
	}
	return now.Before(e.FetchedAt.Add(e.TTL))
}

// Loader produces a fresh snapshot
type Loader func(ctx context.Context) (*survey.Snapshot, error)

// Stats describes cache usage
type Stats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Loads     int64     `json:"loads"`
	Failures  int64     `json:"failures"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// SnapshotCache serves the current snapshot and reloads it when expired.
// The entry pointer is swapped atomically; readers keep whatever entry they
// already hold. Concurrent loads collapse into one call.
type SnapshotCache struct {
	current atomic.Pointer[Entry]
	group   singleflight.Group
	loader  Loader
	ttl     time.Duration
	now     func() time.Time

	hits     atomic.Int64
	misses   atomic.Int64
	loads    atomic.Int64
	failures atomic.Int64
}

// Option configures a SnapshotCache
type Option func(*SnapshotCache)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *SnapshotCache) {
		c.now = now
	}
}

// New creates a SnapshotCache. loader may be nil when snapshots are only
// stored explicitly.
func New(loader Loader, ttl time.Duration, opts ...Option) *SnapshotCache {
	c := &SnapshotCache{loader: loader, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a valid entry, loading one if the current entry expired.
func (c *SnapshotCache) Get(ctx context.Context) (*Entry, bool, error) {
	if e := c.current.Load(); e.Valid(c.now()) {
		c.hits.Add(1)
		return e, true, nil
	}
	c.misses.Add(1)
	e, err := c.load(ctx)
	return e, false, err
}

// Refresh loads a new snapshot regardless of the current entry. On failure
// the previous entry is left in place. A Store that lands while the load is
// running wins over the loaded snapshot.
func (c *SnapshotCache) Refresh(ctx context.Context) (*Entry, error) {
	return c.load(ctx)
}

// Store replaces the current entry with snap. A zero ttl pins it until the
// next Store or Refresh.
func (c *SnapshotCache) Store(snap *survey.Snapshot, ttl time.Duration) *Entry {
	e := &Entry{Snapshot: snap, FetchedAt: c.now(), TTL: ttl}
	c.current.Store(e)
	return e
}

// Peek returns the current entry without validating or loading it
func (c *SnapshotCache) Peek() *Entry {
	return c.current.Load()
}

// Stats returns usage counters
func (c *SnapshotCache) Stats() Stats {
	s := Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Loads:    c.loads.Load(),
		Failures: c.failures.Load(),
	}
	if e := c.current.Load(); e != nil {
		s.FetchedAt = e.FetchedAt
		s.ExpiresAt = e.ExpiresAt()
	}
	return s
}

func (c *SnapshotCache) load(ctx context.Context) (*Entry, error) {
	if c.loader == nil {
		if e := c.current.Load(); e != nil && e.Snapshot != nil {
			return e, nil
		}
		return nil, ErrEmpty
	}

	ch := c.group.DoChan("snapshot", func() (interface{}, error) {
		base := c.current.Load()
		// the load is shared, so one caller giving up must not cancel it
		snap, err := c.loader(context.WithoutCancel(ctx))
		c.loads.Add(1)
		if err != nil {
			c.failures.Add(1)
			return nil, err
		}
		e := &Entry{Snapshot: snap, FetchedAt: c.now(), TTL: c.ttl}
		if !c.current.CompareAndSwap(base, e) {
			return c.current.Load(), nil
		}
		return e, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
