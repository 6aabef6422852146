// Package cache provides a thread-safe reactive store of query results,
// keyed by string, with per-key change subscriptions.
//
// Subscriptions never replay the value that was current at subscribe time;
// they deliver future changes only. Callers that need the current value must
// read it with TryGet (or the typed Get) in addition to subscribing.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	"github.com/strand/strand-go/src/strand/pattern"
)

// Source identifies the origin of a cache entry's current value.
type Source int

const (
	// SourceQuery marks a value produced by a server query result.
	SourceQuery Source = iota

	// SourceSubscription marks a value pushed by a server subscription.
	SourceSubscription

	// SourceOptimistic marks a value written by an optimistic local update
	// that has not yet been confirmed by the server.
	SourceOptimistic
)

func (s Source) String() string {
	switch s {
	case SourceQuery:
		return "query"
	case SourceSubscription:
		return "subscription"
	case SourceOptimistic:
		return "optimistic"
	default:
		return "unknown"
	}
}

// Change describes a single modification to a cache key.
//
// Present is false when the key was removed, in which case Value is nil.
type Change struct {
	Key     string
	Value   any
	Present bool
	Source  Source
}

// DefaultNotifyBuffer is the per-subscription channel buffer used when no
// explicit buffer size is configured.
const DefaultNotifyBuffer = 16

// Option configures a cache.
type Option func(*Cache)

// NotifyBuffer returns an option that sets the per-subscription channel
// buffer. Notifications to a subscriber whose buffer is full are dropped.
func NotifyBuffer(n uint) Option {
	return func(c *Cache) {
		if n > 0 {
			c.buffer = int(n)
		}
	}
}

// Logger returns an option that sets the logger used for dropped
// notification warnings.
func Logger(l twelf.Logger) Option {
	return func(c *Cache) {
		if l == nil {
			panic("logger must not be nil")
		}
		c.logger = l
	}
}

type entry struct {
	value     any
	source    Source
	updatedAt time.Time
}

// Cache is a reactive keyed store. The zero value is not usable; use New.
type Cache struct {
	buffer int
	logger twelf.Logger

	mutex   sync.RWMutex
	entries map[string]*entry
	subs    map[string]map[uint64]*Subscription
	nextSub uint64

	drops uint64 // atomic
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		buffer:  DefaultNotifyBuffer,
		logger:  &twelf.StandardLogger{},
		entries: map[string]*entry{},
		subs:    map[string]map[uint64]*Subscription{},
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// TryGet returns the value stored under key.
func (c *Cache) TryGet(key string) (any, bool) {
	validateKey(key)

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	return e.value, true
}

// Source returns the provenance of the value stored under key.
func (c *Cache) Source(key string) (Source, bool) {
	validateKey(key)

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}

	return e.source, true
}

// UpdatedAt returns the time of the last write to key.
func (c *Cache) UpdatedAt(key string) (time.Time, bool) {
	validateKey(key)

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}

	return e.updatedAt, true
}

// Set stores value under key with SourceQuery provenance and notifies
// subscribers.
func (c *Cache) Set(key string, value any) {
	c.SetAndNotify(key, value, SourceQuery)
}

// SetAndNotify stores value under key with the given provenance and
// notifies subscribers of the key.
func (c *Cache) SetAndNotify(key string, value any, src Source) {
	validateKey(key)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &entry{
		value:     value,
		source:    src,
		updatedAt: time.Now(),
	}

	c.notify(Change{Key: key, Value: value, Present: true, Source: src})
}

// Remove deletes key from the cache, notifying subscribers with an absence
// change. It returns false if the key was not present.
func (c *Cache) Remove(key string) bool {
	validateKey(key)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.removeLocked(key)
}

// RemovePattern deletes every key matching the given glob pattern and
// returns the number of keys removed. Each removal notifies that key's
// subscribers with an absence change.
func (c *Cache) RemovePattern(glob string) int {
	return c.removeMatching(pattern.Compile(glob))
}

// RemovePatternFold is RemovePattern with case-insensitive matching.
func (c *Cache) RemovePatternFold(glob string) int {
	return c.removeMatching(pattern.CompileFold(glob))
}

func (c *Cache) removeMatching(m *pattern.Matcher) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var matches []string
	for key := range c.entries {
		if m.Match(key) {
			matches = append(matches, key)
		}
	}

	for _, key := range matches {
		c.removeLocked(key)
	}

	return len(matches)
}

// Clear removes every entry, notifying each key's subscribers with an
// absence change.
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key := range c.entries {
		c.removeLocked(key)
	}
}

// Keys returns a snapshot of the current key set.
func (c *Cache) Keys() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}

	return keys
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

// NotificationDrops returns the number of change notifications that were
// dropped because a subscriber's buffer was full.
func (c *Cache) NotificationDrops() uint64 {
	return atomic.LoadUint64(&c.drops)
}

// Get returns the value stored under key if it is assignable to T.
// A stored value of a different type is reported as a miss.
func Get[T any](c *Cache, key string) (T, bool) {
	v, ok := c.TryGet(key)
	if !ok {
		return zero[T](), false
	}

	t, ok := v.(T)
	if !ok {
		return zero[T](), false
	}

	return t, true
}

// Update atomically applies fn to the value stored under key. It returns
// false, without calling fn, if the key is absent or holds a value that is
// not assignable to T. The replacement value keeps the entry's provenance
// and notifies subscribers.
func Update[T any](c *Cache, key string, fn func(T) T) bool {
	validateKey(key)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}

	t, ok := e.value.(T)
	if !ok {
		return false
	}

	e.value = fn(t)
	e.updatedAt = time.Now()

	c.notify(Change{Key: key, Value: e.value, Present: true, Source: e.source})

	return true
}

// removeLocked deletes key and notifies subscribers. The caller must hold
// the write lock.
func (c *Cache) removeLocked(key string) bool {
	if _, ok := c.entries[key]; !ok {
		return false
	}

	delete(c.entries, key)
	c.notify(Change{Key: key, Present: false})

	return true
}

// notify delivers ch to every subscriber of ch.Key. The caller must hold
// the write lock; sends never block, so a subscriber is free to write back
// to the same key from its receive loop.
func (c *Cache) notify(ch Change) {
	for _, sub := range c.subs[ch.Key] {
		select {
		case sub.changes <- ch:
		default:
			atomic.AddUint64(&c.drops, 1)
			c.logger.Debug(
				"cache dropped a change notification for '%s', subscriber buffer is full",
				ch.Key,
			)
		}
	}
}

func zero[T any]() (t T) {
	return
}

func validateKey(key string) {
	if key == "" {
		panic("cache key must not be empty")
	}
}
