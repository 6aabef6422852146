package cache

import "sync"

// Subscription receives future changes to a single cache key.
//
// The subscription does not replay the key's current value. A subscriber
// that needs it must read the cache directly after subscribing.
type Subscription struct {
	key     string
	id      uint64
	cache   *Cache
	changes chan Change
	once    sync.Once
}

// Subscribe registers a subscription for future changes to key.
//
// The returned subscription must be closed when no longer needed; an
// unclosed subscription whose buffer fills up silently drops notifications.
func (c *Cache) Subscribe(key string) *Subscription {
	validateKey(key)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.nextSub++
	sub := &Subscription{
		key:     key,
		id:      c.nextSub,
		cache:   c,
		changes: make(chan Change, c.buffer),
	}

	if c.subs[key] == nil {
		c.subs[key] = map[uint64]*Subscription{}
	}
	c.subs[key][sub.id] = sub

	return sub
}

// Changes returns the channel on which changes are delivered. The channel
// is closed when the subscription is closed.
func (s *Subscription) Changes() <-chan Change {
	return s.changes
}

// Key returns the cache key this subscription observes.
func (s *Subscription) Key() string {
	return s.key
}

// Close detaches the subscription and closes its change channel. It is safe
// to call multiple times and from any goroutine.
func (s *Subscription) Close() {
	s.once.Do(func() {
		c := s.cache

		c.mutex.Lock()
		defer c.mutex.Unlock()

		delete(c.subs[s.key], s.id)
		if len(c.subs[s.key]) == 0 {
			delete(c.subs, s.key)
		}

		close(s.changes)
	})
}
