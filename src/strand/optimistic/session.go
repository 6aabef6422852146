// Package optimistic provides a short-lived overlay session on top of the
// reactive cache, used while a single optimistic mutation is in flight.
//
// A session records the original value of every key it touches so that a
// failed mutation can be rolled back. Sessions are consumed exactly once:
// either committed on success or rolled back on failure.
package optimistic

import (
	"strings"

	"github.com/strand/strand-go/src/strand/cache"
)

// KeyCodec produces and parses the canonical argument suffix of composite
// cache keys.
type KeyCodec interface {
	EncodeKey(v any) (string, error)
	DecodeKey(s string, out any) error
}

// Key builds the composite cache key for a query. Queries without arguments
// are keyed by name alone; otherwise the key is the name joined to the
// canonical serialization of the arguments.
func Key(codec KeyCodec, name string, args any) (string, error) {
	if name == "" {
		panic("query name must not be empty")
	}

	if args == nil {
		return name, nil
	}

	suffix, err := codec.EncodeKey(args)
	if err != nil {
		return "", err
	}

	return name + ":" + suffix, nil
}

type original struct {
	value   any
	source  cache.Source
	present bool
}

// Session is an optimistic overlay on a cache for one in-flight mutation.
type Session struct {
	cache *cache.Cache
	codec KeyCodec

	// originals captures each touched key's pre-modification state, exactly
	// once, on the first write within this session.
	originals map[string]original
	consumed  bool
}

// NewSession returns a session wrapping c.
func NewSession(c *cache.Cache, codec KeyCodec) *Session {
	return &Session{
		cache:     c,
		codec:     codec,
		originals: map[string]original{},
	}
}

// Get reads a query result through the session's composite key. Pass nil
// args for queries without arguments.
func Get[T any](s *Session, name string, args any) (T, bool) {
	var zero T

	key, err := Key(s.codec, name, args)
	if err != nil {
		return zero, false
	}

	return cache.Get[T](s.cache, key)
}

// Entry is one argument variant of a query, as returned by GetAll.
type Entry[T, A any] struct {
	Args  A
	Value T
}

// GetAll returns every cached argument variant of the named query. Entries
// whose key suffix cannot be decoded into A, or whose value is not a T, are
// skipped.
func GetAll[T, A any](s *Session, name string) []Entry[T, A] {
	prefix := name + ":"

	var out []Entry[T, A]
	for _, key := range s.cache.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		var args A
		if err := s.codec.DecodeKey(key[len(prefix):], &args); err != nil {
			continue
		}

		value, ok := cache.Get[T](s.cache, key)
		if !ok {
			continue
		}

		out = append(out, Entry[T, A]{Args: args, Value: value})
	}

	return out
}

// Put writes an optimistic value for a query, capturing the key's original
// state if this is the session's first write to it.
func (s *Session) Put(name string, value any, args any) error {
	key, err := s.touch(name, args)
	if err != nil {
		return err
	}

	s.cache.SetAndNotify(key, value, cache.SourceOptimistic)

	return nil
}

// Evict removes a query's cached entry, signalling a loading state rather
// than showing stale data. The original is captured for rollback like any
// other write.
func (s *Session) Evict(name string, args any) error {
	key, err := s.touch(name, args)
	if err != nil {
		return err
	}

	s.cache.Remove(key)

	return nil
}

// Keys returns the composite keys modified so far, in no particular order.
func (s *Session) Keys() []string {
	keys := make([]string, 0, len(s.originals))
	for key := range s.originals {
		keys = append(keys, key)
	}

	return keys
}

// Rollback restores the captured original of every key modified within the
// session, removing keys that were originally absent, and consumes the
// session.
func (s *Session) Rollback() {
	s.consume("Rollback")

	for key, orig := range s.originals {
		if orig.present {
			s.cache.SetAndNotify(key, orig.value, orig.source)
		} else {
			s.cache.Remove(key)
		}
	}
}

// Commit discards the rollback bookkeeping and consumes the session. The
// server-confirmed values overwrite cache entries through the standard
// write path, outside of the session.
func (s *Session) Commit() {
	s.consume("Commit")
	s.originals = nil
}

func (s *Session) touch(name string, args any) (string, error) {
	if s.consumed {
		panic("optimistic session has already been consumed")
	}

	key, err := Key(s.codec, name, args)
	if err != nil {
		return "", err
	}

	if _, ok := s.originals[key]; !ok {
		orig := original{}
		if v, found := s.cache.TryGet(key); found {
			orig.value = v
			orig.present = true
			orig.source, _ = s.cache.Source(key)
		}
		s.originals[key] = orig
	}

	return key, nil
}

func (s *Session) consume(op string) {
	if s.consumed {
		panic("optimistic session has already been consumed: " + op)
	}
	s.consumed = true
}
