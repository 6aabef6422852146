// Package timestamp manages the snapshot cursor used for consistent reads.
//
// At most one cursor is cached at a time, and at most one fetch is in
// flight at a time: concurrent callers that miss the cache await the same
// underlying fetch rather than issuing their own.
package timestamp

import (
	"context"
	"sync"
	"time"
)

// Validity is how long a fetched cursor remains usable. It mirrors the
// server-imposed ceiling on snapshot age.
const Validity = 30 * time.Second

// FetchFunc obtains a fresh snapshot cursor from the remote source.
type FetchFunc func(ctx context.Context) (string, error)

// Manager caches a snapshot cursor with single-flight acquisition.
type Manager struct {
	fetch FetchFunc
	clock func() time.Time

	mutex      sync.Mutex
	cursor     string
	acquiredAt time.Time
	inflight   chan struct{} // non-nil while a fetch is running; closed on completion
}

// NewManager returns a manager that acquires cursors with fetch.
func NewManager(fetch FetchFunc) *Manager {
	if fetch == nil {
		panic("fetch function must not be nil")
	}

	return &Manager{
		fetch: fetch,
		clock: time.Now,
	}
}

// Cursor returns a valid snapshot cursor, fetching one if necessary.
//
// If a fetch is already in flight the call awaits its result instead of
// starting another. Fetch errors are returned to the caller and never
// cached; the next call starts over with a fresh fetch.
func (m *Manager) Cursor(ctx context.Context) (string, error) {
	for {
		m.mutex.Lock()

		// presence is tracked by acquiredAt, the cursor itself is opaque
		// and may legitimately be empty
		if !m.acquiredAt.IsZero() && m.clock().Sub(m.acquiredAt) < Validity {
			cursor := m.cursor
			m.mutex.Unlock()
			return cursor, nil
		}

		if m.inflight != nil {
			wait := m.inflight
			m.mutex.Unlock()

			select {
			case <-wait:
				// Re-check: the fetch either cached a cursor or failed, in
				// which case this caller retries fresh.
				continue
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		done := make(chan struct{})
		m.inflight = done
		m.mutex.Unlock()

		cursor, err := m.fetch(ctx)

		m.mutex.Lock()
		if err == nil {
			m.cursor = cursor
			m.acquiredAt = m.clock()
		}
		m.inflight = nil
		m.mutex.Unlock()

		close(done)

		return cursor, err
	}
}

// Clear force-invalidates the cached cursor.
func (m *Manager) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.cursor = ""
	m.acquiredAt = time.Time{}
}
