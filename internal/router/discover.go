package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sundeepg98/colab-bridge/internal/protocol"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

// DefaultDiscoveryTTL is how long a discovered session list stays fresh.
const DefaultDiscoveryTTL = 30 * time.Second

// Discover lists all session descriptors currently in the store. Objects
// that fail to decode are skipped: a half-written descriptor from a racing
// processor must not break discovery for everyone else.
func Discover(ctx context.Context, s store.Store) ([]protocol.Session, error) {
	names, err := s.List(ctx, "session_")
	if err != nil {
		return nil, fmt.Errorf("router: discover sessions: %w", err)
	}

	var sessions []protocol.Session
	for _, name := range names {
		data, err := s.Get(ctx, name)
		if err != nil {
			// Deleted between list and get; someone else's race, not ours.
			continue
		}
		sess, err := protocol.DecodeSession(data)
		if err != nil {
			continue
		}
		sessions = append(sessions, *sess)
	}
	return sessions, nil
}

// Discovery caches session listings, refreshing them when older than TTL.
// Clients hold one of these so every submission does not re-list the store.
type Discovery struct {
	store store.Store
	ttl   time.Duration

	mu        sync.Mutex
	sessions  []protocol.Session
	fetchedAt time.Time
}

// NewDiscovery creates a caching discovery over s. ttl <= 0 uses the default.
func NewDiscovery(s store.Store, ttl time.Duration) *Discovery {
	if ttl <= 0 {
		ttl = DefaultDiscoveryTTL
	}
	return &Discovery{store: s, ttl: ttl}
}

// Sessions returns the cached session list, refreshing it if stale. On a
// refresh failure the previous (stale) list is returned along with the
// error so callers can degrade gracefully.
func (d *Discovery) Sessions(ctx context.Context) ([]protocol.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if time.Since(d.fetchedAt) < d.ttl && d.sessions != nil {
		return d.sessions, nil
	}

	sessions, err := Discover(ctx, d.store)
	if err != nil {
		return d.sessions, err
	}
	d.sessions = sessions
	d.fetchedAt = time.Now()
	return d.sessions, nil
}

// Invalidate drops the cached list so the next Sessions call refreshes.
func (d *Discovery) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetchedAt = time.Time{}
}
