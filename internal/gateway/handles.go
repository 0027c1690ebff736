package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/relay"
)

var (
	// ErrHandleUnknown means the token was never minted or has expired.
	ErrHandleUnknown = errors.New("unknown stream handle")
	// ErrHandleUsed means the handle was already claimed. Handles never
	// reconnect.
	ErrHandleUsed = errors.New("stream handle already consumed")
)

// defaultHandleTTL bounds how long an unclaimed handle stays valid.
const defaultHandleTTL = 5 * time.Minute

// handleTable tracks minted stream handles. A handle is a one-time
// capability: claiming removes the invocation but keeps a tombstone so a
// second claim is distinguishable from an unknown token.
type handleTable struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*handleEntry
}

type handleEntry struct {
	sessionID string
	inv       *relay.Invocation
	minted    time.Time
	claimed   bool
}

func newHandleTable(ttl time.Duration) *handleTable {
	return &handleTable{
		ttl:     ttl,
		entries: make(map[string]*handleEntry),
	}
}

// mint registers inv under a fresh token.
func (t *handleTable) mint(sessionID string, inv *relay.Invocation) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepLocked()

	token := newID()
	t.entries[token] = &handleEntry{
		sessionID: sessionID,
		inv:       inv,
		minted:    time.Now(),
	}
	return token
}

// claim consumes the handle for token.
func (t *handleTable) claim(token string) (*relay.Invocation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[token]
	if !ok {
		return nil, ErrHandleUnknown
	}
	if entry.claimed {
		return nil, ErrHandleUsed
	}

	entry.claimed = true
	inv := entry.inv
	entry.inv = nil
	return inv, nil
}

// sweepLocked drops unclaimed entries past the TTL and claimed tombstones
// past twice the TTL. Caller holds the lock.
func (t *handleTable) sweepLocked() {
	now := time.Now()
	for token, entry := range t.entries {
		age := now.Sub(entry.minted)
		if (!entry.claimed && age > t.ttl) || age > 2*t.ttl {
			delete(t.entries, token)
		}
	}
}
