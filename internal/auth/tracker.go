package auth

import (
	"sync"
	"time"
)

const defaultTrackerTTL = 30 * time.Minute

// Ticket identifies one in-flight check for a browser key.
type Ticket struct {
	key string
	gen uint64
}

type trackerEntry struct {
	born    uint64
	gen     uint64
	pending int
	result  Result
	touched time.Time
}

// Tracker records the latest authentication state per browser. Checks for
// the same key may overlap (several tabs, parallel requests); each request
// acts on its own result and the tracker only decides which result is kept:
// the one from the most recently started check.
type Tracker struct {
	mu      sync.Mutex
	seq     uint64
	entries map[string]*trackerEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewTracker constructs a Tracker whose idle entries are dropped after ttl.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = defaultTrackerTTL
	}
	return &Tracker{
		entries: make(map[string]*trackerEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Begin moves key into the Checking state and returns a ticket for the new
// check. Tickets issued earlier for key become stale but their checks keep
// running under their own request contexts.
func (t *Tracker) Begin(key string) Ticket {
	if key == "" {
		return Ticket{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweepLocked(now)

	t.seq++
	entry, ok := t.entries[key]
	if !ok {
		entry = &trackerEntry{born: t.seq}
		t.entries[key] = entry
	}
	entry.gen = t.seq
	entry.pending++
	entry.result = Result{State: StateChecking}
	entry.touched = now

	return Ticket{key: key, gen: entry.gen}
}

// Finish reports result for the ticket's check. The result is recorded only
// when no newer check has started since the ticket was issued; Finish returns
// whether it was recorded. Callers act on their own result either way.
func (t *Tracker) Finish(ticket Ticket, result Result) bool {
	if ticket.key == "" {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[ticket.key]
	if !ok || ticket.gen < entry.born {
		return false
	}
	if entry.pending > 0 {
		entry.pending--
	}
	entry.touched = t.now()
	if entry.gen != ticket.gen {
		return false
	}
	entry.result = result
	return true
}

// Snapshot returns the last known state for key. Unknown keys report
// Unauthenticated.
func (t *Tracker) Snapshot(key string) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok || key == "" {
		return Result{State: StateUnauthenticated}
	}
	return entry.result
}

// Forget drops the entry for key. Checks still running for it are not
// recorded when they finish.
func (t *Tracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// Len reports how many browsers are tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Tracker) sweepLocked(now time.Time) {
	for key, entry := range t.entries {
		if entry.pending == 0 && now.Sub(entry.touched) > t.ttl {
			delete(t.entries, key)
		}
	}
}
