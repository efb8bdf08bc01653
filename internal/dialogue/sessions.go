package dialogue

import (
	"sync"
	"time"
)

// Sessions owns every live Session keyed by endpoint.
//
// Apply holds a per-endpoint lock for the whole read-transition-write, so
// two events of one endpoint never interleave while different endpoints
// proceed in parallel.
type Sessions struct {
	mu      sync.Mutex
	entries map[int64]*entry
	locale  string
	ttl     time.Duration
	now     func() time.Time
}

type entry struct {
	mu      sync.Mutex
	s       Session
	evicted bool
}

type SessionsOption func(*Sessions)

// WithTTL evicts sessions idle longer than d on Sweep. 0 keeps them forever.
func WithTTL(d time.Duration) SessionsOption { return func(t *Sessions) { t.ttl = d } }

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) SessionsOption { return func(t *Sessions) { t.now = now } }

func NewSessions(defaultLocale string, opts ...SessionsOption) *Sessions {
	t := &Sessions{entries: map[int64]*entry{}, locale: defaultLocale, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

// SetTTL changes the idle eviction window (hot reload).
func (t *Sessions) SetTTL(d time.Duration) {
	t.mu.Lock()
	t.ttl = d
	t.mu.Unlock()
}

func (t *Sessions) SetDefaultLocale(l string) {
	t.mu.Lock()
	t.locale = l
	t.mu.Unlock()
}

// Apply runs fn on the endpoint's session, creating it when unseen, and
// stores the returned session.
func (t *Sessions) Apply(endpoint int64, fn func(Session) Session) Session {
	for {
		e := t.acquire(endpoint)
		e.mu.Lock()
		if e.evicted {
			// Lost a race with Sweep; retry on a fresh entry.
			e.mu.Unlock()
			continue
		}
		e.s = fn(e.s)
		s := e.s
		e.mu.Unlock()
		return s
	}
}

// Get returns a copy of the endpoint's session.
func (t *Sessions) Get(endpoint int64) (Session, bool) {
	t.mu.Lock()
	e, ok := t.entries[endpoint]
	t.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s, true
}

func (t *Sessions) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sweep drops sessions whose last update is older than the TTL and returns
// the evicted endpoints.
func (t *Sessions) Sweep(now time.Time) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ttl <= 0 {
		return nil
	}
	var out []int64
	for id, e := range t.entries {
		if !e.mu.TryLock() {
			continue // busy means not idle
		}
		if now.Sub(e.s.UpdatedAt) > t.ttl {
			e.evicted = true
			delete(t.entries, id)
			out = append(out, id)
		}
		e.mu.Unlock()
	}
	return out
}

func (t *Sessions) acquire(endpoint int64) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[endpoint]
	if !ok {
		e = &entry{s: NewSession(endpoint, t.locale, t.now())}
		t.entries[endpoint] = e
	}
	return e
}
