package abuse

import (
	"sync"
	"time"
)

// evictionGrace pads the deferred sweep past the entry's expiry so a sweep
// never races a still-valid entry.
const evictionGrace = time.Second

// CooldownGuard tracks per-(origin, recipient) cooldowns in process memory.
// It is advisory rate shaping, not hard security: single-process, best-effort,
// and two concurrent submissions may race on check/arm.
//
// Entries past their expiry are logically absent: they read as not blocked
// and are evicted lazily on read, plus by a deferred best-effort sweep
// scheduled when the entry is armed, so memory stays bounded even for keys
// that are never read again.
type CooldownGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration

	// now is injectable for tests.
	now func() time.Time
	// afterFunc is injectable for tests; defaults to time.AfterFunc.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewCooldownGuard creates a guard with the given cooldown duration.
func NewCooldownGuard(ttl time.Duration) *CooldownGuard {
	return &CooldownGuard{
		entries:   make(map[string]time.Time),
		ttl:       ttl,
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
}

// Key derives the cooldown key for a hashed origin and a recipient handle.
// Callers pass the origin through OriginHash first; the raw origin never
// enters the map.
func Key(originHash, username string) string {
	return originHash + "::" + username
}

// Blocked reports whether the key is inside an active cooldown window.
// An expired entry reads as not blocked and is evicted on the spot.
func (g *CooldownGuard) Blocked(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	exp, ok := g.entries[key]
	if !ok {
		return false
	}
	if !exp.After(g.now()) {
		delete(g.entries, key)
		return false
	}
	return true
}

// Arm starts the cooldown window for the key and schedules a deferred
// eviction pass shortly after it elapses.
func (g *CooldownGuard) Arm(key string) {
	g.mu.Lock()
	g.entries[key] = g.now().Add(g.ttl)
	g.mu.Unlock()

	g.afterFunc(g.ttl+evictionGrace, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if exp, ok := g.entries[key]; ok && !exp.After(g.now()) {
			delete(g.entries, key)
		}
	})
}

// Len returns the number of live entries. Intended for tests and diagnostics.
func (g *CooldownGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
