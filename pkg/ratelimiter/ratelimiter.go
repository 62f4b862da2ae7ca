package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

// KeyedLimiter applies a token bucket per string key and periodically
// evicts idle entries so that the map cannot grow without bound.
type KeyedLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mtx   sync.Mutex
	byKey map[string]*entry
	hits  uint64
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New returns a keyed limiter allowing rps requests per second with the
// given burst per key, or nil if the args are invalid. A nil limiter
// allows everything.
func New(rps float64, burst int) *KeyedLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &KeyedLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: defaultIdleTTL,
		byKey:   make(map[string]*entry),
	}
}

// Allow reports whether one token can be consumed for the given key now.
func (l *KeyedLimiter) Allow(key string) bool {
	if l == nil || len(key) == 0 {
		return true
	}

	now := time.Now()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}
	return allowed
}
