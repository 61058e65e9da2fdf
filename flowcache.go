package polyauth

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// FlowCache holds short-lived state for in-flight multi-step login
// attempts: the OAuth1 pending request-token pair and the OpenID hybrid
// correlation state. Entries are keyed per originating session, expire on
// their own so abandoned flows leak nothing, and are consumed with an
// atomic check-and-delete so a replayed callback can never observe the
// same entry twice.
type FlowCache struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// DefaultFlowTTL bounds how long a login attempt may sit between the
// redirect out and the callback back.
const DefaultFlowTTL = 10 * time.Minute

// NewFlowCache creates a cache whose entries expire after ttl.
// A non-positive ttl selects DefaultFlowTTL.
func NewFlowCache(ttl time.Duration) *FlowCache {
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}
	return &FlowCache{c: gocache.New(ttl, ttl)}
}

// Put stores v under key, replacing any previous entry and restarting its
// expiration clock.
func (f *FlowCache) Put(key string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.SetDefault(key, v)
}

// Consume removes and returns the entry under key. Exactly one of any
// number of concurrent callers gets the entry; the rest see ok == false,
// the same as for an expired or never-written key.
func (f *FlowCache) Consume(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.c.Get(key)
	if !ok {
		return nil, false
	}
	f.c.Delete(key)
	return v, true
}
