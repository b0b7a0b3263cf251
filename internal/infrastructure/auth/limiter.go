package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// LimiterPool is a per-identity token-bucket pool. Idle buckets are evicted
// after ttl by a background loop started on first use.
type LimiterPool struct {
	rps   float64
	burst int

	mu            sync.Mutex
	m             map[string]*limiterEntry
	startCleanup  sync.Once
	ttl           time.Duration
	cleanupPeriod time.Duration
	now           func() time.Time
}

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

func NewLimiterPool(rps float64, burst int) *LimiterPool {
	if burst <= 0 {
		burst = 1
	}
	return &LimiterPool{
		rps:           rps,
		burst:         burst,
		m:             make(map[string]*limiterEntry),
		ttl:           10 * time.Minute,
		cleanupPeriod: time.Minute,
		now:           time.Now,
	}
}

// Allow takes one token from key's bucket.
func (p *LimiterPool) Allow(key string) bool {
	return p.get(key).AllowN(p.now(), 1)
}

func (p *LimiterPool) get(key string) *rate.Limiter {
	p.startCleanup.Do(func() { go p.cleanupLoop() })

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.m[key]; ok {
		e.lastSeen = p.now()
		return e.l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: p.now()}
	return l
}

func (p *LimiterPool) cleanupLoop() {
	t := time.NewTicker(p.cleanupPeriod)
	defer t.Stop()
	for range t.C {
		p.evictIdle()
	}
}

func (p *LimiterPool) evictIdle() {
	cutoff := p.now().Add(-p.ttl)
	p.mu.Lock()
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
		}
	}
	p.mu.Unlock()
}

// RateLimit rejects requests with 429 once the caller's identity (or client
// IP for anonymous requests) runs out of tokens. onReject may be nil.
func RateLimit(pool *LimiterPool, onReject func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id, ok := IdentityFrom(c); ok {
			key = id.String()
		}
		if !pool.Allow(key) {
			if onReject != nil {
				onReject()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
