// Package throttle limits requests per client with token buckets.
package throttle

import (
	"context"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultIdleTTL       = 10 * time.Minute
	defaultSweepInterval = time.Minute
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle grants each client perMinute requests per minute, refilled
// continuously, with a burst of perMinute.
// It is safe for concurrent use.
type Throttle struct {
	perMinute     int
	limit         rate.Limit
	idleTTL       time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New builds a Throttle. perMinute <= 0 yields a Throttle that allows everything.
func New(perMinute int, opts ...Option) *Throttle {
	t := &Throttle{
		perMinute:     perMinute,
		idleTTL:       defaultIdleTTL,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		buckets:       make(map[string]*bucket),
	}
	if perMinute > 0 {
		t.limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enabled reports whether the throttle limits anything.
func (t *Throttle) Enabled() bool {
	return t != nil && t.perMinute > 0
}

// Allow consumes one token for key.
func (t *Throttle) Allow(key string) Decision {
	if !t.Enabled() {
		return Decision{Allowed: true}
	}
	now := t.now()

	t.mu.Lock()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(t.limit, t.perMinute)}
		t.buckets[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	t.mu.Unlock()

	d := Decision{
		Allowed:   allowed,
		Limit:     t.perMinute,
		Remaining: max(0, int(math.Floor(tokens))),
	}
	if !allowed {
		missing := 1 - tokens
		d.RetryAfter = time.Duration(missing / float64(t.limit) * float64(time.Second))
	}
	return d
}

// Len reports how many clients are tracked.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}

// Sweep drops clients idle for longer than the idle TTL and returns how many
// were removed.
func (t *Throttle) Sweep() int {
	cutoff := t.now().Add(-t.idleTTL)

	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for key, b := range t.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(t.buckets, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle clients until ctx is done.
func (t *Throttle) Run(ctx context.Context) {
	if !t.Enabled() {
		return
	}
	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

// ClientKey identifies the caller by remote IP. Run it after a real-IP
// middleware when the service sits behind a proxy.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
