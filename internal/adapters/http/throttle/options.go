package throttle

import "time"

// Option applies a configuration option to the Throttle.
type Option func(*Throttle)

// WithIdleTTL sets how long an idle client's bucket is kept.
func WithIdleTTL(ttl time.Duration) Option {
	return func(t *Throttle) {
		if ttl > 0 {
			t.idleTTL = ttl
		}
	}
}

// WithSweepInterval sets how often Run evicts idle clients.
func WithSweepInterval(d time.Duration) Option {
	return func(t *Throttle) {
		if d > 0 {
			t.sweepInterval = d
		}
	}
}

// WithNow overrides the time source.
func WithNow(now func() time.Time) Option {
	return func(t *Throttle) {
		if now != nil {
			t.now = now
		}
	}
}
