package dedupe

import "time"

// Option applies a configuration option to the TTLDeduper.
type Option func(*TTLDeduper)

// WithTTL sets how long a recorded fingerprint blocks duplicates. This
// should match the admission time-diff tolerance.
func WithTTL(ttl time.Duration) Option {
	return func(d *TTLDeduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithSweepInterval sets the cadence of the background expiry sweep.
func WithSweepInterval(interval time.Duration) Option {
	return func(d *TTLDeduper) {
		if interval > 0 {
			d.sweepInterval = interval
		}
	}
}

// WithClock injects the time source, letting tests advance the window
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(d *TTLDeduper) {
		if now != nil {
			d.now = now
		}
	}
}
