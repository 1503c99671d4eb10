// Package dedupe tracks recently admitted upload fingerprints. Entries live
// for a configured TTL (the same window the admission time check allows), so
// a replayed duplicate is blocked for exactly as long as it could still pass
// validation. The cache is not durable; a restart forgets everything, which
// the time-window check makes acceptable.
package dedupe

import (
	"context"
	"sync"
	"time"
)

// Deduper records admitted fingerprints for the duration of the window.
type Deduper interface {
	// SeenAndRecord atomically checks whether fingerprint is live in the
	// window and records it if not. Returns true if it was already present.
	SeenAndRecord(ctx context.Context, fingerprint string) bool

	// Unrecord drops a fingerprint, re-opening the window for it. Used when
	// an upload was recorded but failed before persisting.
	Unrecord(ctx context.Context, fingerprint string)

	// Size returns the number of live entries.
	Size() int64
}

// Default configuration.
const (
	defaultTTL           = 300 * time.Second
	defaultSweepInterval = 30 * time.Second
)

// TTLDeduper implements Deduper with a time-expiring key set. It is
// constructed per service instance and passed by reference; there is no
// package-level singleton.
type TTLDeduper struct {
	mu            sync.Mutex
	expiry        map[string]time.Time
	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

// NewTTLDeduper creates a deduper with configuration options.
func NewTTLDeduper(opts ...Option) *TTLDeduper {
	d := &TTLDeduper{
		expiry:        make(map[string]time.Time),
		ttl:           defaultTTL,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord checks and records under one lock, so two concurrent calls
// with the same fingerprint admit at most one.
func (d *TTLDeduper) SeenAndRecord(_ context.Context, fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if deadline, ok := d.expiry[fingerprint]; ok && now.Before(deadline) {
		return true
	}
	d.expiry[fingerprint] = now.Add(d.ttl)
	return false
}

// Unrecord removes a fingerprint regardless of its remaining TTL.
func (d *TTLDeduper) Unrecord(_ context.Context, fingerprint string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.expiry, fingerprint)
}

// Size counts live entries; expired-but-unswept entries are excluded.
func (d *TTLDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var n int64
	for _, deadline := range d.expiry {
		if now.Before(deadline) {
			n++
		}
	}
	return n
}

// Sweep drops expired entries and returns how many were removed.
func (d *TTLDeduper) Sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	removed := 0
	for fingerprint, deadline := range d.expiry {
		if !now.Before(deadline) {
			delete(d.expiry, fingerprint)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is cancelled. Expiry is already enforced
// on read, so the sweep only reclaims memory.
func (d *TTLDeduper) Run(ctx context.Context) {
	ticker := time.NewTicker(d.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep()
		}
	}
}
