// Package buffer implements the rolling window of captured audio fragments.
package buffer

import (
	"sort"
	"sync"
	"time"
)

// Fragment is one timestamped unit of captured audio. Immutable once created.
type Fragment struct {
	Payload    []byte
	CapturedAt time.Time
}

// Ring holds fragments in capture order, bounded by a maximum age rather
// than a count. Age-based eviction keeps the retroactive-save window's
// real-world duration accurate even when chunk cadence drifts (device
// stalls, process backgrounding).
type Ring struct {
	window time.Duration
	frags  []Fragment
	mu     sync.Mutex
}

// NewRing creates a ring retaining fragments no older than window.
func NewRing(window time.Duration) *Ring {
	return &Ring{window: window}
}

// Window returns the configured retention window.
func (r *Ring) Window() time.Duration {
	return r.window
}

// Append inserts a fragment at the tail. The caller guarantees
// non-decreasing CapturedAt timestamps across calls.
func (r *Ring) Append(f Fragment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frags = append(r.frags, f)
}

// Prune removes all fragments with CapturedAt < now - window and returns
// how many were removed. Fragments are time-ordered, so the scan stops at
// the first one still inside the window, bounding the work to the number
// of expired entries.
func (r *Ring) Prune(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pruneLocked(now)
}

func (r *Ring) pruneLocked(now time.Time) int {
	cutoff := now.Add(-r.window)

	idx := 0
	for idx < len(r.frags) && r.frags[idx].CapturedAt.Before(cutoff) {
		idx++
	}

	if idx == 0 {
		return 0
	}

	r.frags = r.frags[idx:]

	return idx
}

// Extract returns the ordered subsequence of fragments with
// CapturedAt >= now - lookback without mutating the ring. Returns nil if
// none qualify.
func (r *Ring) Extract(now time.Time, lookback time.Duration) []Fragment {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-lookback)

	// Fragments are time-ordered, so the qualifying suffix starts at the
	// first fragment not before the cutoff.
	idx := sort.Search(len(r.frags), func(i int) bool {
		return !r.frags[i].CapturedAt.Before(cutoff)
	})

	if idx == len(r.frags) {
		return nil
	}

	out := make([]Fragment, len(r.frags)-idx)
	copy(out, r.frags[idx:])

	return out
}

// SizeSeconds reports the buffer's effective duration for display: the
// wall-clock span from the oldest retained fragment to now. It prunes as a
// side effect, so callers must not assume it is read-only.
func (r *Ring) SizeSeconds(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)

	if len(r.frags) == 0 {
		return 0
	}

	return int(now.Sub(r.frags[0].CapturedAt).Seconds())
}

// Len returns the number of retained fragments.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.frags)
}
