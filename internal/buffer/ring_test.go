package buffer_test

import (
	"testing"
	"time"

	"github.com/gdumair1-a11y/EchoSave/internal/buffer"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// fill appends one fragment per second for n seconds, starting at base.
func fill(r *buffer.Ring, n int) time.Time {
	var last time.Time
	for i := 0; i < n; i++ {
		last = base.Add(time.Duration(i) * time.Second)
		r.Append(buffer.Fragment{
			Payload:    []byte{byte(i), byte(i >> 8)},
			CapturedAt: last,
		})
	}
	return last
}

func TestRing_ExtractWindow(t *testing.T) {
	t.Parallel()

	r := buffer.NewRing(30 * time.Minute)
	last := fill(r, 100)
	now := last.Add(500 * time.Millisecond)

	got := r.Extract(now, 10*time.Second)

	// Fragments at t90..t99 are within the trailing 10 seconds.
	require.Len(t, got, 10)
	require.Equal(t, base.Add(90*time.Second), got[0].CapturedAt)
	require.Equal(t, last, got[len(got)-1].CapturedAt)

	for i := 1; i < len(got); i++ {
		require.False(t, got[i].CapturedAt.Before(got[i-1].CapturedAt), "out of order at %d", i)
	}
}

func TestRing_ExtractDoesNotMutate(t *testing.T) {
	t.Parallel()

	r := buffer.NewRing(30 * time.Minute)
	last := fill(r, 50)

	before := r.Len()
	_ = r.Extract(last.Add(time.Second), 10*time.Second)
	require.Equal(t, before, r.Len())
}

func TestRing_ExtractEmpty(t *testing.T) {
	t.Parallel()

	r := buffer.NewRing(30 * time.Minute)
	require.Nil(t, r.Extract(base, 5*time.Minute))
}

func TestRing_ExtractAllStale(t *testing.T) {
	t.Parallel()

	r := buffer.NewRing(30 * time.Minute)
	last := fill(r, 10)

	// Everything is older than the lookback.
	got := r.Extract(last.Add(1*time.Hour), 5*time.Minute)
	require.Nil(t, got)
}

func TestRing_PruneRemovesExpired(t *testing.T) {
	t.Parallel()

	r := buffer.NewRing(60 * time.Second)
	last := fill(r, 100)
	now := last.Add(500 * time.Millisecond)

	removed := r.Prune(now)

	// Cutoff is now-60s = t39.5, so t0..t39 are expired.
	require.Equal(t, 40, removed)
	require.Equal(t, 60, r.Len())

	for _, f := range r.Extract(now, r.Window()) {
		require.False(t, f.CapturedAt.Before(now.Add(-r.Window())))
	}
}

func TestRing_PruneIdempotent(t *testing.T) {
	t.Parallel()

	r := buffer.NewRing(60 * time.Second)
	last := fill(r, 100)
	now := last.Add(500 * time.Millisecond)

	first := r.Prune(now)
	require.Positive(t, first)
	require.Zero(t, r.Prune(now))
}

func TestRing_PruneIrregularCadence(t *testing.T) {
	t.Parallel()

	// Gaps from throttling: eviction must trust elapsed time, not count.
	r := buffer.NewRing(5 * time.Minute)
	stamps := []time.Duration{0, 1 * time.Second, 90 * time.Second, 6 * time.Minute, 11 * time.Minute}
	for _, d := range stamps {
		r.Append(buffer.Fragment{Payload: []byte{1}, CapturedAt: base.Add(d)})
	}

	now := base.Add(11 * time.Minute)
	r.Prune(now)

	// Only the 6m and 11m fragments are within the trailing 5 minutes.
	require.Equal(t, 2, r.Len())
}

func TestRing_SizeSecondsCapsAtWindow(t *testing.T) {
	t.Parallel()

	// One fragment per second for 40 minutes with a
	// 30-minute cap reports an 1800-second buffer.
	r := buffer.NewRing(30 * time.Minute)
	last := fill(r, 40*60)
	now := last.Add(time.Second)

	require.Equal(t, 1800, r.SizeSeconds(now))
}

func TestRing_SizeSecondsPrunesAsSideEffect(t *testing.T) {
	t.Parallel()

	r := buffer.NewRing(60 * time.Second)
	last := fill(r, 100)

	before := r.Len()
	_ = r.SizeSeconds(last.Add(time.Second))
	require.Less(t, r.Len(), before)
}

func TestRing_SizeSecondsEmpty(t *testing.T) {
	t.Parallel()

	r := buffer.NewRing(30 * time.Minute)
	require.Zero(t, r.SizeSeconds(base))
}
