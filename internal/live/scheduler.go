package live

import (
	"fmt"
	"sync"
	"time"
)

// PlaybackHandle refers to one scheduled clip so it can be cut short.
type PlaybackHandle interface {
	Stop()
}

// Player begins playback of a PCM clip at a given instant.
type Player interface {
	PlayAt(start time.Time, pcm []byte) (PlaybackHandle, error)
}

type scheduledClip struct {
	handle PlaybackHandle
	end    time.Time
}

// Scheduler places synthesized clips on a cursor-based timeline: each clip
// starts at max(now, cursor), never in the past and never overlapping the
// previous clip, which yields gapless sequential playback even when clips
// arrive asynchronously and out of sync with generation.
type Scheduler struct {
	player Player
	rate   int
	clock  func() time.Time

	mu      sync.Mutex
	cursor  time.Time
	pending []scheduledClip
}

// NewScheduler creates a scheduler for mono S16LE clips at the given
// sample rate.
func NewScheduler(player Player, sampleRate int, clock func() time.Time) *Scheduler {
	if clock == nil {
		clock = time.Now
	}

	return &Scheduler{
		player: player,
		rate:   sampleRate,
		clock:  clock,
	}
}

// Schedule queues one clip and advances the cursor by its duration.
// Returns the start time the clip was scheduled at.
func (s *Scheduler) Schedule(pcm []byte) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.dropFinishedLocked(now)

	start := now
	if s.cursor.After(now) {
		start = s.cursor
	}

	handle, err := s.player.PlayAt(start, pcm)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to schedule clip: %w", err)
	}

	duration := PCMDuration(len(pcm), s.rate)
	s.cursor = start.Add(duration)
	s.pending = append(s.pending, scheduledClip{handle: handle, end: s.cursor})

	return start, nil
}

// Interrupt stops every scheduled clip, clears the scheduled set, and
// resets the cursor to now, so the next clip starts no earlier than the
// moment of interruption.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clip := range s.pending {
		clip.handle.Stop()
	}

	s.pending = nil
	s.cursor = s.clock()
}

// Pending returns the number of clips still scheduled or playing.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropFinishedLocked(s.clock())

	return len(s.pending)
}

// Cursor returns the next available start time.
func (s *Scheduler) Cursor() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursor
}

func (s *Scheduler) dropFinishedLocked(now time.Time) {
	keep := s.pending[:0]
	for _, clip := range s.pending {
		if clip.end.After(now) {
			keep = append(keep, clip)
		}
	}
	s.pending = keep
}

// PCMDuration returns the playback duration of n bytes of mono S16LE audio
// at the given sample rate.
func PCMDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}

	samples := n / 2

	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
