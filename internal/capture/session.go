// Package capture owns the microphone handle and the periodic
// chunk-emission loop feeding the fragment ring.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gdumair1-a11y/EchoSave/internal/audio"
	"github.com/gdumair1-a11y/EchoSave/internal/buffer"
	"github.com/gdumair1-a11y/EchoSave/pkg/channels"
)

// ErrDeviceUnavailable indicates the microphone could not be acquired:
// no device present or permission denied.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// Config holds capture session settings.
type Config struct {
	// ChunkInterval is the cadence at which buffered sample bytes are cut
	// into one fragment. Defaults to one second.
	ChunkInterval time.Duration

	// Clock overrides the time source for fragment timestamps. Defaults to
	// time.Now.
	Clock func() time.Time

	// Monitor, if set, receives a copy of every device packet. Sends are
	// non-blocking; a slow monitor drops packets, never the recording.
	Monitor chan<- audio.DataPacket
}

// Session feeds timestamped audio fragments from a capture device into a
// ring. It is independent of any consumer: it appends and prunes, nothing
// else.
type Session struct {
	conf  Config
	dev   audio.Device
	ring  *buffer.Ring
	keep  KeepAwake
	clock func() time.Time

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

// NewSession creates a capture session writing into ring. The device and
// keep-awake strategy are injected so sessions can run against fakes.
func NewSession(conf Config, dev audio.Device, ring *buffer.Ring, keep KeepAwake) *Session {
	if conf.ChunkInterval <= 0 {
		conf.ChunkInterval = time.Second
	}

	clock := conf.Clock
	if clock == nil {
		clock = time.Now
	}

	if keep == nil {
		keep = NoopKeepAwake()
	}

	return &Session{
		conf:  conf,
		dev:   dev,
		ring:  ring,
		keep:  keep,
		clock: clock,
	}
}

// Start acquires the capture device and begins emitting one fragment per
// chunk interval until Stop is called. Partial acquisition is rolled back:
// if any step fails, every sub-resource acquired so far is released before
// the error is returned.
func (s *Session) Start(ctx context.Context) error {
	if s.started {
		return errors.New("capture session already started")
	}

	ctx, cancel := context.WithCancel(ctx)

	dataC := make(chan audio.DataPacket, 64)
	if err := s.dev.CaptureInto(ctx, dataC); err != nil {
		cancel()
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	if err := s.dev.Start(ctx); err != nil {
		s.dev.Dealloc(ctx)
		cancel()
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	if err := s.keep.Start(ctx); err != nil {
		// The heartbeat is a platform nicety, not a recording dependency.
		slog.Warn("keep-awake unavailable, continuing without it", "error", err)
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true

	go s.run(ctx, dataC)

	return nil
}

// run accumulates device packets and cuts one fragment per tick. It owns
// the pending byte buffer; nothing else touches it.
func (s *Session) run(ctx context.Context, dataC <-chan audio.DataPacket) {
	defer close(s.done)

	ticker := time.NewTicker(s.conf.ChunkInterval)
	defer ticker.Stop()

	var pending []byte

	flush := func() {
		if len(pending) == 0 {
			return
		}

		payload := make([]byte, len(pending))
		copy(payload, pending)
		pending = pending[:0]

		now := s.clock()
		s.ring.Append(buffer.Fragment{Payload: payload, CapturedAt: now})
		s.ring.Prune(now)
	}

	for {
		select {
		case packet := <-dataC:
			pending = append(pending, packet...)

			if s.conf.Monitor != nil {
				_ = channels.SendNonBlock(s.conf.Monitor, packet)
			}

		case <-ticker.C:
			flush()

		case <-ctx.Done():
			flush()
			return
		}
	}
}

// Stop releases the device handle deterministically. It is idempotent and
// safe to call even if Start failed partway.
func (s *Session) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}

		if s.done != nil {
			<-s.done
		}

		if err := s.dev.Stop(ctx); err != nil {
			slog.Warn("failed to stop capture device", "error", err)
		}
		s.dev.Dealloc(ctx)

		s.keep.Stop(ctx)
	})
}

// Active reports whether the session has started and not yet stopped.
func (s *Session) Active() bool {
	if !s.started {
		return false
	}

	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
