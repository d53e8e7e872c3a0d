package capture

import (
	"context"
	"fmt"

	"github.com/gdumair1-a11y/EchoSave/internal/audio"
	"github.com/gen2brain/malgo"
)

// KeepAwake keeps the host process from being suspended by the platform's
// background-throttling policy while a capture session is active. Platforms
// without this concern provide the no-op implementation.
type KeepAwake interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

// NoopKeepAwake returns a KeepAwake that does nothing.
func NoopKeepAwake() KeepAwake {
	return noopKeepAwake{}
}

type noopKeepAwake struct{}

func (noopKeepAwake) Start(ctx context.Context) error { return nil }
func (noopKeepAwake) Stop(ctx context.Context)       {}

// silentLoop holds a continuously-looping near-silent playback device open
// as a heartbeat. The OS treats the process as actively playing audio and
// exempts it from throttling.
type silentLoop struct {
	dev audio.Device
}

// NewSilentLoop creates a KeepAwake backed by a silent playback device.
func NewSilentLoop(sampleRate int) KeepAwake {
	return &silentLoop{
		dev: audio.NewDevice(&audio.DeviceConfig{
			Format:           malgo.FormatS16,
			PlaybackChannels: 1,
			SampleRate:       sampleRate,
		}),
	}
}

func (s *silentLoop) Start(ctx context.Context) error {
	err := s.dev.Playback(ctx, func(out []byte, frameCount uint32) {
		for i := range out {
			out[i] = 0
		}
	})
	if err != nil {
		return fmt.Errorf("failed to allocate keep-awake playback device: %w", err)
	}

	if err := s.dev.Start(ctx); err != nil {
		s.dev.Dealloc(ctx)
		return fmt.Errorf("failed to start keep-awake playback device: %w", err)
	}

	return nil
}

func (s *silentLoop) Stop(ctx context.Context) {
	_ = s.dev.Stop(ctx)
	s.dev.Dealloc(ctx)
}
