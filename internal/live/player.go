package live

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdumair1-a11y/EchoSave/internal/audio"
	"github.com/gen2brain/malgo"
)

// devicePlayer plays scheduled clips through a playback device. The
// scheduler hands clips over in timeline order with back-to-back start
// times, so a FIFO queue drained in real time realizes the schedule; the
// device emits silence whenever the queue is empty.
type devicePlayer struct {
	dev audio.Device

	mu    sync.Mutex
	queue []*queuedClip
}

type queuedClip struct {
	data   []byte
	offset int
	// stopped is atomic: Stop arrives from the download-flow goroutine
	// while fill reads it on the audio callback thread.
	stopped atomic.Bool
}

// Stop cuts the remainder of the clip; already-played samples are gone.
func (c *queuedClip) Stop() {
	c.stopped.Store(true)
}

// NewDevicePlayer allocates and starts a mono S16LE playback device at the
// given sample rate.
func NewDevicePlayer(ctx context.Context, sampleRate int) (Player, func(context.Context), error) {
	p := &devicePlayer{
		dev: audio.NewDevice(&audio.DeviceConfig{
			Format:           malgo.FormatS16,
			PlaybackChannels: 1,
			SampleRate:       sampleRate,
		}),
	}

	if err := p.dev.Playback(ctx, p.fill); err != nil {
		return nil, nil, fmt.Errorf("failed to allocate playback device: %w", err)
	}

	if err := p.dev.Start(ctx); err != nil {
		p.dev.Dealloc(ctx)
		return nil, nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	release := func(ctx context.Context) {
		_ = p.dev.Stop(ctx)
		p.dev.Dealloc(ctx)
	}

	return p, release, nil
}

// PlayAt enqueues the clip. The start time is realized by queue position:
// the scheduler never hands over a clip starting before the tail of the
// queue.
func (p *devicePlayer) PlayAt(start time.Time, pcm []byte) (PlaybackHandle, error) {
	clip := &queuedClip{data: pcm}

	p.mu.Lock()
	p.queue = append(p.queue, clip)
	p.mu.Unlock()

	return clip, nil
}

// fill is the device data callback. Unwritten bytes play as silence.
func (p *devicePlayer) fill(out []byte, frameCount uint32) {
	for i := range out {
		out[i] = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	written := 0
	for written < len(out) && len(p.queue) > 0 {
		clip := p.queue[0]
		if clip.stopped.Load() || clip.offset >= len(clip.data) {
			p.queue = p.queue[1:]
			continue
		}

		n := copy(out[written:], clip.data[clip.offset:])
		clip.offset += n
		written += n
	}
}
