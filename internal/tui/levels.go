package tui

import (
	"context"
	"sync"

	"github.com/gdumair1-a11y/EchoSave/internal/audio"
)

// LevelMonitor keeps the most recent device packet as int16 samples for the
// waveform. It implements uictl.Levels[int16].
type LevelMonitor struct {
	mu      sync.Mutex
	samples []int16
}

// NewLevelMonitor creates an empty level monitor.
func NewLevelMonitor() *LevelMonitor {
	return &LevelMonitor{}
}

// Run consumes packets until the channel closes or the context is done.
// Intended to run in its own goroutine, subscribed to the capture broadcast.
func (m *LevelMonitor) Run(ctx context.Context, packets <-chan audio.DataPacket) {
	for {
		select {
		case packet, ok := <-packets:
			if !ok {
				return
			}

			samples := audio.BytesToInt16(packet)

			m.mu.Lock()
			m.samples = samples
			m.mu.Unlock()

		case <-ctx.Done():
			return
		}
	}
}

// Read returns the samples of the most recent packet.
func (m *LevelMonitor) Read() []int16 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.samples
}
