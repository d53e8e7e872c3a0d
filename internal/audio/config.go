package audio

import (
	"github.com/gen2brain/malgo"
)

// Processing holds the input-processing toggles requested for the capture
// source. The miniaudio backend implements none of the three stages, so the
// toggles are recorded with the device allocation log line and otherwise
// advisory; a backend that does implement a stage reads its toggle here.
type Processing struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// DefaultProcessing enables all three input-processing stages.
func DefaultProcessing() Processing {
	return Processing{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

type DeviceConfig struct {
	Format           malgo.FormatType
	CaptureChannels  int
	PlaybackChannels int
	SampleRate       int
	Processing       Processing
}
