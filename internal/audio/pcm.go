package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Float32ToPCM16 converts floating-point samples in [-1, 1] to S16LE bytes.
// Out-of-range samples are clamped rather than wrapped.
func Float32ToPCM16(samples []float32) []byte {
	if len(samples) == 0 {
		return nil
	}

	out := make([]byte, len(samples)*2)

	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}

		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}

		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}

	return out
}

// PCM16ToFloat32 converts S16LE bytes to floating-point samples in [-1, 1].
// A trailing odd byte is ignored.
func PCM16ToFloat32(data []byte) []float32 {
	numSamples := len(data) / 2
	if numSamples == 0 {
		return nil
	}

	out := make([]float32, numSamples)

	for i := 0; i < numSamples; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if v < 0 {
			out[i] = float32(v) / 32768
		} else {
			out[i] = float32(v) / 32767
		}
	}

	return out
}

// BytesToInt16 converts S16LE bytes to int16 samples.
func BytesToInt16(data []byte) []int16 {
	numSamples := len(data) / 2
	if numSamples == 0 {
		return nil
	}

	samples := make([]int16, numSamples)

	for i := 0; i < numSamples; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}

	return samples
}

// EncodePayload encodes raw audio bytes for text-safe transport.
func EncodePayload(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodePayload decodes a text-safe payload back to raw audio bytes.
func DecodePayload(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio payload: %w", err)
	}

	return data, nil
}
