// Package export writes saved incident audio out as playable files.
package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
	"github.com/gdumair1-a11y/EchoSave/internal/audio"
	"github.com/gdumair1-a11y/EchoSave/internal/incident"
)

// WriteMP3 encodes mono S16LE PCM to MP3 and writes it to w.
func WriteMP3(w io.Writer, pcm []byte, sampleRate int) error {
	monoSamples := audio.BytesToInt16(pcm)
	if len(monoSamples) == 0 {
		return errors.New("no audio samples to encode")
	}

	// WORKAROUND: shine-mp3 Write() mishandles mono (always advances by
	// samples_per_pass * 2). Duplicate mono to stereo (L=R).
	stereoSamples := make([]int16, len(monoSamples)*2)
	for i, sample := range monoSamples {
		stereoSamples[i*2] = sample
		stereoSamples[i*2+1] = sample
	}

	encoder := mp3encoder.NewEncoder(sampleRate, 2)

	if err := encoder.Write(w, stereoSamples); err != nil {
		return fmt.Errorf("failed to encode MP3: %w", err)
	}

	return nil
}

// FileName returns the export file name for an incident.
func FileName(inc *incident.Incident) string {
	return fmt.Sprintf("echosave-%s-%s.mp3",
		inc.CreatedAt.Format("20060102-150405"), shortID(inc.ID))
}

// SaveToFile writes the incident's combined audio as an MP3 file at path.
func SaveToFile(path string, inc *incident.Incident, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close export file", "error", err)
		}
	}()

	if err := WriteMP3(f, inc.Audio, sampleRate); err != nil {
		return err
	}

	slog.Info("incident exported", "path", path, "seconds", inc.DurationSeconds)

	return nil
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}

	return id[:8]
}
