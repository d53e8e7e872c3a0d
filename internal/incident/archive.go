package incident

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gdumair1-a11y/EchoSave/internal/analysis"
)

// Archive persists incidents to a directory so they survive the process.
// Each incident is two files: <id>.pcm with the raw audio and <id>.json
// with the metadata and, once attached, the analysis report.
type Archive struct {
	dir string
}

// metadata is the on-disk JSON shape next to the raw audio.
type metadata struct {
	ID              string           `json:"id"`
	CreatedAt       time.Time        `json:"createdAt"`
	DurationSeconds int              `json:"durationSeconds"`
	Analysis        *analysis.Result `json:"analysis,omitempty"`
}

// NewArchive creates an archive rooted at dir. The directory must exist.
func NewArchive(dir string) *Archive {
	return &Archive{dir: dir}
}

// Write stores the incident's audio and metadata, overwriting any previous
// version. Called again after analysis attaches to persist the report.
func (a *Archive) Write(inc *Incident) error {
	audioPath := filepath.Join(a.dir, inc.ID+".pcm")
	if err := os.WriteFile(audioPath, inc.Audio, 0644); err != nil {
		return fmt.Errorf("failed to write incident audio: %w", err)
	}

	meta := metadata{
		ID:              inc.ID,
		CreatedAt:       inc.CreatedAt,
		DurationSeconds: inc.DurationSeconds,
		Analysis:        inc.Analysis,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal incident metadata: %w", err)
	}

	metaPath := filepath.Join(a.dir, inc.ID+".json")
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write incident metadata: %w", err)
	}

	return nil
}

// Read loads one archived incident by id.
func (a *Archive) Read(id string) (*Incident, error) {
	data, err := os.ReadFile(filepath.Join(a.dir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read incident metadata: %w", err)
	}

	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse incident metadata: %w", err)
	}

	audio, err := os.ReadFile(filepath.Join(a.dir, id+".pcm"))
	if err != nil {
		return nil, fmt.Errorf("failed to read incident audio: %w", err)
	}

	return &Incident{
		ID:              meta.ID,
		CreatedAt:       meta.CreatedAt,
		DurationSeconds: meta.DurationSeconds,
		Audio:           audio,
		Analysis:        meta.Analysis,
	}, nil
}

// Remove deletes both files of an archived incident. A missing incident is
// not an error.
func (a *Archive) Remove(id string) error {
	for _, name := range []string{id + ".pcm", id + ".json"} {
		if err := os.Remove(filepath.Join(a.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}

	return nil
}

// IDs lists archived incident ids, in directory order.
func (a *Archive) IDs() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if filepath.Ext(name) == ".json" {
			ids = append(ids, name[:len(name)-len(".json")])
		}
	}

	return ids, nil
}
