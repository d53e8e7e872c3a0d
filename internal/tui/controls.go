package tui

import (
	"time"

	"github.com/gdumair1-a11y/EchoSave/pkg/uictl"
)

// IncidentSummary is the guard screen's view of one saved incident.
type IncidentSummary struct {
	ID        string
	CreatedAt time.Time
	Seconds   int
	Threat    string // empty until analyzed
	Summary   string
}

// Controls provides read/write access to the recorder, the incident store
// and the live commentary session.
type Controls struct {
	// BufferFill reads buffered seconds against the retention window.
	BufferFill uictl.CappedDial[int]
	// Live toggles the live commentary session.
	Live uictl.Knob
	// LiveErr, if set, reports why the live session is down.
	LiveErr func() error
	// Levels feeds the microphone waveform.
	Levels uictl.Levels[int16]

	Save       func() (IncidentSummary, error)
	Analyze    func(id string) (IncidentSummary, error)
	Export     func(id string) (string, error)
	Delete     func(id string) error
	List       func() []IncidentSummary
	Transcript func() string
}
