package tui_test

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gdumair1-a11y/EchoSave/internal/tui"
	"github.com/stretchr/testify/require"
)

type fakeKnob struct{ on bool }

func (k *fakeKnob) Read() bool { return k.on }
func (k *fakeKnob) On()        { k.on = true }
func (k *fakeKnob) Off()       { k.on = false }
func (k *fakeKnob) Toggle()    { k.on = !k.on }

type fakeDial struct{ current, max int }

func (d *fakeDial) Read() int       { return d.current }
func (d *fakeDial) Cap() (int, int) { return d.current, d.max }

type fakeLevels struct{ samples []int16 }

func (l *fakeLevels) Read() []int16 { return l.samples }

// fakeStore backs the screen's incident callbacks.
type fakeStore struct {
	incidents  []tui.IncidentSummary
	analyzeErr error
}

func (s *fakeStore) controls(live *fakeKnob) tui.Controls {
	return tui.Controls{
		BufferFill: &fakeDial{current: 900, max: 1800},
		Live:       live,
		Levels:     &fakeLevels{},
		Save: func() (tui.IncidentSummary, error) {
			incident := tui.IncidentSummary{
				ID:        "incident-1",
				CreatedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
				Seconds:   300,
			}
			s.incidents = append([]tui.IncidentSummary{incident}, s.incidents...)
			return incident, nil
		},
		Analyze: func(id string) (tui.IncidentSummary, error) {
			if s.analyzeErr != nil {
				return tui.IncidentSummary{}, s.analyzeErr
			}
			for i := range s.incidents {
				if s.incidents[i].ID == id {
					s.incidents[i].Threat = "High"
					return s.incidents[i], nil
				}
			}
			return tui.IncidentSummary{}, errors.New("not found")
		},
		Export: func(id string) (string, error) { return "/tmp/" + id + ".mp3", nil },
		Delete: func(id string) error {
			kept := s.incidents[:0]
			for _, incident := range s.incidents {
				if incident.ID != id {
					kept = append(kept, incident)
				}
			}
			s.incidents = kept
			return nil
		},
		List: func() []tui.IncidentSummary {
			out := make([]tui.IncidentSummary, len(s.incidents))
			copy(out, s.incidents)
			return out
		},
		Transcript: func() string { return "" },
	}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// drive applies a key press and then feeds the resulting command's message
// back into the model, the way the bubbletea runtime would.
func drive(t *testing.T, m tea.Model, msg tea.Msg) tea.Model {
	t.Helper()

	m, cmd := m.Update(msg)
	if cmd != nil {
		if next := cmd(); next != nil {
			if _, ok := next.(tea.QuitMsg); !ok {
				m, _ = m.Update(next)
			}
		}
	}

	return m
}

func TestModel_SaveAddsIncident(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	m := tea.Model(tui.New(tui.Config{Controls: store.controls(&fakeKnob{})}))

	m = drive(t, m, keyPress('s'))

	view := m.View()
	require.Contains(t, view, "12:00:00")
	require.Contains(t, view, "unanalyzed")
	require.Contains(t, view, "saved incident")
}

func TestModel_AnalyzeAttachesThreat(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	m := tea.Model(tui.New(tui.Config{Controls: store.controls(&fakeKnob{})}))

	m = drive(t, m, keyPress('s'))
	m = drive(t, m, keyPress('a'))

	require.Contains(t, m.View(), "High")
}

func TestModel_AnalyzeFailureShowsError(t *testing.T) {
	t.Parallel()

	store := &fakeStore{analyzeErr: errors.New("no network")}
	m := tea.Model(tui.New(tui.Config{Controls: store.controls(&fakeKnob{})}))

	m = drive(t, m, keyPress('s'))
	m = drive(t, m, keyPress('a'))

	view := m.View()
	require.Contains(t, view, "analysis failed")
	require.Contains(t, view, "no network")
}

func TestModel_DeleteRemovesIncident(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	m := tea.Model(tui.New(tui.Config{Controls: store.controls(&fakeKnob{})}))

	m = drive(t, m, keyPress('s'))
	m = drive(t, m, keyPress('d'))

	require.Contains(t, m.View(), "no saved incidents")
}

func TestModel_LiveToggle(t *testing.T) {
	t.Parallel()

	live := &fakeKnob{}
	store := &fakeStore{}
	m := tea.Model(tui.New(tui.Config{Controls: store.controls(live)}))

	m = drive(t, m, keyPress('l'))
	require.True(t, live.on)
	require.Contains(t, m.View(), "live")

	m = drive(t, m, keyPress('l'))
	require.False(t, live.on)
}

// brokenKnob refuses to turn on, the way a live session does when its
// transport dial fails.
type brokenKnob struct{}

func (brokenKnob) Read() bool { return false }
func (brokenKnob) On()        {}
func (brokenKnob) Off()       {}
func (brokenKnob) Toggle()    {}

func TestModel_LiveToggleFailureShowsError(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	controls := store.controls(&fakeKnob{})
	controls.Live = brokenKnob{}
	controls.LiveErr = func() error { return errors.New("streaming transport failure: connection refused") }

	m := tea.Model(tui.New(tui.Config{Controls: controls}))

	m = drive(t, m, keyPress('l'))

	view := m.View()
	require.Contains(t, view, "live commentary failed")
	require.Contains(t, view, "connection refused")
}

func TestModel_ViewShowsBufferFill(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	m := tui.New(tui.Config{Controls: store.controls(&fakeKnob{})})

	require.Contains(t, m.View(), "15:00 / 30:00 buffered")
}

func TestModel_AnalyzeWithoutIncidentsIsNoop(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	m := tea.Model(tui.New(tui.Config{Controls: store.controls(&fakeKnob{})}))

	_, cmd := m.Update(keyPress('a'))
	require.Nil(t, cmd)
}
