// Package tui renders the guard screen: buffer fill, microphone waveform,
// saved incidents and the live commentary transcript.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/stopwatch"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gdumair1-a11y/EchoSave/internal/tui/components/labeledspinner"
	"github.com/gdumair1-a11y/EchoSave/internal/tui/components/waveform"
	"github.com/gdumair1-a11y/EchoSave/internal/tui/style"
)

// Config holds the dependencies of the guard screen.
type Config struct {
	Controls Controls
	// Cancel stops the background recording machinery on quit.
	Cancel context.CancelFunc
	// TranscriptLines caps the transcript tail shown on screen.
	TranscriptLines int
}

// refreshMsg drives the periodic re-read of buffer fill and transcript.
type refreshMsg struct{}

type savedMsg struct {
	incident IncidentSummary
	err      error
}

type analyzedMsg struct {
	id       string
	incident IncidentSummary
	err      error
}

type exportedMsg struct {
	id   string
	path string
	err  error
}

type deletedMsg struct {
	id string
}

// Model is the bubbletea model for the guard screen.
type Model struct {
	config Config
	keys   KeyMap

	waveform     waveform.Model
	progress     progress.Model
	stopwatch    stopwatch.Model
	analyzeSpin  labeledspinner.Model
	incidents    []IncidentSummary
	selected     int
	analyzing    map[string]bool
	status       string
	transcript   string
	windowWidth  int
	windowHeight int
}

// New creates the guard screen model.
func New(config Config) *Model {
	if config.TranscriptLines <= 0 {
		config.TranscriptLines = 6
	}

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &Model{
		config:      config,
		keys:        DefaultKeyMap(),
		waveform:    waveform.New(config.Controls.Levels, 40, 2),
		progress:    p,
		stopwatch:   stopwatch.NewWithInterval(time.Second),
		analyzeSpin: labeledspinner.New(spinner.Points, "Analyzing incident", "", ""),
		analyzing:   map[string]bool{},
		incidents:   config.Controls.List(),
	}
}

// Init starts the stopwatch, waveform and refresh ticks.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.stopwatch.Init(),
		m.stopwatch.Start(),
		m.waveform.Init(),
		m.analyzeSpin.Init(),
		refreshTick(),
	)
}

func refreshTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(_ time.Time) tea.Msg {
		return refreshMsg{}
	})
}

// Update handles all messages.
func (m *Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := teaMsg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height

	case tea.KeyMsg:
		return m.updateKey(msg)

	case refreshMsg:
		if m.config.Controls.Transcript != nil {
			m.transcript = m.config.Controls.Transcript()
		}
		cmds = append(cmds, refreshTick())

	case savedMsg:
		if msg.err != nil {
			m.status = style.Error.Render("save failed: " + msg.err.Error())
		} else {
			m.incidents = m.config.Controls.List()
			m.status = style.Success.Render("saved " + shortID(msg.incident.ID))
		}

	case analyzedMsg:
		delete(m.analyzing, msg.id)
		if msg.err != nil {
			m.status = style.Error.Render("analysis failed: " + msg.err.Error())
		} else {
			m.incidents = m.config.Controls.List()
			m.status = style.Success.Render(fmt.Sprintf("analysis done: %s threat", msg.incident.Threat))
		}

	case exportedMsg:
		if msg.err != nil {
			m.status = style.Error.Render("export failed: " + msg.err.Error())
		} else {
			m.status = style.Success.Render("exported to " + msg.path)
		}

	case deletedMsg:
		m.incidents = m.config.Controls.List()
		if m.selected >= len(m.incidents) && m.selected > 0 {
			m.selected--
		}
		m.status = style.Muted.Render("deleted " + shortID(msg.id))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.analyzeSpin, cmd = m.analyzeSpin.Update(msg)
		cmds = append(cmds, cmd)

	case stopwatch.TickMsg, stopwatch.StartStopMsg:
		var cmd tea.Cmd
		m.stopwatch, cmd = m.stopwatch.Update(msg)
		cmds = append(cmds, cmd)

	case waveform.TickMsg:
		var cmd tea.Cmd
		m.waveform, cmd = m.waveform.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model) //nolint:forcetypeassert // progress.Model always returns progress.Model
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit), key.Matches(msg, m.keys.Quit):
		if m.config.Cancel != nil {
			m.config.Cancel()
		}

		return m, tea.Quit

	case key.Matches(msg, m.keys.Save):
		save := m.config.Controls.Save

		return m, func() tea.Msg {
			incident, err := save()
			return savedMsg{incident: incident, err: err}
		}

	case key.Matches(msg, m.keys.Live):
		wasOn := m.config.Controls.Live.Read()
		m.config.Controls.Live.Toggle()

		switch {
		case m.config.Controls.Live.Read():
			m.status = style.Success.Render("live commentary on")
		case !wasOn:
			// The toggle asked for on and didn't get it.
			m.status = style.Error.Render("live commentary failed" + m.liveErrDetail())
		default:
			m.status = style.Muted.Render("live commentary off")
		}

		return m, nil

	case key.Matches(msg, m.keys.Analyze):
		incident, ok := m.selectedIncident()
		if !ok || m.analyzing[incident.ID] {
			return m, nil
		}

		m.analyzing[incident.ID] = true
		analyze := m.config.Controls.Analyze
		id := incident.ID

		return m, func() tea.Msg {
			result, err := analyze(id)
			return analyzedMsg{id: id, incident: result, err: err}
		}

	case key.Matches(msg, m.keys.Export):
		incident, ok := m.selectedIncident()
		if !ok {
			return m, nil
		}

		export := m.config.Controls.Export
		id := incident.ID

		return m, func() tea.Msg {
			path, err := export(id)
			return exportedMsg{id: id, path: path, err: err}
		}

	case key.Matches(msg, m.keys.Delete):
		incident, ok := m.selectedIncident()
		if !ok {
			return m, nil
		}

		remove := m.config.Controls.Delete
		id := incident.ID

		return m, func() tea.Msg {
			_ = remove(id)
			return deletedMsg{id: id}
		}

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}

		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.incidents)-1 {
			m.selected++
		}

		return m, nil
	}

	return m, nil
}

func (m *Model) liveErrDetail() string {
	if m.config.Controls.LiveErr == nil {
		return ""
	}

	err := m.config.Controls.LiveErr()
	if err == nil {
		return ""
	}

	return ": " + err.Error()
}

func (m *Model) selectedIncident() (IncidentSummary, bool) {
	if m.selected < 0 || m.selected >= len(m.incidents) {
		return IncidentSummary{}, false
	}

	return m.incidents[m.selected], true
}

// View renders the guard screen.
func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("EchoSave"))
	sb.WriteString(" ")
	sb.WriteString(style.Subtitle.Render("guarding " + m.stopwatch.View()))
	if m.config.Controls.Live.Read() {
		sb.WriteString("  ")
		sb.WriteString(style.Success.Render("● live"))
	}
	sb.WriteString("\n\n")

	sb.WriteString(m.waveform.View())
	sb.WriteString("\n\n")

	sb.WriteString(m.viewBuffer())
	sb.WriteString("\n\n")

	sb.WriteString(m.viewIncidents())

	if transcript := m.transcriptTail(); transcript != "" {
		sb.WriteString("\n")
		sb.WriteString(style.Viewport.Render(transcript))
		sb.WriteString("\n")
	}

	if m.status != "" {
		sb.WriteString("\n")
		sb.WriteString(m.status)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.viewHelp())

	return sb.String()
}

func (m *Model) viewBuffer() string {
	current, maxValue := m.config.Controls.BufferFill.Cap()

	percent := float64(0)
	if maxValue > 0 {
		percent = float64(current) / float64(maxValue)
	}

	return m.progress.ViewAs(percent) + "\n" +
		style.Subtitle.Render(fmt.Sprintf("%s / %s buffered", formatClock(current), formatClock(maxValue)))
}

func (m *Model) viewIncidents() string {
	if len(m.incidents) == 0 {
		return style.Muted.Render("no saved incidents")
	}

	var sb strings.Builder

	sb.WriteString(style.Label.Render("Incidents"))
	sb.WriteString("\n")

	for i, incident := range m.incidents {
		line := fmt.Sprintf("%s  %s  %s",
			incident.CreatedAt.Format("15:04:05"),
			formatClock(incident.Seconds),
			m.threatBadge(incident))

		if i == m.selected {
			sb.WriteString(style.Selected.Render("> " + line))
		} else {
			sb.WriteString(style.Bullet.Render("• ") + line)
		}
		sb.WriteString("\n")
	}

	if len(m.analyzing) > 0 {
		sb.WriteString("\n")
		sb.WriteString(m.analyzeSpin.Spinner.View())
		sb.WriteString(" ")
		sb.WriteString(style.Progress.Render("analyzing..."))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m *Model) threatBadge(incident IncidentSummary) string {
	if m.analyzing[incident.ID] {
		return style.Progress.Render("analyzing")
	}

	if incident.Threat == "" {
		return style.Muted.Render("unanalyzed")
	}

	return threatStyle(incident.Threat).Render(incident.Threat)
}

func threatStyle(threat string) lipgloss.Style {
	switch threat {
	case "Low":
		return style.ThreatLow
	case "Medium":
		return style.ThreatMedium
	case "High":
		return style.ThreatHigh
	case "Critical":
		return style.ThreatCritical
	default:
		return style.Muted
	}
}

func (m *Model) transcriptTail() string {
	lines := strings.Split(strings.TrimRight(m.transcript, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return ""
	}

	if len(lines) > m.config.TranscriptLines {
		lines = lines[len(lines)-m.config.TranscriptLines:]
	}

	return strings.Join(lines, "\n")
}

func (m *Model) viewHelp() string {
	var sb strings.Builder

	for i, binding := range m.keys.ShortHelp() {
		if i > 0 {
			sb.WriteString("  ")
		}

		sb.WriteString(style.Help.Render("[") +
			style.Key.Render(binding.Help().Key) +
			style.Help.Render("] "+binding.Help().Desc))
	}

	return sb.String()
}

// formatClock renders seconds as mm:ss.
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}

	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}

	return id[:8]
}
