package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gdumair1-a11y/EchoSave/internal/analysis"
	"github.com/gdumair1-a11y/EchoSave/internal/audio"
	"github.com/gdumair1-a11y/EchoSave/internal/buffer"
	"github.com/gdumair1-a11y/EchoSave/internal/capture"
	"github.com/gdumair1-a11y/EchoSave/internal/config"
	"github.com/gdumair1-a11y/EchoSave/internal/export"
	"github.com/gdumair1-a11y/EchoSave/internal/incident"
	"github.com/gdumair1-a11y/EchoSave/internal/keyring"
	"github.com/gdumair1-a11y/EchoSave/internal/live"
	"github.com/gdumair1-a11y/EchoSave/internal/logger"
	"github.com/gdumair1-a11y/EchoSave/internal/tui"
	"github.com/gdumair1-a11y/EchoSave/internal/workdir"
	"github.com/gdumair1-a11y/EchoSave/pkg/channels"
	"github.com/gdumair1-a11y/EchoSave/pkg/collections"
	"github.com/gen2brain/malgo"
)

// CLI defines the echosave command structure.
type CLI struct {
	// Default guard command (runs when no subcommand given)
	Guard GuardCmd `cmd:"" default:"withargs" help:"Start guarding: buffer the microphone and launch the terminal UI"`

	// Subcommands
	Devices DevicesCmd `cmd:"" help:"List available audio devices"`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration"`
	Export  ExportCmd  `cmd:"" help:"Export an archived incident as an MP3 file"`
}

// GuardCmd is the default command that buffers audio and runs the TUI.
type GuardCmd struct {
	Lookback     time.Duration `flag:"" default:"5m" help:"How far back a save reaches"`
	LogFile      string        `flag:"" optional:"" help:"Write structured logs to this file (default: stderr)"`
	GeminiAPIKey string        `flag:"" env:"GEMINI_API_KEY" help:"Gemini API key for incident analysis and live commentary"`
}

// Run executes the guard command.
//
//nolint:funlen // CLI command with multiple setup steps
func (c *GuardCmd) Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// The TUI owns stdout; structured logs go to stderr or a file.
	logSink := os.Stderr
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logSink = f
	}
	logger.SetupLoggerTo(cfg, logSink)

	// Resolve API key: environment variable takes priority, fallback to keychain
	if c.GeminiAPIKey == "" {
		if secret, err := keyring.Get(keyring.Gemini); err == nil {
			c.GeminiAPIKey = secret
		} else {
			slog.Debug("keychain lookup failed", "key", "gemini", "error", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// On-disk layout
	incidentsDir, err := workdir.IncidentsPath()
	if err != nil {
		return err
	}
	exportsDir, err := workdir.ExportsPath()
	if err != nil {
		return err
	}
	for _, dir := range []string{incidentsDir, exportsDir} {
		if err := workdir.Prep(dir); err != nil {
			return err
		}
	}

	// Rolling buffer and capture
	ring := buffer.NewRing(cfg.Window())

	dev := audio.NewDevice(&audio.DeviceConfig{
		Format:          malgo.FormatS16,
		SampleRate:      cfg.SampleRate,
		CaptureChannels: 1,
		Processing:      audio.DefaultProcessing(),
	})

	// Level-meter tap: the capture session publishes packet copies, the
	// monitor goroutine keeps the latest one for the waveform.
	broadcast := channels.NewBroadcaster[audio.DataPacket]()
	levelC := make(chan audio.DataPacket, 8)
	if err := broadcast.Subscribe(levelC); err != nil {
		return err
	}
	monitorC, err := broadcast.Run(ctx)
	if err != nil {
		return err
	}

	levels := tui.NewLevelMonitor()

	wg := sync.WaitGroup{}
	wg.Go(func() {
		levels.Run(ctx, levelC)
	})

	sess := capture.NewSession(capture.Config{
		ChunkInterval: cfg.ChunkInterval(),
		Monitor:       monitorC,
	}, dev, ring, capture.NewSilentLoop(cfg.SampleRate))

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	defer sess.Stop(ctx)

	// Incident storage and analysis
	store := incident.NewStore()
	archive := incident.NewArchive(incidentsDir)
	analyzer := analysis.NewClient(c.GeminiAPIKey, cfg.AnalysisModel, cfg.AnalysisDeadline())

	liveCtl := &liveSwitch{
		ctx: ctx,
		conf: live.Config{
			URL:           cfg.LiveURL,
			APIKey:        c.GeminiAPIKey,
			Model:         cfg.LiveModel,
			CaptureRate:   cfg.SampleRate,
			PlaybackRate:  cfg.PlaybackRate,
			TranscriptMax: cfg.TranscriptMaxBytes,
		},
	}
	defer liveCtl.Off()

	controls := tui.Controls{
		BufferFill: ringDial{ring: ring, windowSeconds: cfg.WindowMinutes * 60},
		Live:       liveCtl,
		LiveErr:    liveCtl.Err,
		Levels:     levels,
		Save: func() (tui.IncidentSummary, error) {
			inc := store.Save(ring, time.Now(), c.Lookback)
			if inc == nil {
				return tui.IncidentSummary{}, errors.New("nothing buffered yet")
			}

			if err := archive.Write(inc); err != nil {
				slog.Warn("failed to archive incident", "id", inc.ID, "error", err)
			}

			slog.Info("incident saved", "id", inc.ID, "seconds", inc.DurationSeconds)

			return toSummary(inc), nil
		},
		Analyze: func(id string) (tui.IncidentSummary, error) {
			inc, ok := store.Get(id)
			if !ok {
				return tui.IncidentSummary{}, fmt.Errorf("incident %s not found", id)
			}

			// The analysis service wants a container format, not raw PCM.
			var encoded bytes.Buffer
			if err := export.WriteMP3(&encoded, inc.Audio, cfg.SampleRate); err != nil {
				return tui.IncidentSummary{}, err
			}

			result, err := analyzer.Analyze(ctx, encoded.Bytes(), "audio/mp3")
			if err != nil {
				return tui.IncidentSummary{}, err
			}

			store.AttachAnalysis(id, result)

			if inc, ok := store.Get(id); ok {
				if err := archive.Write(inc); err != nil {
					slog.Warn("failed to archive analysis", "id", id, "error", err)
				}
				return toSummary(inc), nil
			}

			// Deleted while analysis was in flight.
			return tui.IncidentSummary{}, fmt.Errorf("incident %s no longer exists", id)
		},
		Export: func(id string) (string, error) {
			inc, ok := store.Get(id)
			if !ok {
				return "", fmt.Errorf("incident %s not found", id)
			}

			path := filepath.Join(exportsDir, export.FileName(inc))

			return path, export.SaveToFile(path, inc, cfg.SampleRate)
		},
		Delete: func(id string) error {
			store.Delete(id)
			return archive.Remove(id)
		},
		List: func() []tui.IncidentSummary {
			return collections.Apply(store.List(), toSummary)
		},
		Transcript: liveCtl.Transcript,
	}

	p := tea.NewProgram(tui.New(tui.Config{
		Controls: controls,
		Cancel:   cancel,
	}))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}

	cancel()
	wg.Wait()

	fmt.Println("\nguarding stopped. bye!")

	return nil
}

// toSummary maps a stored incident to its guard screen row.
func toSummary(inc *incident.Incident) tui.IncidentSummary {
	summary := tui.IncidentSummary{
		ID:        inc.ID,
		CreatedAt: inc.CreatedAt,
		Seconds:   inc.DurationSeconds,
	}

	if inc.Analysis != nil {
		summary.Threat = string(inc.Analysis.ThreatLevel)
		summary.Summary = inc.Analysis.Summary
	}

	return summary
}

// ringDial implements uictl.CappedDial[int] over the fragment ring.
type ringDial struct {
	ring          *buffer.Ring
	windowSeconds int
}

func (rd ringDial) Read() int {
	return rd.ring.SizeSeconds(time.Now())
}

func (rd ringDial) Cap() (int, int) {
	return rd.Read(), rd.windowSeconds
}

// liveSwitch implements uictl.Knob over the live commentary session. Each On
// creates a fresh session; sessions are single-use.
type liveSwitch struct {
	ctx  context.Context
	conf live.Config

	mu      sync.Mutex
	sess    *live.Session
	lastTxt string
	lastErr error
}

func (ls *liveSwitch) Read() bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.sess == nil {
		return false
	}

	state := ls.sess.State()

	return state == live.StateConnecting || state == live.StateConnected
}

func (ls *liveSwitch) On() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.sess != nil {
		state := ls.sess.State()
		if state == live.StateConnecting || state == live.StateConnected {
			return
		}
		ls.teardownLocked()
	}

	dev := audio.NewDevice(&audio.DeviceConfig{
		Format:          malgo.FormatS16,
		SampleRate:      ls.conf.CaptureRate,
		CaptureChannels: 1,
		Processing:      audio.DefaultProcessing(),
	})

	player, release, err := live.NewDevicePlayer(ls.ctx, ls.conf.PlaybackRate)
	if err != nil {
		slog.Error("failed to open commentary playback", "error", err)
		dev.Dealloc(ls.ctx)
		ls.lastErr = err
		return
	}

	sess := live.NewSession(ls.conf, dev, player)
	sess.SetPlayerRelease(release)

	if err := sess.Connect(ls.ctx); err != nil {
		slog.Error("live session failed to connect", "error", err)
		ls.lastErr = err
		return
	}

	ls.sess = sess
	ls.lastErr = nil
}

func (ls *liveSwitch) Off() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.teardownLocked()
}

func (ls *liveSwitch) teardownLocked() {
	if ls.sess == nil {
		return
	}

	ls.lastTxt = ls.sess.Transcript()
	ls.sess.Close(ls.ctx)
	ls.sess.Wait()
	ls.sess = nil
}

func (ls *liveSwitch) Toggle() {
	if ls.Read() {
		ls.Off()
	} else {
		ls.On()
	}
}

// Err returns the most recent session setup or transport failure, if any.
func (ls *liveSwitch) Err() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.sess != nil {
		if err := ls.sess.Err(); err != nil {
			return err
		}
	}

	return ls.lastErr
}

// Transcript returns the running session's transcript, or the last one.
func (ls *liveSwitch) Transcript() string {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.sess != nil {
		return ls.sess.Transcript()
	}

	return ls.lastTxt
}

// DevicesCmd lists available audio devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run() error {
	slog.Info("Enumerating audio devices...")

	adev := audio.NewDevice(nil)
	devices, err := adev.EnumerateDevices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, dev := range devices {
		slog.Info("Audio Device",
			"name", dev.Name,
			"isDefault", dev.IsDefault,
			"formatCount", dev.FormatCount,
			"formats", dev.Formats,
		)
	}

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey   SetKeyCmd   `cmd:"" help:"Store an API key in system keychain"`
	ListKeys ListKeysCmd `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"gemini" help:"Service name (gemini)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	allSet := true

	for _, apiKey := range keyring.AllAPIKeys() {
		if keyring.IsSet(apiKey) {
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		} else {
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
			allSet = false
		}
	}

	if !allSet {
		fmt.Println("\nRun 'echosave config set-key gemini <key>' to configure.")
	}

	return nil
}

// ExportCmd converts an archived incident to an MP3 file.
type ExportCmd struct {
	ID     string `arg:"" optional:"" help:"Incident id (default: list archived incidents)"`
	Output string `flag:"" optional:"" help:"Output file path (default: the exports directory)"`
}

// Run executes the export command.
func (c *ExportCmd) Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	incidentsDir, err := workdir.IncidentsPath()
	if err != nil {
		return err
	}
	archive := incident.NewArchive(incidentsDir)

	if c.ID == "" {
		ids, err := archive.IDs()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("no archived incidents")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	inc, err := archive.Read(c.ID)
	if err != nil {
		return err
	}

	path := c.Output
	if path == "" {
		exportsDir, err := workdir.ExportsPath()
		if err != nil {
			return err
		}
		if err := workdir.Prep(exportsDir); err != nil {
			return err
		}
		path = filepath.Join(exportsDir, export.FileName(inc))
	}

	if err := export.SaveToFile(path, inc, cfg.SampleRate); err != nil {
		return err
	}

	fmt.Printf("exported %s\n", path)

	return nil
}

func main() {
	// Set up text-based logger for CLI output
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
