// Package live manages the bidirectional streaming session: microphone
// audio up, synthesized commentary and transcript fragments down.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdumair1-a11y/EchoSave/internal/audio"
	"github.com/gdumair1-a11y/EchoSave/internal/capture"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// ErrTransport indicates a streaming connection failure.
var ErrTransport = errors.New("streaming transport failure")

// State is the session connection state. A session is single-use:
// disconnected and error states are terminal, and a new session must be
// created to retry.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateError
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Conn is the subset of *websocket.Conn the session uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens the streaming connection. Overridable in tests.
type DialFunc func(ctx context.Context, url string, header http.Header) (Conn, error)

func gorillaDial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 30 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	conn.SetReadLimit(10 * 1024 * 1024)

	return conn, nil
}

// Config holds live session settings.
type Config struct {
	URL    string
	APIKey string
	Model  string

	// CaptureRate is the microphone sample rate sent upstream.
	CaptureRate int
	// PlaybackRate is the sample rate of inbound synthesized audio.
	PlaybackRate int
	// TranscriptMax caps the rolling transcript buffer in bytes.
	TranscriptMax int

	// Dial overrides the websocket dialer. Defaults to gorilla.
	Dial DialFunc
	// Clock overrides the scheduler time source.
	Clock func() time.Time
}

// Session is one live duplex conversation. Ephemeral: nothing survives
// Close.
type Session struct {
	conf       Config
	dev        audio.Device
	player     Player
	releasePlr func(context.Context)

	scheduler  *Scheduler
	transcript *Transcript

	state   atomic.Int32
	conn    Conn
	writeMu sync.Mutex

	cancel    context.CancelFunc
	closeOnce sync.Once
	flows     sync.WaitGroup

	errMu   sync.Mutex
	lastErr error
}

// NewSession creates a session. The capture device and player are injected
// so the duplex flows can run against fakes.
func NewSession(conf Config, dev audio.Device, player Player) *Session {
	if conf.Dial == nil {
		conf.Dial = gorillaDial
	}
	if conf.TranscriptMax <= 0 {
		conf.TranscriptMax = 8000
	}

	s := &Session{
		conf:       conf,
		dev:        dev,
		player:     player,
		scheduler:  NewScheduler(player, conf.PlaybackRate, conf.Clock),
		transcript: NewTranscript(conf.TranscriptMax),
	}
	s.state.Store(int32(StateConnecting))

	return s
}

// SetPlayerRelease registers a cleanup hook for the player's device
// handle, released independently of the other resources on Close.
func (s *Session) SetPlayerRelease(release func(context.Context)) {
	s.releasePlr = release
}

// Connect performs the handshake and, on success, starts the upload and
// download flows. Device acquisition runs concurrently with the dial; any
// failure releases whatever was acquired and leaves the session in the
// error state.
func (s *Session) Connect(ctx context.Context) error {
	if State(s.state.Load()) != StateConnecting {
		return errors.New("live session already used")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	var dataC chan audio.DataPacket

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dataC = make(chan audio.DataPacket, 64)
		if err := s.dev.CaptureInto(gCtx, dataC); err != nil {
			return fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
		}
		if err := s.dev.Start(gCtx); err != nil {
			s.dev.Dealloc(gCtx)
			return fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
		}
		return nil
	})

	g.Go(func() error {
		header := http.Header{}
		if s.conf.APIKey != "" {
			header.Set("Authorization", "Bearer "+s.conf.APIKey)
		}

		conn, err := s.conf.Dial(gCtx, s.conf.URL, header)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
		s.conn = conn
		return nil
	})

	if err := g.Wait(); err != nil {
		s.fail(err)
		return err
	}

	setup := ClientFrame{Setup: &Setup{
		Model:            s.conf.Model,
		InputSampleRate:  s.conf.CaptureRate,
		OutputSampleRate: s.conf.PlaybackRate,
	}}
	if err := s.writeFrame(setup); err != nil {
		err = fmt.Errorf("%w: %w", ErrTransport, err)
		s.fail(err)
		return err
	}

	s.state.Store(int32(StateConnected))

	s.flows.Add(2)
	go s.uploadFlow(ctx, dataC)
	go s.downloadFlow(ctx)

	return nil
}

// uploadFlow converts each captured block to the wire sample format and
// sends it as a realtime input frame. It never blocks on the download flow.
func (s *Session) uploadFlow(ctx context.Context, dataC <-chan audio.DataPacket) {
	defer s.flows.Done()

	mimeType := fmt.Sprintf("audio/pcm;rate=%d", s.conf.CaptureRate)

	for {
		select {
		case packet := <-dataC:
			frame := ClientFrame{RealtimeInput: &RealtimeInput{
				MimeType:   mimeType,
				SampleRate: s.conf.CaptureRate,
				Payload:    audio.EncodePayload(packet),
			}}

			if err := s.writeFrame(frame); err != nil {
				s.fail(fmt.Errorf("%w: %w", ErrTransport, err))
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// downloadFlow processes inbound messages in arrival order.
func (s *Session) downloadFlow(ctx context.Context) {
	defer s.flows.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				// Graceful service-initiated close.
				s.Close(context.Background())
				return
			}
			select {
			case <-ctx.Done():
				// Caller-initiated close raced the read.
				return
			default:
			}
			s.fail(fmt.Errorf("%w: %w", ErrTransport, err))
			return
		}

		var frame ServerFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			slog.Warn("dropping unparseable server frame", "error", err)
			continue
		}

		s.handleServerFrame(frame)
	}
}

// handleServerFrame dispatches the three mutually exclusive event cases
// plus the turn-completion marker.
func (s *Session) handleServerFrame(frame ServerFrame) {
	switch {
	case frame.Interrupted:
		s.scheduler.Interrupt()
		s.transcript.Append("\n[interrupted]\n")

	case frame.AudioPayload != "":
		pcm, err := audio.DecodePayload(frame.AudioPayload)
		if err != nil {
			slog.Warn("dropping undecodable audio payload", "error", err)
			return
		}

		if _, err := s.scheduler.Schedule(pcm); err != nil {
			slog.Warn("failed to schedule synthesized audio", "error", err)
		}

	case frame.TranscriptText != "":
		s.transcript.Append(frame.TranscriptText)

	case frame.TurnComplete:
		s.transcript.Append("\n---\n")
	}
}

func (s *Session) writeFrame(frame ClientFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.conn == nil {
		return errors.New("connection not established")
	}

	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// fail moves the session to the error state and releases everything.
// No automatic retry: the error is surfaced to the caller for display.
func (s *Session) fail(err error) {
	s.errMu.Lock()
	if s.lastErr == nil {
		s.lastErr = err
	}
	s.errMu.Unlock()

	s.state.Store(int32(StateError))
	s.release(context.Background())
}

// Close ends the session. Safe to invoke concurrently with in-flight
// upload/download activity, more than once, and on a session that never
// reached connected.
func (s *Session) Close(ctx context.Context) {
	if State(s.state.Load()) != StateError {
		s.state.Store(int32(StateDisconnected))
	}

	s.release(ctx)
}

// release frees the microphone, the connection, and the playback path.
// Each release is attempted independently: one failing never prevents the
// others.
func (s *Session) release(ctx context.Context) {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}

		if err := s.dev.Stop(ctx); err != nil {
			slog.Warn("failed to stop live capture device", "error", err)
		}
		s.dev.Dealloc(ctx)

		s.scheduler.Interrupt()

		if s.releasePlr != nil {
			s.releasePlr(ctx)
		}

		if s.conn != nil {
			s.writeMu.Lock()
			err := s.conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			)
			s.writeMu.Unlock()
			if err != nil {
				slog.Debug("failed to send close message", "error", err)
			}

			if err := s.conn.Close(); err != nil {
				slog.Warn("failed to close streaming connection", "error", err)
			}
		}
	})
}

// Wait blocks until both flows have exited.
func (s *Session) Wait() {
	s.flows.Wait()
}

// State returns the current connection state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Transcript returns the rolling commentary transcript.
func (s *Session) Transcript() string {
	return s.transcript.String()
}

// Scheduler exposes the playback scheduler, mainly for status display.
func (s *Session) Scheduler() *Scheduler {
	return s.scheduler
}

// Err returns the first transport or device error, if any.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	return s.lastErr
}
