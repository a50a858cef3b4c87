// Package session sequences one record/replay session over the shared
// transport: capture a recording, play it back, then play a library
// asset. The transport cannot capture and play concurrently, so exactly
// one stage owns it at a time.
package session

import (
	"time"

	"github.com/talkback-audio/talkback/internal/audio"
	"github.com/talkback-audio/talkback/internal/logger"
	"github.com/talkback-audio/talkback/internal/player"
	"github.com/talkback-audio/talkback/internal/recorder"
)

// State represents the current session stage
type State int

const (
	// Idle means the session has not started
	Idle State = iota
	// Recording means the capture stage is active or pending retry
	Recording
	// PlayingOwnRecording means the just-recorded asset is being played
	PlayingOwnRecording
	// PlayingLibraryAsset means the stored library asset is being played
	PlayingLibraryAsset
	// Done is terminal
	Done
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Recording:
		return "Recording"
	case PlayingOwnRecording:
		return "PlayingOwnRecording"
	case PlayingLibraryAsset:
		return "PlayingLibraryAsset"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Config holds one session's parameters, fixed at session start.
type Config struct {
	Record  recorder.Config
	Library player.Request

	// PlaybackBufferBytes sizes the copy buffer for both playback stages.
	PlaybackBufferBytes int

	// FlushEnabled runs the silence flush at the capture-to-playback
	// boundary, the switch the shared transport buffers stale frames
	// across.
	FlushEnabled  bool
	FlushDuration time.Duration
}

// Machine is the top-level orchestrator. States move strictly forward and
// each stage runs at most once; a failed stage leaves its completion flag
// unset so the next tick re-attempts it from scratch.
type Machine struct {
	transport audio.Transport
	info      audio.StreamInfo
	config    Config
	rec       *recorder.Recorder
	flusher   *player.Flusher
	log       *logger.Logger

	state         State
	recorded      bool
	playedOwn     bool
	playedLibrary bool
}

// New creates a session machine. log may be nil.
func New(t audio.Transport, info audio.StreamInfo, config Config, log *logger.Logger) *Machine {
	m := &Machine{
		transport: t,
		info:      info,
		config:    config,
		rec:       recorder.New(t, info, config.Record),
		log:       log,
		state:     Idle,
	}
	if config.FlushEnabled {
		m.flusher = player.NewFlusher(t, info, config.Record.Format, config.FlushDuration)
	}
	return m
}

// State returns the current session stage.
func (m *Machine) State() State {
	return m.state
}

// Step performs at most the next pending stage and returns. Each stage
// blocks internally until its own completion (the capture loop and the
// playback loops run to exhaustion), but between ticks the caller keeps
// control. Once Done, Step is a no-op.
func (m *Machine) Step() error {
	switch {
	case m.state == Done:
		return nil

	case !m.recorded:
		m.enter(Recording)
		n, err := m.rec.Record()
		if err != nil {
			return err
		}
		m.recorded = true
		m.logf("recording complete: %d samples (target %d)", n, m.rec.TargetSamples())

	case !m.playedOwn:
		m.enter(PlayingOwnRecording)
		// The transport just switched from capture to playback; evict any
		// stale buffered frames before real audio goes out.
		if m.flusher != nil {
			if err := m.flusher.Flush(); err != nil {
				m.logf("silence flush failed, continuing: %v", err)
			}
		}
		req := player.Request{Path: m.config.Record.Path, Format: m.config.Record.Format}
		if err := player.Play(m.transport, m.info, req, m.config.PlaybackBufferBytes); err != nil {
			return err
		}
		m.playedOwn = true
		m.logf("own recording played: %s", req.Path)

	case !m.playedLibrary:
		m.enter(PlayingLibraryAsset)
		if err := player.Play(m.transport, m.info, m.config.Library, m.config.PlaybackBufferBytes); err != nil {
			return err
		}
		m.playedLibrary = true
		m.logf("library asset played: %s", m.config.Library.Path)

	default:
		m.enter(Done)
	}
	return nil
}

// Run drives Step until the session is Done. The first stage error aborts
// the run; callers that want the re-attempt behavior tick Step themselves.
func (m *Machine) Run() error {
	for m.state != Done {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// enter moves to a stage exactly once; retries of a failed stage find the
// state already set and do not re-enter it.
func (m *Machine) enter(s State) {
	if m.state == s {
		return
	}
	m.logf("session state: %s -> %s", m.state, s)
	m.state = s
}

func (m *Machine) logf(format string, v ...any) {
	if m.log != nil {
		m.log.Info(format, v...)
	}
}
