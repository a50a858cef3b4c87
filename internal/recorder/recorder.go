// Package recorder captures a fixed duration of audio from the shared
// transport and persists it through a container encoder.
package recorder

import (
	"errors"
	"fmt"
	"os"

	"github.com/talkback-audio/talkback/internal/audio"
	"github.com/talkback-audio/talkback/internal/wav"
)

// ErrStorage means the recording sink could not be opened. The step is
// aborted without retry; a later attempt starts over from scratch.
var ErrStorage = errors.New("recording sink unavailable")

// DefaultBufferBytes is the capture buffer size, a few device periods at
// common sample rates.
const DefaultBufferBytes = 512

// Config holds one recording session's parameters, fixed at session start.
type Config struct {
	Path        string
	Format      wav.Format
	Seconds     int
	BufferBytes int

	// ProgressInterval is the number of samples between OnProgress
	// callbacks; 0 disables progress reporting.
	ProgressInterval int
	OnProgress       func(recorded, target int)
}

// Recorder drives the capture loop. The capture buffer is owned
// exclusively by this recorder and never shared across sessions.
type Recorder struct {
	transport audio.Transport
	info      audio.StreamInfo
	config    Config
	buf       []byte
}

// New creates a recorder over the shared transport.
func New(t audio.Transport, info audio.StreamInfo, config Config) *Recorder {
	if config.BufferBytes <= 0 {
		config.BufferBytes = DefaultBufferBytes
	}
	return &Recorder{
		transport: t,
		info:      info,
		config:    config,
		buf:       make([]byte, config.BufferBytes),
	}
}

// TargetSamples returns the sample count this recorder captures:
// sample rate times duration.
func (r *Recorder) TargetSamples() int {
	return r.info.SampleRateHz * r.config.Seconds
}

// Record captures at least TargetSamples samples and writes them through
// the container encoder to the sink. It returns the number of samples
// actually recorded; overshoot past the target is bounded by one capture
// buffer because the final chunk is not trimmed.
//
// Reads shorter than one sample are discarded and retried immediately.
// The sink is opened with truncate-or-create semantics, held only for the
// duration of this call, and finalized before return so length-dependent
// header fields are correct.
func (r *Recorder) Record() (int, error) {
	if !r.config.Format.Encodable() {
		return 0, fmt.Errorf("cannot record into %q container", r.config.Format)
	}

	f, err := os.Create(r.config.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", ErrStorage, r.config.Path, err)
	}
	defer f.Close()

	enc, err := wav.NewEncoder(f, r.config.Format, r.info)
	if err != nil {
		return 0, fmt.Errorf("init %s encoder: %w", r.config.Format, err)
	}

	target := r.TargetSamples()
	bytesPerSample := r.info.BytesPerSample()
	recorded := 0
	nextProgress := r.config.ProgressInterval

	for recorded < target {
		n, err := r.transport.Read(r.buf)
		if err != nil {
			return recorded, fmt.Errorf("transport read: %w", err)
		}
		if n < bytesPerSample {
			// Less than one sample: discard and poll again.
			continue
		}

		aligned := audio.Align(n, bytesPerSample)
		if _, err := enc.Write(r.buf[:aligned]); err != nil {
			return recorded, fmt.Errorf("encode: %w", err)
		}
		recorded += aligned / bytesPerSample

		if r.config.ProgressInterval > 0 && recorded >= nextProgress {
			if r.config.OnProgress != nil {
				r.config.OnProgress(recorded, target)
			}
			nextProgress += r.config.ProgressInterval
		}
	}

	if err := enc.Finalize(); err != nil {
		return recorded, fmt.Errorf("finalize container: %w", err)
	}
	if err := f.Close(); err != nil {
		return recorded, fmt.Errorf("close sink: %w", err)
	}
	return recorded, nil
}
