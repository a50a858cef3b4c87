package player

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/talkback-audio/talkback/internal/audio"
	"github.com/talkback-audio/talkback/internal/wav"
)

// DefaultFlushDuration is long enough to cycle a ping-pong/DMA style
// transport buffer at least once at common sample rates.
const DefaultFlushDuration = 8 * time.Millisecond

// Flusher evicts stale buffered frames from the shared transport before a
// direction switch, preventing audible artifacts from residual samples.
// It mutes the downstream amplifier, runs a short all-zero buffer through
// the same encode and playback path used for normal assets, and unmutes.
type Flusher struct {
	transport audio.Transport
	info      audio.StreamInfo
	format    wav.Format
	duration  time.Duration
}

// NewFlusher builds the flush primitive. A non-encodable format falls
// back to the WAV container; duration <= 0 selects DefaultFlushDuration.
func NewFlusher(t audio.Transport, info audio.StreamInfo, format wav.Format, duration time.Duration) *Flusher {
	if !format.Encodable() {
		format = wav.FormatWAV
	}
	if duration <= 0 {
		duration = DefaultFlushDuration
	}
	return &Flusher{
		transport: t,
		info:      info,
		format:    format,
		duration:  duration,
	}
}

// SampleCount returns the flush buffer length in samples for the active
// sample rate. The decoded flush duration equals the configured duration
// regardless of which states are being switched between.
func (f *Flusher) SampleCount() int {
	n := int(int64(f.info.SampleRateHz) * int64(f.duration) / int64(time.Second))
	if n < 1 {
		n = 1
	}
	return n
}

// Flush runs one mute/encode/playback cycle of digital silence.
func (f *Flusher) Flush() error {
	if err := f.transport.SetMute(true); err != nil {
		return fmt.Errorf("mute: %w", err)
	}

	if err := f.cycle(); err != nil {
		f.transport.SetMute(false)
		return err
	}

	if err := f.transport.SetMute(false); err != nil {
		return fmt.Errorf("unmute: %w", err)
	}
	return nil
}

func (f *Flusher) cycle() error {
	sink := &memSink{}
	enc, err := wav.NewEncoder(sink, f.format, f.info)
	if err != nil {
		return fmt.Errorf("init flush encoder: %w", err)
	}

	zeros := make([]byte, f.SampleCount()*f.info.BytesPerSample())
	if _, err := enc.Write(zeros); err != nil {
		return fmt.Errorf("encode silence: %w", err)
	}
	if err := enc.Finalize(); err != nil {
		return fmt.Errorf("finalize silence: %w", err)
	}

	p, err := newPlayback(f.transport, f.info, f.format, bytes.NewReader(sink.data), 0)
	if err != nil {
		return fmt.Errorf("decode silence: %w", err)
	}
	if err := p.Run(); err != nil {
		return fmt.Errorf("play silence: %w", err)
	}
	return nil
}

// memSink is an in-memory io.WriteSeeker so the flush buffer can go
// through the seek-back container finalization without touching storage.
type memSink struct {
	data []byte
	pos  int64
}

func (m *memSink) Write(p []byte) (int, error) {
	if need := m.pos + int64(len(p)); need > int64(len(m.data)) {
		grown := make([]byte, need)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[m.pos:], p)
	m.pos += int64(len(p))
	return len(p), nil
}

func (m *memSink) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = m.pos + offset
	case io.SeekEnd:
		pos = int64(len(m.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative seek position: %d", pos)
	}
	m.pos = pos
	return pos, nil
}
