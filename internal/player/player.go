// Package player streams stored assets to the shared transport and
// provides the silence flush primitive used at mode-switch boundaries.
package player

import (
	"errors"
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/talkback-audio/talkback/internal/audio"
	"github.com/talkback-audio/talkback/internal/wav"
)

// ErrSourceUnavailable means the playback source could not be opened. The
// step is aborted; a later attempt starts over from scratch.
var ErrSourceUnavailable = errors.New("playback source unavailable")

// DefaultBufferBytes is the playback copy buffer size.
const DefaultBufferBytes = 512

// Request identifies a stored asset to play. One-shot: created, consumed
// to completion, discarded.
type Request struct {
	Path   string
	Format wav.Format
}

// Playback drives iterative decode-and-output of one asset. Step copies a
// single chunk so a cooperative scheduler can interleave other work; Run
// loops Step to exhaustion.
type Playback struct {
	transport      audio.Transport
	src            io.Reader
	closer         io.Closer
	bytesPerSample int
	buf            []byte
	done           bool
	bytesPlayed    int
}

// Open opens the asset and builds the decode pipeline for its container
// format. bufferBytes <= 0 selects DefaultBufferBytes.
func Open(t audio.Transport, info audio.StreamInfo, req Request, bufferBytes int) (*Playback, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, req.Path, err)
	}

	p, err := newPlayback(t, info, req.Format, f, bufferBytes)
	if err != nil {
		f.Close()
		return nil, err
	}
	p.closer = f
	return p, nil
}

// newPlayback wires a decoder for the container format over src. Sample
// alignment uses the decoded stream's own sample width, which for MP3 is
// always 16-bit stereo regardless of the session descriptor.
func newPlayback(t audio.Transport, info audio.StreamInfo, format wav.Format, src io.Reader, bufferBytes int) (*Playback, error) {
	if bufferBytes <= 0 {
		bufferBytes = DefaultBufferBytes
	}

	p := &Playback{
		transport: t,
		buf:       make([]byte, bufferBytes),
	}

	switch format {
	case wav.FormatWAV:
		d, err := wav.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("parse WAV container: %w", err)
		}
		hdr := d.Info()
		p.src = d
		p.bytesPerSample = hdr.BitsPerSample / 8 * hdr.Channels
	case wav.FormatPCM:
		// Headerless: the session descriptor is the only source of truth.
		p.src = src
		p.bytesPerSample = info.BytesPerSample()
	case wav.FormatMP3:
		d, err := mp3.NewDecoder(src)
		if err != nil {
			return nil, fmt.Errorf("parse MP3 stream: %w", err)
		}
		p.src = d
		p.bytesPerSample = 4 // go-mp3 always emits 16-bit stereo
	default:
		return nil, fmt.Errorf("format %q does not support playback", format)
	}

	if p.bytesPerSample <= 0 {
		return nil, fmt.Errorf("container reports zero-width samples")
	}
	return p, nil
}

// Step copies one chunk from the decoder to the transport. It returns
// done=true once the source is exhausted. Chunks shorter than one sample
// are discarded as normal partial progress; short transport writes are
// retried until the aligned chunk is fully consumed.
func (p *Playback) Step() (done bool, err error) {
	if p.done {
		return true, nil
	}

	n, readErr := p.src.Read(p.buf)
	if n > 0 {
		aligned := audio.Align(n, p.bytesPerSample)
		off := 0
		for off < aligned {
			m, werr := p.transport.Write(p.buf[off:aligned])
			if werr != nil {
				return false, fmt.Errorf("transport write: %w", werr)
			}
			off += m
		}
		p.bytesPlayed += aligned
	}

	if readErr == io.EOF {
		p.done = true
		return true, nil
	}
	if readErr != nil {
		return false, fmt.Errorf("decode: %w", readErr)
	}
	return false, nil
}

// Run drives Step until the source is exhausted.
func (p *Playback) Run() error {
	for {
		done, err := p.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Done reports whether the source has been consumed fully.
func (p *Playback) Done() bool {
	return p.done
}

// BytesPlayed returns the number of aligned PCM bytes written so far.
func (p *Playback) BytesPlayed() int {
	return p.bytesPlayed
}

// Close releases the underlying source.
func (p *Playback) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// Play is the run-to-completion convenience over Open and Run. It unmutes
// the transport before streaming.
func Play(t audio.Transport, info audio.StreamInfo, req Request, bufferBytes int) error {
	p, err := Open(t, info, req, bufferBytes)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := t.SetMute(false); err != nil {
		return fmt.Errorf("unmute: %w", err)
	}
	return p.Run()
}
