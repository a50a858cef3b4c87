// Package wav implements the RIFF/WAVE container used for recordings,
// plus a headerless raw PCM mode. The container format is a configuration
// choice; both writers satisfy the same Encoder contract.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/talkback-audio/talkback/internal/audio"
)

// Format selects the container for a stored asset.
type Format string

const (
	FormatWAV Format = "wav"
	FormatPCM Format = "pcm"
	FormatMP3 Format = "mp3"
)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatWAV, FormatPCM, FormatMP3:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown container format %q", s)
	}
}

// Encodable reports whether recordings can be written in this format.
// MP3 is decode-only (library assets).
func (f Format) Encodable() bool {
	return f == FormatWAV || f == FormatPCM
}

// header is the canonical 44-byte RIFF/WAVE header for PCM audio.
type header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // bytes of PCM data
}

const headerSize = 44

func newHeader(info audio.StreamInfo, dataBytes uint32) header {
	return header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     headerSize - 8 + dataBytes,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(info.Channels),
		SampleRate:    uint32(info.SampleRateHz),
		ByteRate:      uint32(info.ByteRate()),
		BlockAlign:    uint16(info.BytesPerSample()),
		BitsPerSample: uint16(info.BitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataBytes,
	}
}

// Encoder is a container encoder bound to an already opened sink. The
// total data length is unknown until all samples are written, so any
// length-dependent header fields are only rewritten by Finalize.
type Encoder interface {
	io.Writer
	Finalize() error
}

// NewEncoder returns an encoder for the given format bound to ws.
func NewEncoder(ws io.WriteSeeker, format Format, info audio.StreamInfo) (Encoder, error) {
	switch format {
	case FormatWAV:
		return NewWriter(ws, info)
	case FormatPCM:
		return NewRawWriter(ws), nil
	default:
		return nil, fmt.Errorf("format %q does not support encoding", format)
	}
}

// Writer streams PCM data into a RIFF/WAVE container. The header is
// written up front with placeholder sizes and rewritten by Finalize once
// the final byte count is known.
type Writer struct {
	ws        io.WriteSeeker
	info      audio.StreamInfo
	dataBytes uint32
	finalized bool
}

// NewWriter writes the placeholder header and returns the writer.
func NewWriter(ws io.WriteSeeker, info audio.StreamInfo) (*Writer, error) {
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stream descriptor: %w", err)
	}
	h := newHeader(info, 0)
	if err := binary.Write(ws, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	return &Writer{ws: ws, info: info}, nil
}

// Write appends PCM bytes to the data chunk. Callers pass sample-aligned
// chunks only.
func (w *Writer) Write(p []byte) (int, error) {
	if w.finalized {
		return 0, fmt.Errorf("write after finalize")
	}
	n, err := w.ws.Write(p)
	w.dataBytes += uint32(n)
	if err != nil {
		return n, fmt.Errorf("failed to write audio data: %w", err)
	}
	return n, nil
}

// Finalize seeks back to the start and rewrites the header with the real
// RIFF and data chunk sizes.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	if _, err := w.ws.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to header: %w", err)
	}
	h := newHeader(w.info, w.dataBytes)
	if err := binary.Write(w.ws, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("failed to rewrite WAV header: %w", err)
	}
	if _, err := w.ws.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek past data: %w", err)
	}
	w.finalized = true
	return nil
}

// DataBytes returns the number of PCM bytes written so far.
func (w *Writer) DataBytes() int {
	return int(w.dataBytes)
}

// RawWriter writes headerless PCM. There is no length-dependent trailer,
// so Finalize is a no-op.
type RawWriter struct {
	w io.Writer
}

// NewRawWriter returns a raw PCM encoder over w.
func NewRawWriter(w io.Writer) *RawWriter {
	return &RawWriter{w: w}
}

func (r *RawWriter) Write(p []byte) (int, error) {
	return r.w.Write(p)
}

// Finalize implements Encoder.
func (r *RawWriter) Finalize() error {
	return nil
}
