package wav

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Info holds the stream parameters parsed from a WAV header.
type Info struct {
	SampleRateHz  int
	Channels      int
	BitsPerSample int
	DataBytes     int
}

// NumSamples returns the number of whole samples in the data chunk.
func (i Info) NumSamples() int {
	bps := i.BitsPerSample / 8 * i.Channels
	if bps == 0 {
		return 0
	}
	return i.DataBytes / bps
}

// DurationSeconds returns the decoded duration of the data chunk.
func (i Info) DurationSeconds() float64 {
	if i.SampleRateHz == 0 {
		return 0
	}
	return float64(i.NumSamples()) / float64(i.SampleRateHz)
}

// Reader decodes a RIFF/WAVE container sequentially: it parses the header
// chunks up to "data" and then exposes the PCM payload as an io.Reader.
// Chunks between "fmt " and "data" (LIST, fact, ...) are skipped.
type Reader struct {
	r         io.Reader
	info      Info
	remaining int
}

// NewReader parses the container header from r. Only uncompressed PCM
// (format tag 1) is accepted.
func NewReader(r io.Reader) (*Reader, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	var info Info
	sawFmt := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := int(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("invalid fmt chunk size: %d", size)
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			audioFormat := binary.LittleEndian.Uint16(fmtChunk[0:2])
			if audioFormat != 1 {
				return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", audioFormat)
			}
			info.Channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			info.SampleRateHz = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(fmtChunk[14:16]))
			sawFmt = true
			if skip := size - 16; skip > 0 {
				if _, err := io.CopyN(io.Discard, r, int64(skip)); err != nil {
					return nil, fmt.Errorf("failed to skip fmt extension: %w", err)
				}
			}
		case "data":
			if !sawFmt {
				return nil, fmt.Errorf("invalid WAV file: data chunk before fmt chunk")
			}
			info.DataBytes = size
			return &Reader{r: r, info: info, remaining: size}, nil
		default:
			// RIFF chunks are word aligned.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("failed to skip %q chunk: %w", id, err)
			}
		}
	}
}

// Info returns the parsed stream parameters.
func (d *Reader) Info() Info {
	return d.info
}

// Read reads PCM bytes from the data chunk, returning io.EOF once the
// chunk is exhausted even if the underlying source has trailing bytes.
func (d *Reader) Read(p []byte) (int, error) {
	if d.remaining <= 0 {
		return 0, io.EOF
	}
	if len(p) > d.remaining {
		p = p[:d.remaining]
	}
	n, err := d.r.Read(p)
	d.remaining -= n
	if err == io.EOF && d.remaining > 0 {
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}
