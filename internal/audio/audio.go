package audio

import "fmt"

// StreamInfo describes the PCM format shared by the capture and playback
// paths. The transport is configured once from it for both directions and
// it never changes while a session is running.
type StreamInfo struct {
	SampleRateHz  int
	Channels      int
	BitsPerSample int
}

// BytesPerSample returns the number of bytes one sample occupies across all
// channels. Always derived from the descriptor, never stored separately.
func (s StreamInfo) BytesPerSample() int {
	return s.BitsPerSample / 8 * s.Channels
}

// ByteRate returns the number of bytes one second of audio occupies.
func (s StreamInfo) ByteRate() int {
	return s.SampleRateHz * s.BytesPerSample()
}

// Validate checks that the descriptor can drive a stream.
func (s StreamInfo) Validate() error {
	if s.SampleRateHz <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", s.SampleRateHz)
	}
	if s.Channels <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", s.Channels)
	}
	switch s.BitsPerSample {
	case 8, 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("unsupported bit depth: %d", s.BitsPerSample)
	}
}

// Device represents an audio peripheral usable as the shared transport
type Device struct {
	ID        int
	Name      string
	IsDefault bool
}

// LatencyMode defines the latency priority
type LatencyMode int

const (
	// LowLatency prioritizes low latency (real-time)
	LowLatency LatencyMode = iota
	// HighStability prioritizes stability (larger buffer)
	HighStability
)

// Config holds transport configuration
type Config struct {
	DeviceID        int
	Info            StreamInfo
	Latency         LatencyMode
	FramesPerBuffer int
	// OutputGain scales played samples; 1.0 is unity.
	OutputGain float64
}

// DefaultConfig returns the default transport configuration:
// 16 kHz mono 16-bit on the system default device.
func DefaultConfig() Config {
	return Config{
		DeviceID: -1, // -1 means use default device
		Info: StreamInfo{
			SampleRateHz:  16000,
			Channels:      1,
			BitsPerSample: 16,
		},
		Latency:         HighStability,
		FramesPerBuffer: 256,
		OutputGain:      1.0,
	}
}

// Transport is the single shared full-duplex peripheral. Capture and
// playback go through the same handle and are mutually exclusive: the
// caller must never read and write concurrently.
//
// Read and Write may move fewer bytes than requested; a short transfer is
// normal progress, not an error.
type Transport interface {
	// Read fills p with captured PCM bytes and returns how many were
	// written into p (0..len(p)).
	Read(p []byte) (int, error)

	// Write plays PCM bytes from p and returns how many were consumed.
	Write(p []byte) (int, error)

	// SetMute gates the downstream amplifier without stopping the stream.
	SetMute(muted bool) error

	// Close releases the peripheral.
	Close() error
}
