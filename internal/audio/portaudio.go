package audio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioTransport implements Transport over a single full-duplex
// PortAudio stream: one peripheral carries both the capture and the
// playback direction, configured once from the stream descriptor.
type PortAudioTransport struct {
	config      Config
	stream      *portaudio.Stream
	in          []int16
	out         []int16
	pending     []byte
	muted       bool
	mu          sync.Mutex
	opened      bool
	initialized bool
}

// NewPortAudioTransport initializes PortAudio and returns an unopened
// transport.
func NewPortAudioTransport() (*PortAudioTransport, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &PortAudioTransport{initialized: true}, nil
}

// ListDevices returns the available full-duplex capable devices. Devices
// without input channels cannot serve as the shared transport and are
// skipped.
func (t *PortAudioTransport) ListDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultInput, err := portaudio.DefaultInputDevice()
	if err != nil {
		defaultInput = nil
	}

	var result []Device
	for i, dev := range devices {
		if dev.MaxInputChannels > 0 {
			isDefault := defaultInput != nil && dev.Name == defaultInput.Name
			result = append(result, Device{
				ID:        i,
				Name:      dev.Name,
				IsDefault: isDefault,
			})
		}
	}
	return result, nil
}

// Open configures and starts the full-duplex stream. The descriptor is
// fixed for the lifetime of the stream; capture and playback share it.
func (t *PortAudioTransport) Open(config Config) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.opened {
		return fmt.Errorf("transport already open")
	}
	if err := config.Info.Validate(); err != nil {
		return fmt.Errorf("invalid stream descriptor: %w", err)
	}
	if config.Info.BitsPerSample != 16 {
		// PortAudio is driven with int16 frames here; other depths are
		// container-side concerns only.
		return fmt.Errorf("portaudio transport requires 16-bit samples, got %d", config.Info.BitsPerSample)
	}
	if config.FramesPerBuffer <= 0 {
		config.FramesPerBuffer = DefaultConfig().FramesPerBuffer
	}
	if config.OutputGain == 0 {
		config.OutputGain = 1.0
	}

	inDev, outDev, err := t.selectDevices(config.DeviceID)
	if err != nil {
		return err
	}
	if inDev.MaxInputChannels < config.Info.Channels {
		return fmt.Errorf("device '%s' has %d input channels, need %d",
			inDev.Name, inDev.MaxInputChannels, config.Info.Channels)
	}
	if outDev.MaxOutputChannels < config.Info.Channels {
		return fmt.Errorf("device '%s' has %d output channels, need %d",
			outDev.Name, outDev.MaxOutputChannels, config.Info.Channels)
	}

	var inLatency, outLatency time.Duration
	switch config.Latency {
	case LowLatency:
		inLatency = inDev.DefaultLowInputLatency
		outLatency = outDev.DefaultLowOutputLatency
	default:
		inLatency = inDev.DefaultHighInputLatency
		outLatency = outDev.DefaultHighOutputLatency
	}

	t.in = make([]int16, config.FramesPerBuffer*config.Info.Channels)
	t.out = make([]int16, config.FramesPerBuffer*config.Info.Channels)

	streamParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inDev,
			Channels: config.Info.Channels,
			Latency:  inLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   outDev,
			Channels: config.Info.Channels,
			Latency:  outLatency,
		},
		SampleRate:      float64(config.Info.SampleRateHz),
		FramesPerBuffer: config.FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(streamParams, t.in, t.out)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	t.stream = stream
	t.config = config
	t.pending = nil
	t.opened = true
	return nil
}

func (t *PortAudioTransport) selectDevices(deviceID int) (in, out *portaudio.DeviceInfo, err error) {
	if deviceID == -1 {
		in, err = portaudio.DefaultInputDevice()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		out, err = portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get default output device: %w", err)
		}
		return in, out, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	// A full-duplex peripheral serves both directions.
	return devices[deviceID], devices[deviceID], nil
}

// Read fills p with captured PCM bytes. Returns short reads whenever the
// device period does not line up with len(p); callers align the result.
func (t *PortAudioTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.opened {
		return 0, fmt.Errorf("transport not open")
	}

	if len(t.pending) == 0 {
		if err := t.stream.Read(); err != nil {
			return 0, fmt.Errorf("stream read: %w", err)
		}
		buf := make([]byte, len(t.in)*2)
		for i, s := range t.in {
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
		}
		t.pending = buf
	}

	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

// Write plays PCM bytes from p, consuming at most one device period per
// call. A final chunk shorter than the period is zero padded on the wire
// but reported as fully consumed.
func (t *PortAudioTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.opened {
		return 0, fmt.Errorf("transport not open")
	}

	n := len(p)
	if max := len(t.out) * 2; n > max {
		n = max
	}
	n = Align(n, t.config.Info.BytesPerSample())
	if n == 0 {
		return 0, nil
	}

	samples := n / 2
	for i := 0; i < len(t.out); i++ {
		if i < samples && !t.muted {
			s := int16(binary.LittleEndian.Uint16(p[i*2:]))
			t.out[i] = scaleSample(s, t.config.OutputGain)
		} else {
			t.out[i] = 0
		}
	}

	if err := t.stream.Write(); err != nil {
		return 0, fmt.Errorf("stream write: %w", err)
	}
	return n, nil
}

// SetMute gates the downstream amplifier: while muted, written frames go
// out as digital silence but the stream keeps cycling.
func (t *PortAudioTransport) SetMute(muted bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.opened {
		return fmt.Errorf("transport not open")
	}
	t.muted = muted
	return nil
}

// Close stops the stream and releases PortAudio.
func (t *PortAudioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stream != nil {
		if err := t.stream.Stop(); err != nil {
			return fmt.Errorf("failed to stop stream: %w", err)
		}
		if err := t.stream.Close(); err != nil {
			return fmt.Errorf("failed to close stream: %w", err)
		}
		t.stream = nil
	}
	t.opened = false

	if t.initialized {
		if err := portaudio.Terminate(); err != nil {
			return fmt.Errorf("failed to terminate PortAudio: %w", err)
		}
		t.initialized = false
	}
	return nil
}

func scaleSample(s int16, gain float64) int16 {
	if gain == 1.0 {
		return s
	}
	v := float64(s) * gain
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
