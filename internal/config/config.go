// Package config loads the session configuration. Everything here is
// fixed at session start; nothing is mutated at runtime.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talkback-audio/talkback/internal/audio"
	"github.com/talkback-audio/talkback/internal/wav"
)

// Config holds application configuration
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`
	Library   LibraryConfig   `yaml:"library"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
}

// AudioConfig configures the shared full-duplex transport.
type AudioConfig struct {
	SampleRateHz    int     `yaml:"sample_rate_hz"`
	Channels        int     `yaml:"channels"`
	BitsPerSample   int     `yaml:"bits_per_sample"`
	DeviceID        int     `yaml:"device_id"` // -1 means system default
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	OutputGain      float64 `yaml:"output_gain"`
	Latency         string  `yaml:"latency"` // "low" or "stable"
}

// RecordingConfig configures the capture stage.
type RecordingConfig struct {
	Path        string `yaml:"path"`
	Format      string `yaml:"format"` // "wav" or "pcm"
	Seconds     int    `yaml:"seconds"`
	BufferBytes int    `yaml:"buffer_bytes"`
	// ProgressEverySamples logs capture progress at this sample interval;
	// 0 disables.
	ProgressEverySamples int `yaml:"progress_every_samples"`
}

// LibraryConfig identifies the stored asset played after the recording.
type LibraryConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // "wav", "pcm" or "mp3"
}

// SessionConfig configures the orchestration loop.
type SessionConfig struct {
	TickMs              int  `yaml:"tick_ms"`
	PlaybackBufferBytes int  `yaml:"playback_buffer_bytes"`
	FlushEnabled        bool `yaml:"flush_enabled"`
	FlushMs             int  `yaml:"flush_ms"`
	// MaxStepFailures aborts the run after this many consecutive failed
	// ticks; 0 retries forever.
	MaxStepFailures int `yaml:"max_step_failures"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the default configuration: 5 seconds of 16 kHz mono
// 16-bit audio into a WAV file, followed by an MP3 library asset.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRateHz:    16000,
			Channels:        1,
			BitsPerSample:   16,
			DeviceID:        -1,
			FramesPerBuffer: 256,
			OutputGain:      1.0,
			Latency:         "stable",
		},
		Recording: RecordingConfig{
			Path:                 "rec.wav",
			Format:               "wav",
			Seconds:              5,
			BufferBytes:          512,
			ProgressEverySamples: 1600,
		},
		Library: LibraryConfig{
			Path:   "music/a1.mp3",
			Format: "mp3",
		},
		Session: SessionConfig{
			TickMs:              20,
			PlaybackBufferBytes: 512,
			FlushEnabled:        true,
			FlushMs:             8,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the specified path. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the session cannot run
// with.
func (c *Config) Validate() error {
	if err := c.StreamInfo().Validate(); err != nil {
		return err
	}

	recFormat, err := wav.ParseFormat(c.Recording.Format)
	if err != nil {
		return fmt.Errorf("recording format: %w", err)
	}
	if !recFormat.Encodable() {
		return fmt.Errorf("recording format %q is decode-only", recFormat)
	}
	if c.Recording.Seconds <= 0 {
		return fmt.Errorf("recording seconds must be positive, got %d", c.Recording.Seconds)
	}
	if c.Recording.Path == "" {
		return fmt.Errorf("recording path must not be empty")
	}

	if _, err := wav.ParseFormat(c.Library.Format); err != nil {
		return fmt.Errorf("library format: %w", err)
	}
	if c.Library.Path == "" {
		return fmt.Errorf("library path must not be empty")
	}

	if c.Session.TickMs < 0 || c.Session.FlushMs < 0 {
		return fmt.Errorf("tick and flush durations must not be negative")
	}
	if c.Audio.OutputGain < 0 {
		return fmt.Errorf("output gain must not be negative, got %f", c.Audio.OutputGain)
	}
	return nil
}

// StreamInfo returns the stream descriptor shared by capture and
// playback.
func (c *Config) StreamInfo() audio.StreamInfo {
	return audio.StreamInfo{
		SampleRateHz:  c.Audio.SampleRateHz,
		Channels:      c.Audio.Channels,
		BitsPerSample: c.Audio.BitsPerSample,
	}
}

// LatencyMode maps the configured latency name to the transport's mode.
func (c *Config) LatencyMode() audio.LatencyMode {
	if c.Audio.Latency == "low" {
		return audio.LowLatency
	}
	return audio.HighStability
}
