package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkback-audio/talkback/internal/audio"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 16000, cfg.Audio.SampleRateHz)
	assert.Equal(t, 1, cfg.Audio.Channels)
	assert.Equal(t, 16, cfg.Audio.BitsPerSample)
	assert.Equal(t, "wav", cfg.Recording.Format)
	assert.Equal(t, 5, cfg.Recording.Seconds)
	assert.Equal(t, "mp3", cfg.Library.Format)
	assert.True(t, cfg.Session.FlushEnabled)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	yaml := `
audio:
  sample_rate_hz: 8000
  channels: 2
recording:
  path: /tmp/take.pcm
  format: pcm
  seconds: 10
library:
  path: /media/theme.wav
  format: wav
session:
  flush_enabled: false
log:
  level: debug
`
	path := filepath.Join(t.TempDir(), "talkback.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Audio.SampleRateHz)
	assert.Equal(t, 2, cfg.Audio.Channels)
	assert.Equal(t, 16, cfg.Audio.BitsPerSample, "unset fields keep defaults")
	assert.Equal(t, "pcm", cfg.Recording.Format)
	assert.Equal(t, 10, cfg.Recording.Seconds)
	assert.Equal(t, "/media/theme.wav", cfg.Library.Path)
	assert.False(t, cfg.Session.FlushEnabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio: ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.Audio.SampleRateHz = 0 }},
		{"bad bit depth", func(c *Config) { c.Audio.BitsPerSample = 12 }},
		{"unknown record format", func(c *Config) { c.Recording.Format = "flac" }},
		{"decode-only record format", func(c *Config) { c.Recording.Format = "mp3" }},
		{"zero duration", func(c *Config) { c.Recording.Seconds = 0 }},
		{"empty record path", func(c *Config) { c.Recording.Path = "" }},
		{"unknown library format", func(c *Config) { c.Library.Format = "ogg" }},
		{"empty library path", func(c *Config) { c.Library.Path = "" }},
		{"negative tick", func(c *Config) { c.Session.TickMs = -1 }},
		{"negative gain", func(c *Config) { c.Audio.OutputGain = -0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestStreamInfoDerivation(t *testing.T) {
	cfg := Default()
	cfg.Audio.Channels = 2
	cfg.Audio.BitsPerSample = 32

	info := cfg.StreamInfo()
	assert.Equal(t, audio.StreamInfo{SampleRateHz: 16000, Channels: 2, BitsPerSample: 32}, info)
	assert.Equal(t, 8, info.BytesPerSample(), "bytes per sample is always derived from the descriptor")
}

func TestLatencyMode(t *testing.T) {
	cfg := Default()
	assert.Equal(t, audio.HighStability, cfg.LatencyMode())

	cfg.Audio.Latency = "low"
	assert.Equal(t, audio.LowLatency, cfg.LatencyMode())
}
