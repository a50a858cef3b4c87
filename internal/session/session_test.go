package session

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkback-audio/talkback/internal/audio"
	"github.com/talkback-audio/talkback/internal/audio/mock"
	"github.com/talkback-audio/talkback/internal/player"
	"github.com/talkback-audio/talkback/internal/recorder"
	"github.com/talkback-audio/talkback/internal/wav"
)

var testInfo = audio.StreamInfo{SampleRateHz: 64, Channels: 1, BitsPerSample: 16}

func writeLibraryAsset(t *testing.T, path string, samples int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := wav.NewWriter(f, testInfo)
	require.NoError(t, err)
	data := make([]byte, samples*testInfo.BytesPerSample())
	for i := range data {
		data[i] = byte(i)
	}
	if len(data) >= 2 {
		binary.LittleEndian.PutUint16(data, 0x1234)
	}
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
}

func testConfig(t *testing.T, dir string) Config {
	t.Helper()

	libPath := filepath.Join(dir, "library.wav")
	writeLibraryAsset(t, libPath, 32)

	return Config{
		Record: recorder.Config{
			Path:    filepath.Join(dir, "rec.wav"),
			Format:  wav.FormatWAV,
			Seconds: 1, // 64 samples
		},
		Library:       player.Request{Path: libPath, Format: wav.FormatWAV},
		FlushEnabled:  true,
		FlushDuration: 8 * time.Millisecond,
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{Idle, "Idle"},
		{Recording, "Recording"},
		{PlayingOwnRecording, "PlayingOwnRecording"},
		{PlayingLibraryAsset, "PlayingLibraryAsset"},
		{Done, "Done"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

// The full sequence runs each stage exactly once, strictly forward, and
// reaches Done only after all three stages completed in order.
func TestSequenceRunsOnceInOrder(t *testing.T) {
	transport := &mock.Transport{FillByte: 0x5A}
	m := New(transport, testInfo, testConfig(t, t.TempDir()), nil)

	require.Equal(t, Idle, m.State())

	entered := make(map[State]int)
	var order []State
	for ticks := 0; m.State() != Done; ticks++ {
		require.Less(t, ticks, 16, "session must reach Done")
		require.NoError(t, m.Step())
		s := m.State()
		if len(order) == 0 || order[len(order)-1] != s {
			order = append(order, s)
			entered[s]++
		}
	}

	assert.Equal(t, []State{Recording, PlayingOwnRecording, PlayingLibraryAsset, Done}, order)
	for s, n := range entered {
		assert.Equalf(t, 1, n, "state %s entered more than once", s)
	}

	// Done is terminal: further ticks are no-ops.
	require.NoError(t, m.Step())
	assert.Equal(t, Done, m.State())

	// Own recording (64 samples) and library asset (32 samples) both went
	// to the transport, plus the flush cycle's silence.
	recData, err := os.ReadFile(m.config.Record.Path)
	require.NoError(t, err)
	assert.Greater(t, len(transport.Written), len(recData)-44, "playback streamed the recording")
}

func TestRunToCompletion(t *testing.T) {
	transport := &mock.Transport{}
	m := New(transport, testInfo, testConfig(t, t.TempDir()), nil)

	require.NoError(t, m.Run())
	assert.Equal(t, Done, m.State())
}

// A failed stage keeps its completion flag unset; the next tick
// re-attempts the same stage from scratch instead of advancing.
func TestFailedStageIsRetried(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	// Point the library request at a missing file for now.
	cfg.Library.Path = filepath.Join(dir, "not-yet-there.wav")

	transport := &mock.Transport{}
	m := New(transport, testInfo, cfg, nil)

	require.NoError(t, m.Step()) // record
	require.NoError(t, m.Step()) // play own recording
	require.Equal(t, PlayingOwnRecording, m.State())

	err := m.Step() // library asset missing
	require.Error(t, err)
	assert.ErrorIs(t, err, player.ErrSourceUnavailable)
	assert.Equal(t, PlayingLibraryAsset, m.State())

	err = m.Step()
	require.Error(t, err, "stage is re-attempted, not skipped")
	assert.Equal(t, PlayingLibraryAsset, m.State())

	// Once the asset appears, the re-attempt succeeds and the session
	// finishes.
	writeLibraryAsset(t, cfg.Library.Path, 16)
	require.NoError(t, m.Step())
	require.NoError(t, m.Step())
	assert.Equal(t, Done, m.State())
}

func TestRecordingFailureDoesNotAdvance(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	// A directory cannot be opened as the recording sink.
	cfg.Record.Path = dir

	transport := &mock.Transport{}
	m := New(transport, testInfo, cfg, nil)

	err := m.Step()
	require.Error(t, err)
	assert.ErrorIs(t, err, recorder.ErrStorage)
	assert.Equal(t, Recording, m.State())
	assert.Empty(t, transport.Written, "no playback before the recording exists")
}

func TestFlushRunsAtCaptureToPlaybackBoundary(t *testing.T) {
	transport := &mock.Transport{}
	m := New(transport, testInfo, testConfig(t, t.TempDir()), nil)

	require.NoError(t, m.Step()) // record
	assert.Empty(t, transport.MuteCalls)

	require.NoError(t, m.Step()) // flush, then play own recording
	assert.Equal(t, []bool{true, false}, transport.MuteCalls[:2], "flush brackets the direction switch")
}

func TestFlushDisabled(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.FlushEnabled = false

	transport := &mock.Transport{}
	m := New(transport, testInfo, cfg, nil)

	require.NoError(t, m.Run())
	assert.NotContains(t, transport.MuteCalls, true, "no mute cycle without the flusher")
}
