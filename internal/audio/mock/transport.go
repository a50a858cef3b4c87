// Package mock provides a scripted in-memory Transport for tests.
package mock

import (
	"sync"
)

// Transport implements audio.Transport without hardware. Reads are served
// from a script of chunk sizes so tests can reproduce the short,
// unpredictably sized transfers a real peripheral delivers; writes are
// captured for inspection.
type Transport struct {
	mu sync.Mutex

	// ReadChunks scripts the byte counts returned by successive reads.
	// Once exhausted, reads fill the whole buffer.
	ReadChunks []int
	// ReadErr, when set, fails every read.
	ReadErr error
	// WriteErr, when set, fails every write.
	WriteErr error
	// ShortWrites caps the bytes consumed per write when > 0.
	ShortWrites int
	// FillByte is the value captured reads are filled with.
	FillByte byte

	Written   []byte
	Reads     int
	Muted     bool
	MuteCalls []bool
	Closed    bool
}

func (t *Transport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ReadErr != nil {
		return 0, t.ReadErr
	}

	n := len(p)
	if t.Reads < len(t.ReadChunks) {
		n = t.ReadChunks[t.Reads]
		if n > len(p) {
			n = len(p)
		}
	}
	t.Reads++

	for i := 0; i < n; i++ {
		p[i] = t.FillByte
	}
	return n, nil
}

func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.WriteErr != nil {
		return 0, t.WriteErr
	}

	n := len(p)
	if t.ShortWrites > 0 && n > t.ShortWrites {
		n = t.ShortWrites
	}
	t.Written = append(t.Written, p[:n]...)
	return n, nil
}

func (t *Transport) SetMute(muted bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Muted = muted
	t.MuteCalls = append(t.MuteCalls, muted)
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	return nil
}
