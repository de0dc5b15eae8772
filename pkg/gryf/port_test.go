package gryf

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort is an in-memory Port. Lines injected by the test are read by the
// API; lines written by the API are recorded.
type fakePort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu      sync.Mutex
	written []string
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{r: r, w: w}
}

func (p *fakePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, strings.TrimSuffix(string(b), LineTerminator))
	return len(b), nil
}

func (p *fakePort) Close() error {
	_ = p.r.Close()
	return nil
}

// hangUp simulates the device disappearing.
func (p *fakePort) hangUp() {
	_ = p.w.Close()
}

func (p *fakePort) inject(t *testing.T, line string) {
	t.Helper()
	_, err := p.w.Write([]byte(line + LineTerminator))
	require.NoError(t, err)
}

func (p *fakePort) lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

func (p *fakePort) waitFor(t *testing.T, line string) {
	t.Helper()
	assert.Eventually(t, func() bool {
		for _, l := range p.lines() {
			if l == line {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "line %q never written; got %v", line, p.lines())
}

func newTestAPI(t *testing.T) (*API, *fakePort) {
	t.Helper()
	port := newFakePort()
	api := NewAPI("/dev/fake", WithOpener(func(string, int) (Port, error) {
		return port, nil
	}))
	require.NoError(t, api.StartConnection(t.Context()))
	t.Cleanup(func() { _ = api.Close() })
	return api, port
}

// recv waits for one value on ch.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for callback")
		var zero T
		return zero
	}
}
