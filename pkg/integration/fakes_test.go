package integration

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/gryfd/pkg/db"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
	"github.com/urmzd/gryfd/pkg/platform"
)

// pipePort is an in-memory serial port.
type pipePort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu      sync.Mutex
	written []string
	closed  bool
}

func newPipePort() *pipePort {
	r, w := io.Pipe()
	return &pipePort{r: r, w: w}
}

func (p *pipePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *pipePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, strings.TrimSuffix(string(b), gryf.LineTerminator))
	return len(b), nil
}

func (p *pipePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.r.Close()
}

func (p *pipePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *pipePort) inject(t *testing.T, line string) {
	t.Helper()
	_, err := p.w.Write([]byte(line + gryf.LineTerminator))
	require.NoError(t, err)
}

func (p *pipePort) lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

func (p *pipePort) waitFor(t *testing.T, line string) {
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

// ports hands out one pipePort per path and counts opens.
type ports struct {
	mu    sync.Mutex
	byPth map[string]*pipePort
	opens map[string]int
	fail  map[string]bool
	holds map[string]*portHold
}

// portHold keeps an open of one path pending until released.
type portHold struct {
	entered chan struct{}
	release chan struct{}
}

func newPorts() *ports {
	return &ports{
		byPth: make(map[string]*pipePort),
		opens: make(map[string]int),
		fail:  make(map[string]bool),
		holds: make(map[string]*portHold),
	}
}

func (p *ports) hold(path string) *portHold {
	h := &portHold{entered: make(chan struct{}), release: make(chan struct{})}
	p.mu.Lock()
	p.holds[path] = h
	p.mu.Unlock()
	return h
}

func (p *ports) open(path string, _ int) (gryf.Port, error) {
	p.mu.Lock()
	h := p.holds[path]
	delete(p.holds, path)
	p.mu.Unlock()
	if h != nil {
		close(h.entered)
		<-h.release
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[path] {
		return nil, errors.New("no such device")
	}
	p.opens[path]++
	port := newPipePort()
	p.byPth[path] = port
	return port, nil
}

func (p *ports) get(path string) *pipePort {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byPth[path]
}

func (p *ports) openCount(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens[path]
}

func (p *ports) setFail(path string, fail bool) {
	p.mu.Lock()
	p.fail[path] = fail
	p.mu.Unlock()
}

// stubEntity is a minimal platform.Entity.
type stubEntity struct {
	info device.Entity

	mu       sync.Mutex
	state    device.State
	writer   platform.StateWriter
	handled  []map[string]any
	err      error
	detached bool
	restores bool
}

func newStubEntity(id string, schema string) *stubEntity {
	e := &stubEntity{
		info:  device.Entity{ID: id, Name: id, Component: device.ComponentSwitch, EntryID: "e1"},
		state: device.State{"state": device.StateOff},
	}
	if schema != "" {
		e.info.StateSchema = []byte(schema)
	}
	return e
}

func (s *stubEntity) Info() device.Entity { return s.info }

func (s *stubEntity) State() device.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *stubEntity) Handle(_ context.Context, cmd map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handled = append(s.handled, cmd)
	if s.err != nil {
		return s.err
	}
	if v, ok := cmd["state"].(string); ok {
		s.state["state"] = v
	}
	return nil
}

func (s *stubEntity) Attach(_ context.Context, w platform.StateWriter, _ platform.Restorer) {
	s.mu.Lock()
	s.writer = w
	s.mu.Unlock()
	w.WriteState(s.info.ID, s.State())
}

func (s *stubEntity) RestoresState() bool { return s.restores }

func (s *stubEntity) Detach() {
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
}

// emit publishes a state through the attached writer.
func (s *stubEntity) emit(st device.State) {
	s.mu.Lock()
	s.state = st
	w := s.writer
	s.mu.Unlock()
	w.WriteState(s.info.ID, st.Clone())
}

// countingStore is a db.StateStore counting writes per entity.
type countingStore struct {
	mu     sync.Mutex
	puts   map[string]int
	states map[string]device.State
}

func newCountingStore() *countingStore {
	return &countingStore{puts: make(map[string]int), states: make(map[string]device.State)}
}

func (c *countingStore) Get(_ context.Context, id string) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[id]
	if !ok {
		return nil, db.ErrStateNotFound
	}
	return s, nil
}

func (c *countingStore) Put(_ context.Context, id string, s map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts[id]++
	c.states[id] = s
	return nil
}

func (c *countingStore) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, id)
	return nil
}

func (c *countingStore) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts[id]
}

// sinkRecorder is a device.Sink recording calls in order.
type sinkRecorder struct {
	mu     sync.Mutex
	events []string
	states map[string]device.State
}

func newSinkRecorder() *sinkRecorder {
	return &sinkRecorder{states: make(map[string]device.State)}
}

func (r *sinkRecorder) EntityAdded(e device.Entity, _ device.State) {
	r.mu.Lock()
	r.events = append(r.events, "added:"+e.ID)
	r.mu.Unlock()
}

func (r *sinkRecorder) EntityRemoved(id string) {
	r.mu.Lock()
	r.events = append(r.events, "removed:"+id)
	r.mu.Unlock()
}

func (r *sinkRecorder) StateChanged(id string, s device.State) {
	r.mu.Lock()
	r.events = append(r.events, "state:"+id)
	r.states[id] = s
	r.mu.Unlock()
}

func (r *sinkRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "gryfd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	require.NoError(t, d.Migrate(context.Background()))
	return d
}

// recv waits for one value on ch.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for result")
		var zero T
		return zero
	}
}
