package gryf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Direction tells raw line observers which way a line travelled.
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
)

func (d Direction) String() string {
	if d == DirectionOut {
		return "out"
	}
	return "in"
}

type handlerKey struct {
	fn     Function
	module int
}

// API owns one serial link to the Gryf bus. It reads lines on its own
// goroutine, dispatches parsed frames to device subscribers and polls the
// modules on an interval.
type API struct {
	path           string
	baud           int
	open           Opener
	reconnectDelay time.Duration

	mu          sync.RWMutex
	port        Port
	connected   bool
	running     bool
	moduleCount int
	found       map[int]int
	cancel      context.CancelFunc
	runCtx      context.Context
	pollCancel  context.CancelFunc

	writeMu sync.Mutex

	handlersMu sync.RWMutex
	nextID     int
	handlers   map[handlerKey]map[int]func(Frame)
	observers  map[int]lineObserver

	wg sync.WaitGroup
}

type lineObserver struct {
	dir Direction
	fn  func(string)
}

// Option configures an API.
type Option func(*API)

// WithBaudRate overrides the default 115200 baud.
func WithBaudRate(baud int) Option {
	return func(a *API) { a.baud = baud }
}

// WithOpener replaces the serial opener. Used by tests.
func WithOpener(open Opener) Option {
	return func(a *API) { a.open = open }
}

// WithReconnectDelay sets the pause between reopen attempts after the link drops.
func WithReconnectDelay(d time.Duration) Option {
	return func(a *API) { a.reconnectDelay = d }
}

// NewAPI creates an API for the serial device at path. No I/O happens until
// StartConnection.
func NewAPI(path string, opts ...Option) *API {
	a := &API{
		path:           path,
		baud:           DefaultBaudRate,
		open:           OpenSerial,
		reconnectDelay: 5 * time.Second,
		moduleCount:    1,
		found:          make(map[int]int),
		handlers:       make(map[handlerKey]map[int]func(Frame)),
		observers:      make(map[int]lineObserver),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Port returns the serial device path.
func (a *API) Port() string { return a.path }

// StartConnection opens the port and starts the reader. Calling it on a
// running API is a no-op.
func (a *API) StartConnection(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}

	port, err := a.open(a.path, a.baud)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnection, a.path, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.port = port
	a.connected = true
	a.running = true
	a.runCtx = runCtx
	a.cancel = cancel

	a.wg.Add(1)
	go a.readLoop(runCtx, port)

	log.Info().Str("port", a.path).Msg("Gryf connection started")
	return nil
}

// SetModuleCount sets how many modules are polled and searched.
func (a *API) SetModuleCount(n int) {
	if n < 1 {
		n = 1
	}
	a.mu.Lock()
	a.moduleCount = n
	a.mu.Unlock()
}

// ModuleCount returns the configured module count.
func (a *API) ModuleCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.moduleCount
}

// IsConnected reports whether the serial link is up.
func (a *API) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connected
}

// StartUpdateInterval polls every module for input and output states. A
// second call replaces the running poller.
func (a *API) StartUpdateInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid update interval %s", interval)
	}

	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return ErrNotConnected
	}
	if a.pollCancel != nil {
		a.pollCancel()
	}
	ctx, cancel := context.WithCancel(a.runCtx)
	a.pollCancel = cancel
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := a.UpdateStates(ctx); err != nil && ctx.Err() == nil {
					log.Debug().Err(err).Str("port", a.path).Msg("Gryf poll failed")
				}
			}
		}
	}()

	log.Info().Str("port", a.path).Dur("interval", interval).Msg("Gryf update interval started")
	return nil
}

// UpdateStates asks every module for its current input and output states.
func (a *API) UpdateStates(ctx context.Context) error {
	for m := 1; m <= a.ModuleCount(); m++ {
		if err := a.Send(ctx, EncodeStateInputs(m)); err != nil {
			return err
		}
		if err := a.Send(ctx, EncodeStateOutputs(m)); err != nil {
			return err
		}
	}
	return nil
}

// Reset resets a single module, or the whole bus when all is set.
func (a *API) Reset(ctx context.Context, module int, all bool) error {
	if all {
		module = 0
	}
	log.Info().Int("module", module).Bool("all", all).Msg("Gryf reset")
	return a.Send(ctx, EncodeReset(module))
}

// SearchModules asks modules 1..count to identify themselves. Answers are
// collected and returned by FoundModules.
func (a *API) SearchModules(ctx context.Context, count int) error {
	for m := 1; m <= count; m++ {
		if err := a.Send(ctx, EncodeSearch(m)); err != nil {
			return err
		}
	}
	return nil
}

// FoundModules returns module -> reported version for every search answer seen.
func (a *API) FoundModules() map[int]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[int]int, len(a.found))
	for k, v := range a.found {
		out[k] = v
	}
	return out
}

// Send writes one line to the bus.
func (a *API) Send(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.RLock()
	port, connected := a.port, a.connected
	a.mu.RUnlock()
	if !connected || port == nil {
		return ErrNotConnected
	}

	a.writeMu.Lock()
	_, err := io.WriteString(port, line+LineTerminator)
	a.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write %q: %w", line, err)
	}

	log.Debug().Str("line", line).Msg("Gryf TX")
	a.notifyObservers(DirectionOut, line)
	return nil
}

// Subscribe registers cb for frames of fn from module. The returned func
// removes the registration.
func (a *API) Subscribe(fn Function, module int, cb func(Frame)) func() {
	key := handlerKey{fn: fn, module: module}

	a.handlersMu.Lock()
	a.nextID++
	id := a.nextID
	if a.handlers[key] == nil {
		a.handlers[key] = make(map[int]func(Frame))
	}
	a.handlers[key][id] = cb
	a.handlersMu.Unlock()

	return func() {
		a.handlersMu.Lock()
		delete(a.handlers[key], id)
		a.handlersMu.Unlock()
	}
}

// OnLine registers fn for every raw line travelling in dir. The returned
// func removes the registration.
func (a *API) OnLine(dir Direction, fn func(string)) func() {
	a.handlersMu.Lock()
	a.nextID++
	id := a.nextID
	a.observers[id] = lineObserver{dir: dir, fn: fn}
	a.handlersMu.Unlock()

	return func() {
		a.handlersMu.Lock()
		delete(a.observers, id)
		a.handlersMu.Unlock()
	}
}

// Close stops the poller and the reader and closes the port.
func (a *API) Close() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.connected = false
	a.cancel()
	port := a.port
	a.port = nil
	a.mu.Unlock()

	var err error
	if port != nil {
		err = port.Close()
	}
	a.wg.Wait()

	log.Info().Str("port", a.path).Msg("Gryf connection closed")
	return err
}

func (a *API) readLoop(ctx context.Context, port Port) {
	defer a.wg.Done()

	for {
		a.scan(port)
		if ctx.Err() != nil {
			return
		}

		a.mu.Lock()
		a.connected = false
		a.mu.Unlock()
		_ = port.Close()
		log.Warn().Str("port", a.path).Msg("Gryf serial link lost, reconnecting")

		port = a.reopen(ctx)
		if port == nil {
			return
		}
	}
}

func (a *API) reopen(ctx context.Context) Port {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(a.reconnectDelay):
		}

		port, err := a.open(a.path, a.baud)
		if err != nil {
			log.Error().Err(err).Str("port", a.path).Msg("Gryf reconnect failed")
			continue
		}

		a.mu.Lock()
		if ctx.Err() != nil {
			a.mu.Unlock()
			_ = port.Close()
			return nil
		}
		a.port = port
		a.connected = true
		a.mu.Unlock()

		log.Info().Str("port", a.path).Msg("Gryf serial link restored")
		return port
	}
}

func (a *API) scan(port Port) {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		a.handleLine(line)
	}
	if err := scanner.Err(); err != nil {
		log.Debug().Err(err).Str("port", a.path).Msg("Gryf read stopped")
	}
}

func (a *API) handleLine(line string) {
	log.Debug().Str("line", line).Msg("Gryf RX")
	a.notifyObservers(DirectionIn, line)

	frame, err := ParseFrame(line)
	if err != nil {
		log.Debug().Err(err).Msg("Ignoring bus line")
		return
	}

	if frame.Function == FuncSearch {
		a.mu.Lock()
		a.found[frame.Module] = frame.Pin()
		a.mu.Unlock()
		log.Info().Int("module", frame.Module).Int("version", frame.Pin()).Msg("Gryf module found")
	}

	key := handlerKey{fn: frame.Function, module: frame.Module}
	a.handlersMu.RLock()
	cbs := make([]func(Frame), 0, len(a.handlers[key]))
	for _, cb := range a.handlers[key] {
		cbs = append(cbs, cb)
	}
	a.handlersMu.RUnlock()

	for _, cb := range cbs {
		cb(frame)
	}
}

func (a *API) notifyObservers(dir Direction, line string) {
	a.handlersMu.RLock()
	fns := make([]func(string), 0, len(a.observers))
	for _, o := range a.observers {
		if o.dir == dir {
			fns = append(fns, o.fn)
		}
	}
	a.handlersMu.RUnlock()

	for _, fn := range fns {
		fn(line)
	}
}
