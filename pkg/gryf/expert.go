package gryf

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// expertQueueSize bounds the lines buffered per client; a client that
	// falls further behind misses lines.
	expertQueueSize = 256

	expertWriteTimeout = 5 * time.Second
)

// Expert is a TCP diagnostic server. Every raw bus line is copied to the
// connected clients prefixed with its direction ("in"/"out"), and every line
// a client sends is written to the bus as-is.
type Expert struct {
	api  *API
	addr string

	mu      sync.Mutex
	ln      net.Listener
	clients map[net.Conn]chan string
	detach  []func()
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	boundTo string
}

// NewExpert creates an expert server for api listening on addr.
func NewExpert(api *API, addr string) *Expert {
	return &Expert{api: api, addr: addr, clients: make(map[net.Conn]chan string)}
}

// Running reports whether the server is listening.
func (e *Expert) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ln != nil
}

// Addr returns the bound address while running, else the configured one.
func (e *Expert) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.boundTo != "" {
		return e.boundTo
	}
	return e.addr
}

// StartServer starts listening. Starting a running server is a no-op.
func (e *Expert) StartServer(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ln != nil {
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", e.addr)
	if err != nil {
		return fmt.Errorf("expert listen %s: %w", e.addr, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.ln = ln
	e.cancel = cancel
	e.boundTo = ln.Addr().String()
	e.detach = []func(){
		e.api.OnLine(DirectionIn, func(line string) { e.broadcast(DirectionIn, line) }),
		e.api.OnLine(DirectionOut, func(line string) { e.broadcast(DirectionOut, line) }),
	}

	e.wg.Add(1)
	go e.acceptLoop(runCtx, ln)

	log.Info().Str("addr", e.boundTo).Str("port", e.api.Port()).Msg("Expert server started")
	return nil
}

// StopServer closes the listener and every client. Stopping a stopped server
// is a no-op.
func (e *Expert) StopServer() error {
	e.mu.Lock()
	if e.ln == nil {
		e.mu.Unlock()
		return nil
	}
	ln := e.ln
	e.ln = nil
	e.boundTo = ""
	e.cancel()
	for _, d := range e.detach {
		d()
	}
	e.detach = nil
	for c := range e.clients {
		_ = c.Close()
	}
	e.mu.Unlock()

	err := ln.Close()
	e.wg.Wait()

	log.Info().Str("addr", e.addr).Msg("Expert server stopped")
	return err
}

func (e *Expert) acceptLoop(ctx context.Context, ln net.Listener) {
	defer e.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Warn().Err(err).Msg("Expert accept failed")
			}
			return
		}

		if !e.addClient(ctx, ln, conn) {
			_ = conn.Close()
			return
		}
		log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Expert client connected")
	}
}

// addClient registers conn and starts its reader and writer. It reports
// false when ln is no longer the active listener.
func (e *Expert) addClient(ctx context.Context, ln net.Listener, conn net.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ln == nil || e.ln != ln {
		return false
	}

	out := make(chan string, expertQueueSize)
	e.clients[conn] = out

	e.wg.Add(2)
	go e.serve(ctx, conn, out)
	go e.write(conn, out)
	return true
}

func (e *Expert) serve(ctx context.Context, conn net.Conn, out chan string) {
	defer e.wg.Done()
	defer func() {
		e.mu.Lock()
		delete(e.clients, conn)
		close(out)
		e.mu.Unlock()
		_ = conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := e.api.Send(ctx, line); err != nil {
			log.Warn().Err(err).Str("line", line).Msg("Expert command failed")
			e.enqueue(out, fmt.Sprintf("error %v\n", err))
		}
	}
}

// write drains out to conn. A failed or timed-out write closes the
// connection, which ends serve and closes out.
func (e *Expert) write(conn net.Conn, out <-chan string) {
	defer e.wg.Done()
	for msg := range out {
		_ = conn.SetWriteDeadline(time.Now().Add(expertWriteTimeout))
		if _, err := conn.Write([]byte(msg)); err != nil {
			log.Debug().Err(err).Msg("Expert client write failed")
			_ = conn.Close()
			for range out {
			}
			return
		}
	}
}

func (e *Expert) broadcast(dir Direction, line string) {
	msg := dir.String() + " " + line + "\n"

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, out := range e.clients {
		select {
		case out <- msg:
		default:
		}
	}
}

func (e *Expert) enqueue(out chan string, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case out <- msg:
	default:
	}
}
