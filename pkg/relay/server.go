package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ronojak/Relay-App/pkg/protocol"
)

// ServerState is the lifecycle state of the relay server.
type ServerState int32

const (
	StateStopped ServerState = iota
	StateStarting
	StateListening
	StateClientConnected
	StateError
)

// String returns the string representation of the server state.
func (st ServerState) String() string {
	switch st {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateListening:
		return "Listening"
	case StateClientConnected:
		return "ClientConnected"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Server owns the listening socket, accepts connections, and enforces the
// single-active-client invariant: each accepted connection replaces any
// prior session. Broadcast hands frames to the current session's queue, or
// is a silent no-op when no client is connected.
type Server struct {
	config  *Config
	logger  *slog.Logger
	metrics *Metrics

	state atomic.Int32

	mu       sync.Mutex // Guards listener, session, totals
	listener net.Listener
	session  *Session
	totals   SessionStats // Accumulated counters of closed sessions

	// seq is the frame sequence counter, shared across reconnects. It is
	// reset only by process restart.
	seq atomic.Uint32

	noClientDrops atomic.Uint64

	// stopped latches once Stop completes. A stopped server is not
	// restartable; Start reports ErrServerStopped instead.
	stopped atomic.Bool

	acceptWg sync.WaitGroup
}

// NewServer creates a relay server with the given configuration.
// A nil config uses DefaultConfig.
func NewServer(config *Config) *Server {
	cfg := config.withDefaults()
	return &Server{
		config:  cfg,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Start binds the listening socket and begins the accept loop. It returns
// a *BindError if the port is unavailable, leaving the server in the Error
// state; that is the one failure that blocks the entire relay. A server
// that has been stopped cannot be started again: Start then returns
// ErrServerStopped.
func (s *Server) Start() error {
	if s.stopped.Load() {
		return ErrServerStopped
	}
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) &&
		!s.state.CompareAndSwap(int32(StateError), int32(StateStarting)) {
		return ErrAlreadyStarted
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.state.Store(int32(StateError))
		s.logger.Error("bind failed", "addr", addr, "error", err)
		return &BindError{Addr: addr, Err: err}
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.state.Store(int32(StateListening))
	s.logger.Info("relay listening", "addr", ln.Addr().String())

	s.acceptWg.Add(1)
	go s.acceptLoop(ln)

	return nil
}

// Addr returns the bound listen address, or nil when not listening.
// Useful with Port 0 (ephemeral).
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// State returns the current server state.
func (s *Server) State() ServerState {
	return ServerState(s.state.Load())
}

// acceptLoop accepts connections until the listener is closed. It blocks
// only while idle, never behind a slow existing client: replacement closes
// the old session without waiting for its loops to finish.
func (s *Server) acceptLoop(ln net.Listener) {
	defer s.acceptWg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		s.attach(conn)
	}
}

// attach installs a new session for an accepted connection, replacing and
// closing any prior one. This is the deliberate single-client model: a new
// physical client always wins.
func (s *Server) attach(conn net.Conn) {
	sess := newSession(conn, s.config, s.detach)

	s.mu.Lock()
	old := s.session
	s.session = sess
	s.mu.Unlock()

	replaced := old != nil
	if replaced {
		s.logger.Info("replacing active client",
			"old", old.RemoteAddr(),
			"new", sess.RemoteAddr())
		s.emit(ClientEvent{Kind: ClientReplaced, RemoteAddr: old.RemoteAddr(), Time: time.Now()})
		old.Close()
	} else {
		s.logger.Info("client connected", "remote", sess.RemoteAddr())
	}

	s.metrics.RecordConnect(replaced)
	s.emit(ClientEvent{Kind: ClientConnected, RemoteAddr: sess.RemoteAddr(), Time: time.Now()})

	s.state.CompareAndSwap(int32(StateListening), int32(StateClientConnected))
	sess.start()
}

// detach is the session onClose callback. It accumulates the session's
// final counters and, if the session was still the active one, returns the
// server to Listening.
func (s *Server) detach(sess *Session) {
	s.mu.Lock()
	s.totals.add(sess.Stats())
	active := s.session == sess
	if active {
		s.session = nil
	}
	s.mu.Unlock()

	if !active {
		return
	}

	s.metrics.RecordDisconnect()
	s.state.CompareAndSwap(int32(StateClientConnected), int32(StateListening))

	kind := ClientDisconnected
	var err error
	if sess.State() == SessionError {
		kind = ClientErrored
		err = &TransportError{Op: "session", Err: ErrSessionClosed}
	}
	s.emit(ClientEvent{Kind: kind, RemoteAddr: sess.RemoteAddr(), Time: time.Now(), Err: err})
}

// Broadcast encodes the state with the next sequence number and hands the
// frame to the active session's queue. With no client connected it is a
// silent no-op, reported via statistics: real-time producers must never
// block or error merely because nobody is listening.
func (s *Server) Broadcast(st *protocol.ControllerState) {
	sess := s.current()
	if sess == nil || !sess.IsAlive() {
		s.noClientDrops.Add(1)
		s.metrics.RecordNoClientDrop()
		return
	}

	frame := protocol.EncodeState(st, s.seq.Add(1))
	sess.Send(frame)
}

// current returns the active session, or nil.
func (s *Server) current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Stop closes the listening socket and waits for the accept loop to exit
// before tearing down the current session. The ordering matters: closing the
// session first would leave a window in which the still-live accept loop
// attaches a fresh client that Stop never sweeps. It is idempotent, and a
// stopped server cannot be restarted.
func (s *Server) Stop() {
	state := ServerState(s.state.Load())
	if state == StateStopped {
		return
	}

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	s.acceptWg.Wait()

	// No attach can run past this point, so whatever session is current now
	// is the last one.
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess != nil {
		sess.Close()
		sess.wait()
	}

	s.stopped.Store(true)
	s.state.Store(int32(StateStopped))
	s.logger.Info("relay stopped")
}

// Stats returns a snapshot of server-wide statistics. Totals combine
// closed sessions with the live session, so counters are monotonic across
// client replacement.
func (s *Server) Stats() ServerStats {
	s.mu.Lock()
	totals := s.totals
	sess := s.session
	s.mu.Unlock()

	st := ServerStats{
		State:         s.State().String(),
		Seq:           s.seq.Load(),
		NoClientDrops: s.noClientDrops.Load(),
		Totals:        totals,
	}
	if sess != nil {
		live := sess.Stats()
		st.Totals.add(live)
		st.Totals.StartedAt = live.StartedAt
		st.ClientConnected = sess.IsAlive()
		st.RemoteAddr = sess.RemoteAddr()
	}
	return st
}

// emit delivers a client event to the configured callback.
func (s *Server) emit(ev ClientEvent) {
	if s.config.OnClientEvent != nil {
		s.config.OnClientEvent(ev)
	}
}
