package relay

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ronojak/Relay-App/pkg/protocol"
)

// SessionState is the lifecycle state of a client session.
// Connected is the only live state; Disconnected and Error are terminal.
type SessionState int32

const (
	SessionConnected    SessionState = iota // Both loops running
	SessionDisconnected                     // Remote closed or session torn down
	SessionError                            // Hard transport failure
)

// String returns the string representation of the session state.
func (st SessionState) String() string {
	switch st {
	case SessionConnected:
		return "Connected"
	case SessionDisconnected:
		return "Disconnected"
	case SessionError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Session owns one accepted connection: a send queue, a transmit loop that
// drains the queue to the socket, and a receive loop that observes inbound
// bytes for liveness. Exactly one session may be alive at a time; it is
// created and owned by the Server.
type Session struct {
	conn    net.Conn
	queue   *SendQueue
	config  *Config
	logger  *slog.Logger
	metrics *Metrics

	state     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	transmitted atomic.Uint64
	bytesSent   atomic.Uint64
	errorCount  atomic.Uint64
	pings       atomic.Uint64
	startedAt   time.Time

	// onClose is invoked exactly once, after the socket and queue are
	// released. The server uses it to accumulate statistics and return to
	// listening.
	onClose func(*Session)
}

// newSession creates a session for an accepted connection and configures
// the transport for low-latency delivery. Loops are not started until
// start is called.
func newSession(conn net.Conn, config *Config, onClose func(*Session)) *Session {
	s := &Session{
		conn:      conn,
		queue:     NewSendQueue(config.QueueCapacity),
		config:    config,
		logger:    config.Logger.With("remote", conn.RemoteAddr().String()),
		metrics:   config.Metrics,
		done:      make(chan struct{}),
		startedAt: time.Now(),
		onClose:   onClose,
	}
	s.queue.SetEvictHook(s.metrics.RecordDropped)
	s.state.Store(int32(SessionConnected))
	s.tuneConn()
	return s
}

// tuneConn disables send coalescing and enables keepalive probing.
// Liveness is inferred from keepalive and read/write failures; there are no
// application-level deadlines on individual sends.
func (s *Session) tuneConn() {
	tc, ok := s.conn.(*net.TCPConn)
	if !ok {
		return
	}
	if err := tc.SetNoDelay(true); err != nil {
		s.logger.Warn("set nodelay failed", "error", err)
	}
	if err := tc.SetKeepAlive(true); err != nil {
		s.logger.Warn("set keepalive failed", "error", err)
	}
	if err := tc.SetKeepAlivePeriod(s.config.KeepAlivePeriod); err != nil {
		s.logger.Warn("set keepalive period failed", "error", err)
	}
}

// start launches the transmit and receive loops.
func (s *Session) start() {
	s.wg.Add(2)
	go s.transmitLoop()
	go s.receiveLoop()
}

// Send enqueues a serialized frame for transmission without blocking.
// Frames sent to a dead session are silently discarded.
func (s *Session) Send(frame []byte) {
	if !s.IsAlive() {
		return
	}
	s.queue.Offer(frame)
	s.metrics.RecordOffered()
}

// IsAlive reports whether the session is connected and not shutting down.
func (s *Session) IsAlive() bool {
	if SessionState(s.state.Load()) != SessionConnected {
		return false
	}
	return !s.closing()
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// RemoteAddr returns the client's remote address.
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		Offered:     s.queue.Offered(),
		Dropped:     s.queue.Dropped(),
		Transmitted: s.transmitted.Load(),
		BytesSent:   s.bytesSent.Load(),
		Errors:      s.errorCount.Load(),
		Pings:       s.pings.Load(),
		StartedAt:   s.startedAt,
	}
}

// Close is idempotent. It cancels both loops, clears the queue, and
// releases the socket on every exit path, then reports the closure once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.CompareAndSwap(int32(SessionConnected), int32(SessionDisconnected))
		close(s.done)
		s.conn.Close()
		s.queue.Clear()
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// wait blocks until both loops have exited. Used by the server on Stop and
// by tests; Close itself never waits, since loops call Close on their own
// exit paths.
func (s *Session) wait() {
	s.wg.Wait()
}

// closing reports whether Close has begun.
func (s *Session) closing() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// fail records a hard transport failure and tears the session down.
func (s *Session) fail(terr *TransportError) {
	s.errorCount.Add(1)
	s.metrics.RecordTransportError(terr.Op)
	if s.state.CompareAndSwap(int32(SessionConnected), int32(SessionError)) {
		s.logger.Error("transport error", "op", terr.Op, "error", terr.Err)
	}
	s.Close()
}

// disconnect records a clean remote close and tears the session down.
func (s *Session) disconnect() {
	if s.state.CompareAndSwap(int32(SessionConnected), int32(SessionDisconnected)) {
		s.logger.Info("client disconnected")
	}
	s.Close()
}

// transmitLoop drains the send queue to the socket. When the queue is
// empty it parks on the queue's ready signal with a short timeout so new
// frames resume transmission well under the 8.33ms frame interval.
func (s *Session) transmitLoop() {
	defer s.wg.Done()

	for {
		frame, ok := s.queue.Poll()
		if !ok {
			select {
			case <-s.done:
				return
			case <-s.queue.Ready():
			case <-time.After(s.config.IdlePollInterval):
			}
			continue
		}

		if _, err := s.conn.Write(frame); err != nil {
			if s.closing() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.fail(&TransportError{Op: "write", Err: err})
			return
		}

		s.transmitted.Add(1)
		s.bytesSent.Add(uint64(len(frame)))
		s.metrics.RecordTransmitted(len(frame))
	}
}

// receiveLoop drains inbound bytes and reports liveness. Received frames
// are only inspected for diagnostics; there is no request/response coupling
// with transmission.
func (s *Session) receiveLoop() {
	defer s.wg.Done()

	buf := make([]byte, s.config.ReadBufferSize)
	var pending []byte

	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			pending = s.consumeInbound(pending)
		}
		if err == nil {
			continue
		}

		switch {
		case s.closing() || errors.Is(err, net.ErrClosed):
			return

		case errors.Is(err, io.EOF), errors.Is(err, syscall.ECONNRESET):
			// Remote closed or reset: a disconnect, not a relay failure.
			s.disconnect()
			return

		default:
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// Socket still usable, count and keep reading.
				s.errorCount.Add(1)
				s.metrics.RecordTransportError("read")
				continue
			}
			s.fail(&TransportError{Op: "read", Err: err})
			return
		}
	}
}

// consumeInbound reassembles frames from the inbound byte stream using the
// header-only validator and returns the unconsumed remainder. Complete ping
// frames are counted; anything malformed discards the buffer, since a byte
// stream offers no way to resynchronize mid-frame.
func (s *Session) consumeInbound(pending []byte) []byte {
	for {
		if len(pending) < protocol.EnvelopeSize {
			return pending
		}

		total, err := protocol.FrameLen(pending)
		if err != nil {
			s.errorCount.Add(1)
			s.logger.Warn("malformed inbound frame", "error", err)
			return pending[:0]
		}
		if len(pending) < total {
			return pending
		}

		env, _, err := protocol.DecodeFrame(pending[:total])
		if err == nil && env.Type == protocol.MsgPing {
			s.pings.Add(1)
			s.metrics.RecordPing()
			s.logger.Debug("ping received", "seq", env.Seq)
		}
		pending = pending[total:]
	}
}
