// Package admin serves the read-only observation surface: health, Prometheus
// metrics, JSON statistics, the recent-activity log, and a WebSocket stream
// that pushes statistics snapshots to display clients.
//
// Everything here only reads pipeline state. A slow or stuck admin client
// can never touch the relay path.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ronojak/Relay-App/pkg/pipeline"
)

// DefaultPushInterval is how often the WebSocket stream pushes a snapshot.
const DefaultPushInterval = time.Second

// Config configures the admin HTTP server.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:8743".
	Addr string

	// Pipeline is the orchestrator to observe.
	Pipeline *pipeline.Orchestrator

	// Registry is the Prometheus registry served at /metrics.
	// Nil disables the endpoint.
	Registry *prometheus.Registry

	// PushInterval is the WebSocket snapshot cadence.
	// Default: DefaultPushInterval.
	PushInterval time.Duration

	// Logger receives structured log output. Defaults to slog.Default.
	Logger *slog.Logger
}

// Server is the admin HTTP server.
type Server struct {
	cfg      *Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	conns    map[*websocket.Conn]struct{}

	streamWg sync.WaitGroup
}

// New creates an admin server. Start must be called to begin serving.
func New(cfg *Config) *Server {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = DefaultPushInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The admin surface binds to loopback by default; display
				// clients connect from file:// or localhost origins.
				return true
			},
		},
	}
	return s
}

// router builds the HTTP route tree.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/activity", s.handleActivity)
	r.Get("/ws/stats", s.handleStatsStream)
	if s.cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			s.cfg.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Start binds the listen address and serves in the background. A bind
// failure is returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.listener = ln
	s.httpSrv = srv
	s.mu.Unlock()

	s.logger.Info("admin listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("admin server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the server and waits for open WebSocket streams to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)

	// Shutdown does not touch hijacked connections; close the streams
	// ourselves so their goroutines exit.
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.streamWg.Wait()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Pipeline.Stats())
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid n"})
			return
		}
		n = parsed
	}
	entries := s.cfg.Pipeline.Activity(n)
	if entries == nil {
		entries = []pipeline.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleStatsStream upgrades to WebSocket and pushes a statistics snapshot
// on every tick until the client goes away.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	s.streamWg.Add(1)
	go func() {
		defer s.streamWg.Done()
		s.pushStats(conn)
	}()

	// Reads only detect disconnection; inbound content is ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) pushStats(conn *websocket.Conn) {
	ticker := time.NewTicker(s.cfg.PushInterval)
	defer ticker.Stop()

	// Immediate first snapshot so clients render without waiting a tick.
	for {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(s.cfg.Pipeline.Stats()); err != nil {
			conn.Close()
			return
		}
		<-ticker.C
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
