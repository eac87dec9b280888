package relay

import (
	"log/slog"
	"time"
)

// Defaults for the relay server.
const (
	// DefaultPort is the default listen port.
	DefaultPort = 26543

	// DefaultQueueCapacity is the default send queue capacity, roughly one
	// second of buffer at the maximum emission rate of 120Hz.
	DefaultQueueCapacity = 120
)

// ClientEventKind identifies a session lifecycle event.
type ClientEventKind int

const (
	ClientConnected ClientEventKind = iota
	ClientReplaced
	ClientDisconnected
	ClientErrored
)

// String returns the string representation of the event kind.
func (k ClientEventKind) String() string {
	switch k {
	case ClientConnected:
		return "connected"
	case ClientReplaced:
		return "replaced"
	case ClientDisconnected:
		return "disconnected"
	case ClientErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ClientEvent describes a session lifecycle transition, delivered to the
// Config.OnClientEvent callback.
type ClientEvent struct {
	Kind       ClientEventKind
	RemoteAddr string
	Time       time.Time
	Err        error // Set for ClientErrored
}

// Config holds configuration for the relay server and its sessions.
type Config struct {
	// Port is the TCP listen port. 0 selects an ephemeral port.
	// Default: 26543.
	Port int

	// QueueCapacity is the per-session send queue capacity.
	// Default: 120.
	QueueCapacity int

	// KeepAlivePeriod is the TCP keepalive probe interval used to infer
	// client liveness; there are no application-level send deadlines.
	// Default: 10 seconds.
	KeepAlivePeriod time.Duration

	// IdlePollInterval is how long the transmit loop sleeps when the queue
	// is empty. Must stay well under the 8.33ms frame interval so new data
	// resumes transmission promptly.
	// Default: 1 millisecond.
	IdlePollInterval time.Duration

	// ReadBufferSize is the receive loop's read buffer size.
	// Default: 512.
	ReadBufferSize int

	// Logger is the structured logger. Default: slog.Default().
	Logger *slog.Logger

	// Metrics receives Prometheus counters. Nil disables collection.
	Metrics *Metrics

	// OnClientEvent, if set, is invoked for session lifecycle transitions.
	// It is called from server and session goroutines and must not block.
	OnClientEvent func(ClientEvent)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:             DefaultPort,
		QueueCapacity:    DefaultQueueCapacity,
		KeepAlivePeriod:  10 * time.Second,
		IdlePollInterval: time.Millisecond,
		ReadBufferSize:   512,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// withDefaults fills zero fields with defaults and returns the config.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	out := c.Clone()
	def := DefaultConfig()
	if out.QueueCapacity <= 0 {
		out.QueueCapacity = def.QueueCapacity
	}
	if out.KeepAlivePeriod <= 0 {
		out.KeepAlivePeriod = def.KeepAlivePeriod
	}
	if out.IdlePollInterval <= 0 {
		out.IdlePollInterval = def.IdlePollInterval
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = def.ReadBufferSize
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}
