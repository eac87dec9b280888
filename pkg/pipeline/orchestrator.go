package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ronojak/Relay-App/pkg/input"
	"github.com/ronojak/Relay-App/pkg/relay"
)

// Default tracer name for the relay pipeline.
const defaultTracerName = "relay"

// Config configures the orchestrator and the components it constructs.
type Config struct {
	// Relay configures the server. A nil value uses relay.DefaultConfig.
	Relay *relay.Config

	// Normalizer configures the input normalizer. A nil value uses
	// input.DefaultConfig.
	Normalizer *input.Config

	// ActivityCapacity bounds the recent-activity log.
	ActivityCapacity int

	// RateWindow is the sliding window for the current-rate statistic.
	RateWindow time.Duration

	// TracerName names the OpenTelemetry tracer (default: "relay").
	// Spans are recorded through the global tracer provider.
	TracerName string

	// Logger receives structured log output. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() *Config {
	return &Config{
		ActivityCapacity: DefaultActivityCapacity,
		RateWindow:       time.Second,
		TracerName:       defaultTracerName,
	}
}

func (c *Config) withDefaults() *Config {
	var cfg Config
	if c != nil {
		cfg = *c
	}
	if cfg.ActivityCapacity <= 0 {
		cfg.ActivityCapacity = DefaultActivityCapacity
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Second
	}
	if cfg.TracerName == "" {
		cfg.TracerName = defaultTracerName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &cfg
}

// Stats is an aggregate snapshot of the whole pipeline.
type Stats struct {
	Uptime      time.Duration     `json:"uptime"`
	CurrentRate float64           `json:"current_rate"` // Frames per second, sliding window
	DropRate    float64           `json:"drop_rate"`
	Server      relay.ServerStats `json:"server"`
	Normalizer  input.Stats       `json:"normalizer"`
}

// Orchestrator owns the relay server and the input normalizer it constructs
// and moves snapshots between them. Input enters via Offer, frames leave via
// the server's active session. No component holds a reference back into the
// orchestrator; ownership is strictly top-down.
type Orchestrator struct {
	cfg    *Config
	logger *slog.Logger
	tracer trace.Tracer

	server *relay.Server
	norm   *input.Normalizer
	log    *ActivityLog
	rate   *rateMeter

	mu        sync.Mutex
	started   bool
	stopped   bool
	startedAt time.Time
	runCtx    context.Context
	runSpan   trace.Span
	clients   map[string]trace.Span

	pumpWg sync.WaitGroup
}

// New creates an orchestrator and the server and normalizer it owns.
// A nil config uses DefaultConfig.
func New(config *Config) *Orchestrator {
	cfg := config.withDefaults()

	o := &Orchestrator{
		cfg:     cfg,
		logger:  cfg.Logger,
		tracer:  otel.Tracer(cfg.TracerName),
		log:     NewActivityLog(cfg.ActivityCapacity),
		rate:    newRateMeter(cfg.RateWindow),
		clients: make(map[string]trace.Span),
	}

	relayCfg := cfg.Relay.Clone()
	if relayCfg == nil {
		relayCfg = relay.DefaultConfig()
	}
	if relayCfg.Logger == nil {
		relayCfg.Logger = cfg.Logger
	}
	chained := relayCfg.OnClientEvent
	relayCfg.OnClientEvent = func(ev relay.ClientEvent) {
		o.observeClientEvent(ev)
		if chained != nil {
			chained(ev)
		}
	}
	o.server = relay.NewServer(relayCfg)

	normCfg := cfg.Normalizer.Clone()
	if normCfg.Logger == nil {
		normCfg.Logger = cfg.Logger
	}
	o.norm = input.NewNormalizer(normCfg)

	return o
}

// Start binds the relay server and starts the pump goroutine. A bind
// failure is returned as-is; it blocks the entire relay and the caller must
// surface it loudly.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return relay.ErrAlreadyStarted
	}
	o.started = true
	o.mu.Unlock()

	if err := o.server.Start(); err != nil {
		o.log.Append(LevelError, "bind failed: %v", err)
		return err
	}

	runCtx, runSpan := o.tracer.Start(ctx, "relay.run",
		trace.WithAttributes(attribute.String("relay.addr", o.server.Addr().String())))

	o.mu.Lock()
	o.startedAt = time.Now()
	o.runCtx = runCtx
	o.runSpan = runSpan
	o.mu.Unlock()

	o.log.Append(LevelInfo, "relay listening on %s", o.server.Addr())

	o.pumpWg.Add(1)
	go o.pump()

	return nil
}

// pump moves snapshots from the normalizer to the server until the
// normalizer channel closes.
func (o *Orchestrator) pump() {
	defer o.pumpWg.Done()

	for st := range o.norm.States() {
		o.server.Broadcast(&st)
		o.rate.mark(time.Now())
	}
}

// Offer feeds one raw sample into the pipeline.
func (o *Orchestrator) Offer(sample input.Sample) {
	o.norm.Offer(sample)
}

// Disconnect emits a reset snapshot for the device.
func (o *Orchestrator) Disconnect(deviceID uint8) {
	o.norm.Disconnect(deviceID)
	o.log.Append(LevelWarn, "device %d disconnected", deviceID)
}

// Server returns the owned relay server, for read-only inspection.
func (o *Orchestrator) Server() *relay.Server {
	return o.server
}

// Normalizer returns the owned input normalizer.
func (o *Orchestrator) Normalizer() *input.Normalizer {
	return o.norm
}

// Activity returns up to n recent activity entries, oldest first.
func (o *Orchestrator) Activity(n int) []Entry {
	return o.log.Recent(n)
}

// Stop shuts the pipeline down in dependency order: the normalizer closes
// first so the pump drains and exits, then the server releases its sockets.
// Idempotent.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.mu.Unlock()

	o.norm.Close()
	o.pumpWg.Wait()
	o.server.Stop()

	o.mu.Lock()
	for addr, span := range o.clients {
		span.End()
		delete(o.clients, addr)
	}
	if o.runSpan != nil {
		o.runSpan.SetStatus(codes.Ok, "")
		o.runSpan.End()
	}
	o.mu.Unlock()

	o.log.Append(LevelInfo, "relay stopped")
	o.logger.Info("pipeline stopped")
}

// Stats returns an aggregate snapshot.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	startedAt := o.startedAt
	o.mu.Unlock()

	now := time.Now()
	srv := o.server.Stats()

	var uptime time.Duration
	if !startedAt.IsZero() {
		uptime = now.Sub(startedAt)
	}
	var dropRate float64
	if srv.Totals.Offered > 0 {
		dropRate = float64(srv.Totals.Dropped) / float64(srv.Totals.Offered)
	}

	return Stats{
		Uptime:      uptime,
		CurrentRate: o.rate.rate(now),
		DropRate:    dropRate,
		Server:      srv,
		Normalizer:  o.norm.Stats(),
	}
}

// observeClientEvent feeds connection lifecycle into the activity log and
// opens or closes the per-client trace span.
func (o *Orchestrator) observeClientEvent(ev relay.ClientEvent) {
	switch ev.Kind {
	case relay.ClientConnected:
		o.log.Append(LevelInfo, "client connected: %s", ev.RemoteAddr)
		o.mu.Lock()
		ctx := o.runCtx
		if ctx == nil {
			ctx = context.Background()
		}
		_, span := o.tracer.Start(ctx, "relay.client",
			trace.WithAttributes(attribute.String("relay.remote_addr", ev.RemoteAddr)))
		o.clients[ev.RemoteAddr] = span
		o.mu.Unlock()

	case relay.ClientReplaced:
		o.log.Append(LevelWarn, "client replaced: %s", ev.RemoteAddr)
		o.mu.Lock()
		if span, ok := o.clients[ev.RemoteAddr]; ok {
			span.AddEvent("replaced by new connection")
		}
		o.mu.Unlock()

	case relay.ClientDisconnected, relay.ClientErrored:
		level := LevelInfo
		if ev.Kind == relay.ClientErrored {
			level = LevelError
		}
		o.log.Append(level, "client %s: %s", ev.Kind, ev.RemoteAddr)
		o.mu.Lock()
		if span, ok := o.clients[ev.RemoteAddr]; ok {
			if ev.Err != nil {
				span.RecordError(ev.Err)
				span.SetStatus(codes.Error, ev.Err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
			delete(o.clients, ev.RemoteAddr)
		}
		o.mu.Unlock()
	}
}
