package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ronojak/Relay-App/pkg/input"
	"github.com/ronojak/Relay-App/pkg/protocol"
	"github.com/ronojak/Relay-App/pkg/relay"
)

func testOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	relayCfg := relay.DefaultConfig()
	relayCfg.Port = 0
	cfg.Relay = relayCfg

	o := New(cfg)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(o.Stop)
	return o
}

func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", msg)
}

// readStateFrames reads n controller-state frames from conn.
func readStateFrames(t *testing.T, conn net.Conn, n int) []protocol.ControllerState {
	t.Helper()

	var states []protocol.ControllerState
	var pending []byte
	buf := make([]byte, 512)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for len(states) < n {
		if len(pending) >= protocol.EnvelopeSize {
			total, err := protocol.FrameLen(pending)
			if err != nil {
				t.Fatalf("FrameLen() error = %v", err)
			}
			if len(pending) >= total {
				_, st, err := protocol.DecodeStateFrame(pending[:total])
				if err != nil {
					t.Fatalf("DecodeStateFrame() error = %v", err)
				}
				states = append(states, st)
				pending = pending[total:]
				continue
			}
		}
		rn, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read error after %d frames: %v", len(states), err)
		}
		pending = append(pending, buf[:rn]...)
	}
	return states
}

func TestOrchestratorEndToEnd(t *testing.T) {
	o := testOrchestrator(t)

	conn, err := net.Dial("tcp", o.Server().Addr().String())
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	waitFor(t, time.Second, func() bool {
		return o.Server().State() == relay.StateClientConnected
	}, "client to attach")

	// Samples spaced past the emission interval, each a significant change.
	base := time.Now()
	const frames = 10
	for i := 0; i < frames; i++ {
		o.Offer(input.Sample{
			DeviceID: 1,
			Buttons:  uint16(i + 1),
			Time:     base.Add(time.Duration(i) * 20 * time.Millisecond),
		})
	}

	states := readStateFrames(t, conn, frames)
	for i, st := range states {
		if st.Buttons != uint16(i+1) {
			t.Fatalf("frame %d Buttons = %d, want %d", i, st.Buttons, i+1)
		}
	}

	waitFor(t, time.Second, func() bool {
		return o.Stats().Server.Totals.Transmitted == frames
	}, "statistics to settle")

	stats := o.Stats()
	if stats.Uptime <= 0 {
		t.Error("Uptime <= 0")
	}
	if stats.Normalizer.Emitted != frames {
		t.Errorf("Emitted = %d, want %d", stats.Normalizer.Emitted, frames)
	}
	if stats.DropRate != 0 {
		t.Errorf("DropRate = %v, want 0", stats.DropRate)
	}
}

func TestOrchestratorNoClientNeverBlocks(t *testing.T) {
	o := testOrchestrator(t)

	done := make(chan struct{})
	go func() {
		base := time.Now()
		for i := 0; i < 100; i++ {
			o.Offer(input.Sample{
				DeviceID: 1,
				Buttons:  uint16(i + 1),
				Time:     base.Add(time.Duration(i) * 20 * time.Millisecond),
			})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Offer blocked with no client connected")
	}

	waitFor(t, time.Second, func() bool {
		return o.Stats().Server.NoClientDrops > 0
	}, "no-client drops to be counted")

	if s := o.Stats(); s.Server.Totals.Offered != 0 {
		t.Errorf("Offered = %d, want 0 with no client", s.Server.Totals.Offered)
	}
}

func TestOrchestratorActivityRecordsLifecycle(t *testing.T) {
	o := testOrchestrator(t)

	conn, err := net.Dial("tcp", o.Server().Addr().String())
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return o.Server().State() == relay.StateClientConnected
	}, "client to attach")

	conn.Close()
	waitFor(t, time.Second, func() bool {
		return o.Server().State() == relay.StateListening
	}, "client to detach")

	var sawListen, sawConnect, sawDisconnect bool
	for _, entry := range o.Activity(0) {
		switch {
		case strings.Contains(entry.Message, "listening"):
			sawListen = true
		case strings.Contains(entry.Message, "disconnected"):
			sawDisconnect = true
		case strings.Contains(entry.Message, "connected:"):
			sawConnect = true
		}
	}
	if !sawListen || !sawConnect || !sawDisconnect {
		t.Errorf("activity log missing lifecycle entries: listen=%v connect=%v disconnect=%v",
			sawListen, sawConnect, sawDisconnect)
	}
}

func TestOrchestratorStopIdempotent(t *testing.T) {
	o := testOrchestrator(t)

	o.Stop()
	o.Stop()

	if st := o.Server().State(); st != relay.StateStopped {
		t.Errorf("server state after Stop = %v, want Stopped", st)
	}

	// Offering after Stop is a no-op, not a panic.
	o.Offer(input.Sample{DeviceID: 1, Buttons: 1, Time: time.Now()})
}

func TestOrchestratorBindErrorSurfaces(t *testing.T) {
	first := testOrchestrator(t)

	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	relayCfg := relay.DefaultConfig()
	relayCfg.Port = first.Server().Addr().(*net.TCPAddr).Port
	cfg.Relay = relayCfg

	o := New(cfg)
	err := o.Start(context.Background())
	if err == nil {
		o.Stop()
		t.Fatal("Start() on occupied port succeeded")
	}
}
