// Package pipeline wires the input normalizer into the relay server and
// tracks aggregate statistics.
//
// The Orchestrator owns both ends: it constructs the relay.Server and the
// input.Normalizer itself, pumps emitted snapshots into Broadcast on a
// dedicated goroutine, and derives throughput (current frame rate, uptime,
// drop rate) for read-only consumers. A bounded activity log records
// connection lifecycle events for display without ever blocking the relay
// path.
//
// Transport failures never propagate upstream: the pump goroutine only ever
// observes the normalizer channel closing, and Broadcast absorbs the
// no-client case silently.
package pipeline
