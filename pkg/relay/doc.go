// Package relay implements the TCP relay core: a bounded drop-oldest send
// queue, a per-connection client session, and a single-active-client server.
//
// # Architecture
//
// The relay runtime consists of three components:
//
//   - SendQueue: capacity-limited FIFO of serialized frames with drop-oldest
//     eviction and atomic counters
//   - Session: one accepted connection, owning a queue, a transmit loop that
//     drains the queue to the socket, and a receive loop that observes
//     inbound bytes for liveness
//   - Server: the listening socket, accept loop, and broadcast operation
//
// # Single Active Client
//
// At most one session is alive at a time. Each accepted connection replaces
// any prior session: the old session is closed first, and only the new
// connection receives subsequent broadcasts. A new physical client always
// wins. Sequence numbers are assigned by the server and are never reset on
// client replacement, only on process restart.
//
// # Backpressure
//
// Real-time state is only useful if recent: stale frames queued behind a
// slow client are worse than no frames. The queue therefore evicts its
// oldest entry when full instead of growing or stalling the producer.
// Broadcast never blocks and never returns an error merely because nobody is
// listening; a no-client broadcast is reported through statistics only.
//
// # Failure Containment
//
// Write and read failures on a session tear that session down and return
// the server to listening. They are reported via statistics and the
// activity callback, never raised to the producer side of the pipeline.
// The one loud failure is the listening socket: Start returns a *BindError
// when the port cannot be acquired, since that blocks the entire relay.
package relay
