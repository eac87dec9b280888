package relay

import "time"

// SessionStats is a snapshot of one session's monotonic counters.
type SessionStats struct {
	Offered     uint64 // Frames offered to the send queue
	Dropped     uint64 // Frames evicted by the drop-oldest policy
	Transmitted uint64 // Frames fully written to the socket
	BytesSent   uint64 // Payload bytes written, envelopes included
	Errors      uint64 // Read/write errors observed
	Pings       uint64 // Inbound ping frames observed

	StartedAt time.Time // Connection start time (zero if never connected)
}

// DropRate returns dropped/offered, or 0 when nothing was offered.
func (s SessionStats) DropRate() float64 {
	if s.Offered == 0 {
		return 0
	}
	return float64(s.Dropped) / float64(s.Offered)
}

// add accumulates another snapshot's counters (connection start time is
// kept from the receiver when set).
func (s *SessionStats) add(o SessionStats) {
	s.Offered += o.Offered
	s.Dropped += o.Dropped
	s.Transmitted += o.Transmitted
	s.BytesSent += o.BytesSent
	s.Errors += o.Errors
	s.Pings += o.Pings
}

// ServerStats is a snapshot of server-wide statistics. Totals accumulate
// across sessions; the sequence counter is shared across reconnects.
type ServerStats struct {
	State           string       // Current server state
	ClientConnected bool         // True when a session is alive
	RemoteAddr      string       // Active client address, "" if none
	Seq             uint32       // Last assigned sequence number
	NoClientDrops   uint64       // Broadcasts with no client connected
	Totals          SessionStats // Counters accumulated across all sessions
}
