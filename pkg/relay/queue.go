package relay

import (
	"sync"
	"sync/atomic"
)

// SendQueue is a capacity-limited FIFO of serialized frames with a
// drop-oldest eviction policy. The queue has no knowledge of frame
// semantics; entries are opaque byte slices.
//
// Offer never fails from the caller's perspective: at capacity, the single
// oldest entry is evicted to make room and the drop counter is incremented.
// Poll never blocks; the consumer is responsible for its own backoff when
// the queue is empty. Counters are atomic and readable concurrently without
// locking out producers or consumers.
type SendQueue struct {
	mu   sync.Mutex
	buf  [][]byte
	head int
	size int

	offered atomic.Uint64
	dropped atomic.Uint64

	// ready is signalled (capacity 1, non-blocking) on every Offer so the
	// consumer can wake promptly instead of relying on its poll interval.
	ready chan struct{}

	onEvict func()
}

// NewSendQueue creates a queue with the given capacity.
// A non-positive capacity uses DefaultQueueCapacity.
func NewSendQueue(capacity int) *SendQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &SendQueue{
		buf:   make([][]byte, capacity),
		ready: make(chan struct{}, 1),
	}
}

// Capacity returns the fixed capacity of the queue.
func (q *SendQueue) Capacity() int {
	return len(q.buf)
}

// Len returns the current number of entries.
func (q *SendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Offer inserts a frame, evicting the oldest entry first if the queue is
// full. It never blocks and never fails.
func (q *SendQueue) Offer(frame []byte) {
	evicted := false
	q.mu.Lock()
	if q.size == len(q.buf) {
		// Evict the oldest entry to keep only recent state.
		q.buf[q.head] = nil
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		q.dropped.Add(1)
		evicted = true
	}
	q.buf[(q.head+q.size)%len(q.buf)] = frame
	q.size++
	q.mu.Unlock()

	q.offered.Add(1)
	if evicted && q.onEvict != nil {
		q.onEvict()
	}

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Poll removes and returns the oldest entry, or (nil, false) when empty.
func (q *SendQueue) Poll() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return nil, false
	}
	frame := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return frame, true
}

// Ready returns a channel that receives a signal when entries may be
// available. It is a wake-up hint, not a guarantee: consumers must still
// handle an empty Poll.
func (q *SendQueue) Ready() <-chan struct{} {
	return q.ready
}

// SetEvictHook registers fn to be invoked once per drop-oldest eviction.
// It must be set before the queue is used concurrently.
func (q *SendQueue) SetEvictHook(fn func()) {
	q.onEvict = fn
}

// Clear resets the queue to empty. Used on session teardown.
func (q *SendQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.buf {
		q.buf[i] = nil
	}
	q.head = 0
	q.size = 0
}

// Offered returns the total number of frames offered.
func (q *SendQueue) Offered() uint64 {
	return q.offered.Load()
}

// Dropped returns the total number of frames evicted at capacity.
func (q *SendQueue) Dropped() uint64 {
	return q.dropped.Load()
}
