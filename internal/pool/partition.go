package pool

import (
	"sync/atomic"
)

// Partition holds one shard of the pool: a bounded free queue, a bounded
// pending-release queue, and the accounting needed to decide when growth
// is allowed (spec §3, §4.1-§4.3).
//
// Free and pendingRelease are implemented as buffered channels rather than
// a slice+mutex: a channel IS a bounded MPMC FIFO, and Go's select/default
// gives the non-blocking try-dequeue/try-enqueue operations the spec's
// acquire/release algorithms need for free.
type Partition struct {
	index int
	pool  *Pool

	free           chan *PooledConnection
	pendingRelease chan *PooledConnection

	// createdCount is the number of PooledConnections currently
	// attributed to this partition (held + free + pending-release).
	// Incremented before a connection is handed out, decremented when
	// one is destroyed — never both at once, per spec §3's accounting
	// identity.
	createdCount atomic.Int64

	// unableToCreateMore latches true once a PoolWatch factory call
	// fails, so PoolWatch stops growing this partition and Acquire stops
	// sending it growth signals; the next destroy clears it.
	unableToCreateMore atomic.Bool

	// almostFull is a capacity-1 signal channel: a non-blocking send
	// wakes PoolWatch if it's idle, and a full channel (send would
	// block) means a wake-up is already pending, so the sender just
	// drops it. This replaces BoneCP's Lock+Condition pair with the
	// idiomatic Go equivalent of a lazy, coalescing wake-up.
	almostFull chan struct{}
}

func newPartition(index int, p *Pool) *Partition {
	cfg := p.cfg
	part := &Partition{
		index:          index,
		pool:           p,
		free:           make(chan *PooledConnection, cfg.MaxConnectionsPerPartition),
		pendingRelease: make(chan *PooledConnection, cfg.MaxConnectionsPerPartition),
		almostFull:     make(chan struct{}, 1),
	}
	return part
}

// tryDequeueFree attempts a non-blocking pop from the free queue.
func (part *Partition) tryDequeueFree() (*PooledConnection, bool) {
	select {
	case c := <-part.free:
		return c, true
	default:
		return nil, false
	}
}

// tryEnqueueFree attempts a non-blocking push to the free queue. It
// returns false if the queue is at capacity, which should never happen
// under the accounting identity but is handled defensively (the caller
// then tries the other partitions before falling back to a blocking
// send).
func (part *Partition) tryEnqueueFree(c *PooledConnection) bool {
	select {
	case part.free <- c:
		return true
	default:
		return false
	}
}

// tryEnqueuePendingRelease attempts a non-blocking push to the
// pending-release queue. Release does not call it: its hand-off to the
// ReleaseHelper loop is a blocking send that honors ctx and shutdown.
func (part *Partition) tryEnqueuePendingRelease(c *PooledConnection) bool {
	select {
	case part.pendingRelease <- c:
		return true
	default:
		return false
	}
}

// signalAlmostFull performs the coalescing, non-blocking wake-up of
// PoolWatch described above.
func (part *Partition) signalAlmostFull() {
	select {
	case part.almostFull <- struct{}{}:
	default:
	}
}

// freeCount reports the number of connections currently idle in this
// partition's free queue (Stats / almost-full threshold computations).
func (part *Partition) freeCount() int {
	return len(part.free)
}

// createdCountNow reports the partition's current created-connection total.
func (part *Partition) createdCountNow() int64 {
	return part.createdCount.Load()
}
