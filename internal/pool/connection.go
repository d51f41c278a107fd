// Package pool implements the partitioned connection-pool core: bounded
// per-partition free queues, acquire/release with cross-partition and
// starvation fallback, and the background PoolWatch/ConnectionTester/
// ReleaseHelper loops that keep partitions warm and healthy.
package pool

import (
	"sync/atomic"
	"time"
)

// PooledConnection wraps a RawConnection with the bookkeeping the pool
// needs: which partition it came from, when it was created/last used, and
// whether the caller has flagged it as possibly broken.
//
// Invariant: a live PooledConnection is always exactly one of (a) held by
// a caller, (b) queued in its origin partition's free queue, or (c) queued
// in its origin partition's pending-release queue. It is never in two of
// these places, and never in none while still "created" (see Partition's
// accounting identity).
type PooledConnection struct {
	id     uint64
	raw    RawConnection
	origin *Partition

	createdAt time.Time

	// lastUsedAtNano is stored as an atomic Unix-nano timestamp rather
	// than guarded by a mutex so the ConnectionTester loop can read it
	// concurrently with an acquirer's renew() without racing (spec §5
	// memory-model requirement).
	lastUsedAtNano atomic.Int64

	// possiblyBroken is set by application code that observed a failure
	// while using the connection (e.g. a query error). The next release
	// will probe liveness before returning it to the free queue.
	possiblyBroken atomic.Bool

	useCount atomic.Uint64
}

func newPooledConnection(id uint64, origin *Partition, raw RawConnection) *PooledConnection {
	c := &PooledConnection{
		id:        id,
		raw:       raw,
		origin:    origin,
		createdAt: time.Now(),
	}
	c.lastUsedAtNano.Store(time.Now().UnixNano())
	return c
}

// ID returns this connection's pool-unique identifier.
func (c *PooledConnection) ID() uint64 { return c.id }

// Raw returns the underlying driver handle, for executing application SQL.
func (c *PooledConnection) Raw() RawConnection { return c.raw }

// CreatedAt returns when this connection was manufactured.
func (c *PooledConnection) CreatedAt() time.Time { return c.createdAt }

// MarkPossiblyBroken flags the connection so the next release probes
// liveness before the connection re-enters the free queue. Safe to call
// from the goroutine currently holding the connection.
func (c *PooledConnection) MarkPossiblyBroken() {
	c.possiblyBroken.Store(true)
}

// PossiblyBroken reports whether the connection has been flagged.
func (c *PooledConnection) PossiblyBroken() bool {
	return c.possiblyBroken.Load()
}

// IdleDuration reports how long the connection has sat idle since its
// last acquire or release.
func (c *PooledConnection) IdleDuration() time.Duration {
	return time.Since(time.Unix(0, c.lastUsedAtNano.Load()))
}

func (c *PooledConnection) touch() {
	c.lastUsedAtNano.Store(time.Now().UnixNano())
}

// renew resets per-checkout state: clears possiblyBroken and stamps
// lastUsedAt, per spec §4.2 step 6.
func (c *PooledConnection) renew() {
	c.possiblyBroken.Store(false)
	c.touch()
	c.useCount.Add(1)
}
