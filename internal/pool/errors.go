package pool

import "errors"

// Sentinel errors surfaced across the public Pool API. Internal failure
// modes (ConnectionBroken, FactoryFailure) never reach callers directly —
// they drive destroy/latch behavior instead, per the pool's error policy.
var (
	// ErrPoolInitFailed is returned from New when pre-warming a partition's
	// minimum connection count fails. Any connections already opened for
	// other partitions are closed before the error surfaces.
	ErrPoolInitFailed = errors.New("pool: initialization failed")

	// ErrAcquireInterrupted is returned when the calling context is
	// cancelled while Acquire is blocked waiting for a connection.
	ErrAcquireInterrupted = errors.New("pool: acquire interrupted")

	// ErrReleaseInterrupted is returned when the calling context is
	// cancelled while Release is blocked handing a connection to the
	// release-helper queue.
	ErrReleaseInterrupted = errors.New("pool: release interrupted")

	// ErrPoolShutDown is returned by Acquire/Release once the pool has
	// been shut down.
	ErrPoolShutDown = errors.New("pool: shut down")

	// ErrAlienConnection is returned by Release/Discard when handed a
	// PooledConnection that did not originate from this Pool.
	ErrAlienConnection = errors.New("pool: connection does not belong to this pool")
)
