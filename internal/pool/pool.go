package pool

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joao-brasil/connpool/internal/metrics"
)

// hitThreshold is HIT_THRESHOLD from the acquire algorithm: once a
// partition's free queue drops below this percentage of its max, acquire
// nudges PoolWatch awake.
const hitThreshold = 20

// Config holds the recognized pool construction options (spec §4.1, §6).
// It is treated as an immutable value once passed to New: the pool never
// mutates it.
type Config struct {
	// Name identifies this pool in logs and metric labels.
	Name string

	PartitionCount             int
	MinConnectionsPerPartition int
	MaxConnectionsPerPartition int
	AcquireIncrement           int

	IdleConnectionTestPeriod time.Duration
	IdleMaxAge               time.Duration
	ConnectionTestStatement  string

	ReleaseHelperThreadCount int

	Factory ConnectionFactory
	Hook    *Hook
}

// sanitized clamps negative values and enforces min <= max, per spec
// §4.1's "sanitize config" step.
func (c Config) sanitized() Config {
	if c.PartitionCount < 1 {
		c.PartitionCount = 1
	}
	if c.MinConnectionsPerPartition < 0 {
		c.MinConnectionsPerPartition = 0
	}
	if c.MaxConnectionsPerPartition < 1 {
		c.MaxConnectionsPerPartition = 1
	}
	if c.MinConnectionsPerPartition > c.MaxConnectionsPerPartition {
		c.MinConnectionsPerPartition = c.MaxConnectionsPerPartition
	}
	if c.AcquireIncrement < 1 {
		c.AcquireIncrement = 1
	}
	if c.ReleaseHelperThreadCount < 0 {
		c.ReleaseHelperThreadCount = 0
	}
	return c
}

// Pool owns a fixed set of partitions, routes acquire/release across them,
// and runs their background maintenance loops (spec §3 Pool, §4.1-§4.9).
// Constructed → running → shut down; there is no re-open.
type Pool struct {
	cfg        Config
	partitions []*Partition
	hook       *Hook

	starvationLatch atomic.Bool

	rrCounter  atomic.Uint64
	nextConnID atomic.Uint64

	stopCh chan struct{}
	wg     sync.WaitGroup

	terminationLock sync.Mutex
	shutdownDone    atomic.Bool
}

// New constructs a pool: sanitizes cfg, allocates partitions, pre-warms
// each with MinConnectionsPerPartition connections, and starts the
// background loops (spec §4.1).
func New(ctx context.Context, cfg Config) (*Pool, error) {
	cfg = cfg.sanitized()
	if cfg.Factory == nil {
		return nil, fmt.Errorf("%w: nil ConnectionFactory", ErrPoolInitFailed)
	}

	p := &Pool{
		cfg:    cfg,
		hook:   cfg.Hook,
		stopCh: make(chan struct{}),
	}

	p.partitions = make([]*Partition, cfg.PartitionCount)
	for i := range p.partitions {
		p.partitions[i] = newPartition(i, p)
	}

	for _, part := range p.partitions {
		for i := 0; i < cfg.MinConnectionsPerPartition; i++ {
			raw, err := cfg.Factory.Open(ctx)
			if err != nil {
				p.closeAllCreated()
				return nil, fmt.Errorf("%w: %v", ErrPoolInitFailed, err)
			}
			id := p.nextConnID.Add(1)
			conn := newPooledConnection(id, part, raw)
			part.createdCount.Add(1)
			part.free <- conn
		}
	}

	log.Printf("[pool] %s: initialized, %d partitions, %d warm connections",
		cfg.Name, cfg.PartitionCount, cfg.PartitionCount*cfg.MinConnectionsPerPartition)

	for _, part := range p.partitions {
		p.wg.Add(1)
		go p.poolWatchLoop(part)

		if cfg.IdleConnectionTestPeriod > 0 {
			p.wg.Add(1)
			go p.connectionTesterLoop(part)
		}

		for i := 0; i < cfg.ReleaseHelperThreadCount; i++ {
			p.wg.Add(1)
			go p.releaseHelperLoop(part)
		}
	}

	p.recordMetrics()
	return p, nil
}

// closeAllCreated drains and closes every connection currently sitting in
// a free queue. Used to unwind partial construction after an init failure.
func (p *Pool) closeAllCreated() {
	for _, part := range p.partitions {
	drain:
		for {
			select {
			case c := <-part.free:
				if err := c.raw.Close(); err != nil {
					log.Printf("[pool] %s: error closing connection during init rollback: %v", p.cfg.Name, err)
				}
			default:
				break drain
			}
		}
	}
}

// Acquire implements spec §4.2: partition selection, growth signal,
// non-blocking dequeue, cross-partition fallback, and starvation fallback.
func (p *Pool) Acquire(ctx context.Context) (*PooledConnection, error) {
	if p.shutdownDone.Load() {
		return nil, ErrPoolShutDown
	}

	start := time.Now()
	home := int(p.rrCounter.Add(1) % uint64(len(p.partitions)))
	part := p.partitions[home]
	chosen := part

	if !part.unableToCreateMore.Load() {
		if part.freeCount()*100/p.cfg.MaxConnectionsPerPartition < hitThreshold {
			part.signalAlmostFull()
		}
	}

	var conn *PooledConnection

	if p.starvationLatch.Load() {
		c, err := p.blockingDequeue(ctx, part)
		if err != nil {
			metrics.AcquireTotal.WithLabelValues(p.cfg.Name, "interrupted").Inc()
			return nil, err
		}
		conn = c
	} else if c, ok := part.tryDequeueFree(); ok {
		conn = c
	}

	if conn == nil {
		for i := 0; i < len(p.partitions); i++ {
			if i == home {
				continue
			}
			if c, ok := p.partitions[i].tryDequeueFree(); ok {
				conn = c
				// Re-home to wherever the connection was actually found:
				// preserved from the source algorithm as specified, which
				// biases later release traffic toward this partition
				// rather than the caller's original home. Not "fixed".
				chosen = p.partitions[i]
				break
			}
		}
	}

	if conn == nil {
		p.starvationLatch.Store(true)
		c, err := p.blockingDequeue(ctx, part)
		if err != nil {
			metrics.AcquireTotal.WithLabelValues(p.cfg.Name, "interrupted").Inc()
			return nil, err
		}
		conn = c
		chosen = part
	}

	conn.origin = chosen
	conn.renew()
	p.safeOnCheckOut(conn)

	metrics.AcquireTotal.WithLabelValues(p.cfg.Name, "success").Inc()
	metrics.AcquireWaitDuration.WithLabelValues(p.cfg.Name).Observe(time.Since(start).Seconds())
	p.recordMetrics()
	return conn, nil
}

// blockingDequeue waits indefinitely on part's free queue, honoring ctx
// cancellation and pool shutdown.
func (p *Pool) blockingDequeue(ctx context.Context, part *Partition) (*PooledConnection, error) {
	select {
	case c := <-part.free:
		return c, nil
	case <-ctx.Done():
		return nil, ErrAcquireInterrupted
	case <-p.stopCh:
		return nil, ErrPoolShutDown
	}
}

// AcquireResult is the outcome delivered on the channel returned by
// AcquireAsync — the idiomatic Go stand-in for a Future<PooledConnection>.
type AcquireResult struct {
	Conn *PooledConnection
	Err  error
}

// AcquireAsync submits an acquire to a background goroutine and returns a
// channel that receives the result once available (spec §6).
func (p *Pool) AcquireAsync(ctx context.Context) <-chan AcquireResult {
	resultCh := make(chan AcquireResult, 1)
	go func() {
		conn, err := p.Acquire(ctx)
		resultCh <- AcquireResult{Conn: conn, Err: err}
	}()
	return resultCh
}

// Release implements spec §4.3: optional helper offload, then internal
// release (liveness check on possibly-broken connections, otherwise
// return to a free queue).
func (p *Pool) Release(ctx context.Context, conn *PooledConnection) error {
	if conn == nil {
		return nil
	}
	if conn.origin == nil || conn.origin.pool != p {
		return ErrAlienConnection
	}
	if p.shutdownDone.Load() {
		if err := conn.raw.Close(); err != nil {
			log.Printf("[pool] %s: error closing connection after shutdown: %v", p.cfg.Name, err)
		}
		return ErrPoolShutDown
	}

	p.safeOnCheckIn(conn)

	if p.cfg.ReleaseHelperThreadCount > 0 {
		select {
		case conn.origin.pendingRelease <- conn:
			return nil
		case <-ctx.Done():
			return ErrReleaseInterrupted
		case <-p.stopCh:
			return ErrPoolShutDown
		}
	}

	return p.internalRelease(ctx, conn)
}

// internalRelease performs spec §4.3 step 3: liveness check, then return
// to a free queue. Called either directly by Release (no helper threads)
// or asynchronously by the ReleaseHelper loop.
func (p *Pool) internalRelease(ctx context.Context, conn *PooledConnection) error {
	if conn.PossiblyBroken() && !p.isAlive(ctx, conn) {
		p.postDestroy(conn, "possibly_broken")
		return nil
	}
	conn.touch()
	p.releaseIntoAnyFreePartition(conn, conn.origin)
	metrics.AcquireTotal.WithLabelValues(p.cfg.Name, "released").Inc()
	p.recordMetrics()
	return nil
}

// releaseIntoAnyFreePartition implements the offer/scan/blocking-put
// cascade of spec §4.3.
func (p *Pool) releaseIntoAnyFreePartition(conn *PooledConnection, preferred *Partition) {
	if preferred.tryEnqueueFree(conn) {
		return
	}
	for _, part := range p.partitions {
		if part == preferred {
			continue
		}
		if part.tryEnqueueFree(conn) {
			return
		}
	}
	// Accounting guarantees createdCount <= maxConnections, so this
	// blocking put is guaranteed to succeed eventually.
	preferred.free <- conn
}

// Discard removes conn from the pool permanently, bypassing the
// liveness check and free-queue return path. Used by callers that have
// already determined the connection is unusable.
func (p *Pool) Discard(conn *PooledConnection) error {
	if conn == nil {
		return nil
	}
	if conn.origin == nil || conn.origin.pool != p {
		return ErrAlienConnection
	}
	p.postDestroy(conn, "discarded")
	return nil
}

// postDestroy implements spec §4.4.
func (p *Pool) postDestroy(conn *PooledConnection, reason string) {
	conn.origin.createdCount.Add(-1)
	conn.origin.unableToCreateMore.Store(false)
	p.safeOnDestroy(conn)
	if err := conn.raw.Close(); err != nil {
		log.Printf("[pool] %s: error closing destroyed connection %d: %v", p.cfg.Name, conn.id, err)
	}
	metrics.DestroyedTotal.WithLabelValues(p.cfg.Name, reason).Inc()
	p.recordMetrics()
}

// isAlive implements spec §4.5: a configured test statement, or a
// metadata probe against a sentinel table name. Returns true iff the
// round-trip succeeds AND (when applicable) the statement close succeeds.
func (p *Pool) isAlive(ctx context.Context, conn *PooledConnection) bool {
	if p.cfg.ConnectionTestStatement != "" {
		stmt, err := conn.raw.Prepare(ctx, p.cfg.ConnectionTestStatement)
		if err != nil {
			return false
		}
		_, execErr := stmt.ExecContext(ctx)
		closeErr := stmt.Close()
		return execErr == nil && closeErr == nil
	}
	_, err := conn.raw.TableNames(ctx, "BONECPKEEPALIVE")
	return err == nil
}

// Stats reports the counters from spec §6 plus per-partition detail.
type Stats struct {
	TotalLeased     int64
	TotalFree       int64
	TotalCreated    int64
	StarvationLatch bool
	Partitions      []PartitionStats
}

// PartitionStats reports one partition's share of Stats.
type PartitionStats struct {
	Index              int
	Free               int
	Created            int64
	UnableToCreateMore bool
}

// Stats returns a point-in-time snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	var s Stats
	s.StarvationLatch = p.starvationLatch.Load()
	for _, part := range p.partitions {
		created := part.createdCountNow()
		free := int64(part.freeCount())
		pending := int64(len(part.pendingRelease))
		leased := created - free - pending
		if leased < 0 {
			leased = 0
		}
		s.TotalCreated += created
		s.TotalFree += free
		s.TotalLeased += leased
		s.Partitions = append(s.Partitions, PartitionStats{
			Index:              part.index,
			Free:               int(free),
			Created:            created,
			UnableToCreateMore: part.unableToCreateMore.Load(),
		})
	}
	return s
}

func (p *Pool) recordMetrics() {
	s := p.Stats()
	metrics.ConnectionsLeased.WithLabelValues(p.cfg.Name).Set(float64(s.TotalLeased))
	metrics.ConnectionsFree.WithLabelValues(p.cfg.Name).Set(float64(s.TotalFree))
	metrics.ConnectionsCreated.WithLabelValues(p.cfg.Name).Set(float64(s.TotalCreated))
	latch := 0.0
	if s.StarvationLatch {
		latch = 1.0
	}
	metrics.StarvationLatch.WithLabelValues(p.cfg.Name).Set(latch)
	for _, ps := range s.Partitions {
		v := 0.0
		if ps.UnableToCreateMore {
			v = 1.0
		}
		metrics.PartitionUnableToCreateMore.WithLabelValues(p.cfg.Name, fmt.Sprintf("%d", ps.Index)).Set(v)
	}
}

// Shutdown implements spec §4.9: idempotent, try-lock guarded. Stops the
// background loops, drains and destroys every free connection, and makes
// subsequent Acquire/Release calls fail with ErrPoolShutDown. Close is a
// synonym, matching the spec's "shutdown()/close() — idempotent,
// synonyms".
func (p *Pool) Shutdown() {
	if !p.terminationLock.TryLock() {
		return
	}
	defer p.terminationLock.Unlock()
	if p.shutdownDone.Load() {
		return
	}

	close(p.stopCh)

	for _, part := range p.partitions {
		for i := 0; i < p.cfg.ReleaseHelperThreadCount; i++ {
			part.pendingRelease <- nil
		}
	}

	p.wg.Wait()

	for _, part := range p.partitions {
	drain:
		for {
			select {
			case c := <-part.free:
				p.postDestroy(c, "shutdown")
			default:
				break drain
			}
		}
	}

	p.shutdownDone.Store(true)
	log.Printf("[pool] %s: shut down", p.cfg.Name)
}

// Close is a synonym for Shutdown (spec §6).
func (p *Pool) Close() error {
	p.Shutdown()
	return nil
}

// Name returns the pool's configured name.
func (p *Pool) Name() string { return p.cfg.Name }
