package pool

import (
	"context"
	"time"
)

// testProbeTimeout bounds a single liveness probe during the idle-test
// sweep, so one unreachable connection can't stall the whole tick.
const testProbeTimeout = 5 * time.Second

// connectionTesterLoop implements C7 (spec §4.7): periodically snapshots
// a partition's free queue and, for each entry taken out non-blockingly,
// evicts it on max-age or failed liveness, otherwise offers it back.
func (p *Pool) connectionTesterLoop(part *Partition) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.IdleConnectionTestPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.testPartitionIdle(part)
		}
	}
}

// testPartitionIdle takes a fixed-size snapshot of the free queue (its
// length at the start of the sweep) so the tester never contends with
// concurrent acquires/releases beyond the non-blocking dequeue/offer it
// already uses, and never removes more than it re-offers or destroys.
func (p *Pool) testPartitionIdle(part *Partition) {
	n := part.freeCount()
	for i := 0; i < n; i++ {
		conn, ok := part.tryDequeueFree()
		if !ok {
			return
		}

		if p.cfg.IdleMaxAge > 0 && conn.IdleDuration() >= p.cfg.IdleMaxAge {
			p.postDestroy(conn, "idle_max_age")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), testProbeTimeout)
		alive := p.isAlive(ctx, conn)
		cancel()

		if !alive {
			p.postDestroy(conn, "failed_liveness_probe")
			continue
		}

		p.releaseIntoAnyFreePartition(conn, part)
	}
}
