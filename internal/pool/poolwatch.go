package pool

import (
	"context"
	"log"
	"time"
)

// connectFactoryTimeout bounds a single PoolWatch factory call so a wedged
// driver can't stall the whole loop indefinitely.
const connectFactoryTimeout = 10 * time.Second

// poolWatchLoop implements C6 (spec §4.6): one per partition, it sleeps on
// the almost-full signal and then manufactures connections in batches
// while the partition is both below HIT_THRESHOLD and allowed to grow.
func (p *Pool) poolWatchLoop(part *Partition) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case <-part.almostFull:
		}
		p.growPartition(part)
	}
}

// growPartition is PoolWatch's inner loop: the predicate is re-checked
// after every batch, since the almost-full signal is a lazy wake-up, not
// a count of outstanding work.
func (p *Pool) growPartition(part *Partition) {
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		belowThreshold := part.freeCount()*100/p.cfg.MaxConnectionsPerPartition < hitThreshold
		hasRoom := part.createdCountNow() < int64(p.cfg.MaxConnectionsPerPartition)
		if !belowThreshold || !hasRoom || part.unableToCreateMore.Load() {
			return
		}

		batch := p.cfg.AcquireIncrement
		if remaining := int64(p.cfg.MaxConnectionsPerPartition) - part.createdCountNow(); int64(batch) > remaining {
			batch = int(remaining)
		}

		created := 0
		for i := 0; i < batch; i++ {
			ctx, cancel := context.WithTimeout(context.Background(), connectFactoryTimeout)
			raw, err := p.cfg.Factory.Open(ctx)
			cancel()
			if err != nil {
				part.unableToCreateMore.Store(true)
				log.Printf("[poolwatch] %s: partition %d: factory failed, latching unableToCreateMore: %v",
					p.cfg.Name, part.index, err)
				break
			}

			id := p.nextConnID.Add(1)
			conn := newPooledConnection(id, part, raw)
			part.createdCount.Add(1)
			part.free <- conn
			created++
		}

		if created > 0 {
			log.Printf("[poolwatch] %s: partition %d: created %d connections (created=%d/%d)",
				p.cfg.Name, part.index, created, part.createdCountNow(), p.cfg.MaxConnectionsPerPartition)
			p.recordMetrics()
		}
	}
}
