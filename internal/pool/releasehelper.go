package pool

import (
	"context"
	"time"
)

// releaseTimeout bounds the liveness probe a helper runs for a single
// connection during internal release; the requeue itself is not bounded.
const releaseTimeout = 5 * time.Second

// releaseHelperLoop implements C8 (spec §4.8): an optional per-partition
// worker that performs the actual release work off the caller's
// goroutine. A nil sentinel, enqueued once per helper during Shutdown,
// is the signal to stop — closing the channel instead would race with
// the sentinel sends, so Shutdown always knows exactly how many sentinels
// to send (one per running helper).
func (p *Pool) releaseHelperLoop(part *Partition) {
	defer p.wg.Done()

	for conn := range part.pendingRelease {
		if conn == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		_ = p.internalRelease(ctx, conn)
		cancel()
	}
}
