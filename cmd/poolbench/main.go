// Package main is the entrypoint for poolbench, a concurrency smoke test
// that drives acquire/release load directly against a Pool using a
// configurable number of concurrent workers, bounded by an errgroup.Group,
// and reports the pool's counters at the end.
package main

import (
	"context"
	"flag"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joao-brasil/connpool/internal/factory"
	"github.com/joao-brasil/connpool/internal/pool"
	"github.com/joao-brasil/connpool/pkg/target"
)

var (
	workers   = flag.Int("workers", 50, "Number of concurrent workers")
	duration  = flag.Duration("duration", 10*time.Second, "How long to drive load")
	partition = flag.Int("partitions", 4, "Partition count")
	maxConn   = flag.Int("max", 10, "Max connections per partition")
	minConn   = flag.Int("min", 2, "Min connections per partition")
	dsn       = flag.String("sqlite-dsn", "file:poolbench?mode=memory&cache=shared", "SQLite DSN to benchmark against")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	t := target.Target{
		Name:     "poolbench",
		Driver:   target.DriverSQLite,
		Database: *dsn,
	}

	cfg := pool.Config{
		Name:                       t.Name,
		PartitionCount:             *partition,
		MinConnectionsPerPartition: *minConn,
		MaxConnectionsPerPartition: *maxConn,
		AcquireIncrement:           2,
		ReleaseHelperThreadCount:   0,
		Factory:                    factory.New(t),
	}

	p, err := pool.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[poolbench] pool init failed: %v", err)
	}
	defer p.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	log.Printf("[poolbench] driving %d workers for %s against %d partitions (min=%d max=%d)",
		*workers, *duration, *partition, *minConn, *maxConn)

	g, gctx := errgroup.WithContext(ctx)
	var acquired, released, errored atomic.Int64

	for i := 0; i < *workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				default:
				}

				conn, err := p.Acquire(gctx)
				if err != nil {
					errored.Add(1)
					if gctx.Err() != nil {
						return nil
					}
					continue
				}
				acquired.Add(1)

				if err := p.Release(gctx, conn); err != nil {
					errored.Add(1)
				} else {
					released.Add(1)
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("[poolbench] worker error: %v", err)
	}

	s := p.Stats()
	log.Printf("[poolbench] done: acquired=%d released=%d errored=%d", acquired.Load(), released.Load(), errored.Load())
	log.Printf("[poolbench] final stats: totalLeased=%d totalFree=%d totalCreated=%d starvationLatch=%v",
		s.TotalLeased, s.TotalFree, s.TotalCreated, s.StarvationLatch)
}
