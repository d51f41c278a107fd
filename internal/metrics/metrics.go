// Package metrics defines the Prometheus collectors exposed by a pool
// (spec §6's "counters only" introspection surface): totalLeased,
// totalFree, totalCreated, plus the internal latch/queue gauges that make
// the pool's background behavior observable without leaking driver
// internals.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsLeased mirrors Pool.Stats().TotalLeased per pool name.
	ConnectionsLeased = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "connpool_connections_leased",
		Help: "Connections currently checked out, summed across partitions",
	}, []string{"pool"})

	// ConnectionsFree mirrors Pool.Stats().TotalFree per pool name.
	ConnectionsFree = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "connpool_connections_free",
		Help: "Connections currently idle in a partition free queue",
	}, []string{"pool"})

	// ConnectionsCreated mirrors Pool.Stats().TotalCreated per pool name.
	ConnectionsCreated = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "connpool_connections_created",
		Help: "Connections currently attributed to the pool (leased+free+pending-release)",
	}, []string{"pool"})

	// StarvationLatch reports the pool-wide starvation latch (0/1).
	StarvationLatch = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "connpool_starvation_latch",
		Help: "1 once the pool has ever exhausted and switched to saturated mode",
	}, []string{"pool"})

	// PartitionUnableToCreateMore reports each partition's creation latch.
	PartitionUnableToCreateMore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "connpool_partition_unable_to_create_more",
		Help: "1 when a partition's factory has latched off after a creation failure",
	}, []string{"pool", "partition"})

	// AcquireTotal counts acquire outcomes, plus completed releases under
	// the "released" outcome.
	AcquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connpool_acquire_total",
		Help: "Total acquire calls by outcome, plus completed releases (outcome=released)",
	}, []string{"pool", "outcome"})

	// DestroyedTotal counts connections destroyed, by reason.
	DestroyedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connpool_destroyed_total",
		Help: "Total connections destroyed, by reason",
	}, []string{"pool", "reason"})

	// AcquireWaitDuration tracks time spent blocked in acquire.
	AcquireWaitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "connpool_acquire_wait_seconds",
		Help:    "Time spent waiting for a connection in acquire",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"pool"})
)
