package pool

import (
	"context"
	"testing"
	"time"
)

func TestPoolWatch_GrowsOnAlmostFull(t *testing.T) {
	cfg := testConfig("watch1", 1, 1, 6)
	cfg.AcquireIncrement = 3
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown()

	part := p.partitions[0]
	if got := part.createdCountNow(); got != 1 {
		t.Fatalf("expected 1 warm connection, got %d", got)
	}

	part.signalAlmostFull()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if part.createdCountNow() >= 4 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := part.createdCountNow(); got < 4 {
		t.Fatalf("expected PoolWatch to grow partition to at least 4 connections, got %d", got)
	}
}

func TestPoolWatch_LatchesUnableToCreateMoreOnFactoryFailure(t *testing.T) {
	f := &mockFactory{}
	cfg := Config{
		Name:                       "watch2",
		PartitionCount:             1,
		MinConnectionsPerPartition: 1,
		MaxConnectionsPerPartition: 6,
		AcquireIncrement:           2,
		Factory:                    f,
	}
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown()

	f.failing.Store(true)
	part := p.partitions[0]
	part.signalAlmostFull()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if part.unableToCreateMore.Load() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !part.unableToCreateMore.Load() {
		t.Fatal("expected unableToCreateMore to latch after factory failure")
	}

	// A subsequent successful destroy clears the latch (spec §4.4).
	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Discard(conn)
	if part.unableToCreateMore.Load() {
		t.Fatal("expected unableToCreateMore to clear after a destroy")
	}
}
