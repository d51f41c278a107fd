package pool

import (
	"context"
	"testing"
)

func TestConnectionTester_EvictsDeadConnection(t *testing.T) {
	cfg := testConfig("tester1", 1, 2, 2)
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown()

	part := p.partitions[0]
	conn, ok := part.tryDequeueFree()
	if !ok {
		t.Fatal("expected a warm connection in the free queue")
	}
	conn.raw.(*mockConn).alive.Store(false)
	part.free <- conn

	p.testPartitionIdle(part)

	if part.createdCountNow() != 1 {
		t.Fatalf("expected dead connection to be destroyed, createdCount=%d", part.createdCountNow())
	}
	if part.freeCount() != 1 {
		t.Fatalf("expected the remaining live connection still in the free queue, got %d", part.freeCount())
	}
}

func TestConnectionTester_EvictsOnIdleMaxAge(t *testing.T) {
	cfg := testConfig("tester2", 1, 1, 1)
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown()
	p.cfg.IdleMaxAge = 1 // effectively always-expired without sleeping a wall-clock duration

	part := p.partitions[0]
	p.testPartitionIdle(part)

	if part.createdCountNow() != 0 {
		t.Fatalf("expected the idle connection to be destroyed on max age, createdCount=%d", part.createdCountNow())
	}
}

func TestConnectionTester_KeepsHealthyConnection(t *testing.T) {
	cfg := testConfig("tester3", 1, 1, 1)
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown()

	part := p.partitions[0]
	p.testPartitionIdle(part)

	if part.createdCountNow() != 1 {
		t.Fatalf("expected healthy connection to survive the sweep, createdCount=%d", part.createdCountNow())
	}
	if part.freeCount() != 1 {
		t.Fatalf("expected healthy connection back in the free queue, got %d", part.freeCount())
	}
}

func TestIsAlive_ConfiguredStatement(t *testing.T) {
	cfg := testConfig("tester4", 1, 1, 1)
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown()
	p.cfg.ConnectionTestStatement = "SELECT 1"

	part := p.partitions[0]
	conn, ok := part.tryDequeueFree()
	if !ok {
		t.Fatal("expected a warm connection")
	}
	defer func() { part.free <- conn }()

	if !p.isAlive(context.Background(), conn) {
		t.Fatal("expected configured-statement probe to succeed against a healthy mock connection")
	}

	conn.raw.(*mockConn).alive.Store(false)
	if p.isAlive(context.Background(), conn) {
		t.Fatal("expected configured-statement probe to fail against a dead mock connection")
	}
}
