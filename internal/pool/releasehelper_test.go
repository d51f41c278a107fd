package pool

import (
	"context"
	"testing"
	"time"
)

func TestReleaseHelper_OffloadsReleaseWork(t *testing.T) {
	cfg := testConfig("helper1", 1, 2, 2)
	cfg.ReleaseHelperThreadCount = 1
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown()

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Release offloads to the helper queue instead of running inline; the
	// connection should still make it back into the free queue shortly.
	if err := p.Release(context.Background(), conn); err != nil {
		t.Fatalf("Release: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.partitions[0].freeCount() == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := p.partitions[0].freeCount(); got != 2 {
		t.Fatalf("expected released connection back in the free queue, freeCount=%d", got)
	}
}

func TestReleaseHelper_DestroysPossiblyBrokenConnection(t *testing.T) {
	cfg := testConfig("helper2", 1, 1, 1)
	cfg.ReleaseHelperThreadCount = 2
	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Shutdown()

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	conn.raw.(*mockConn).alive.Store(false)
	conn.MarkPossiblyBroken()

	if err := p.Release(context.Background(), conn); err != nil {
		t.Fatalf("Release: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.partitions[0].createdCountNow() == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := p.partitions[0].createdCountNow(); got != 0 {
		t.Fatalf("expected broken connection destroyed via helper, createdCount=%d", got)
	}
}
