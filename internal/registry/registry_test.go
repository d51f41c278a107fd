package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/joao-brasil/connpool/internal/config"
	"github.com/joao-brasil/connpool/internal/factory"
	"github.com/joao-brasil/connpool/internal/pool"
	"github.com/joao-brasil/connpool/pkg/target"
)

func newTestPool(t *testing.T, name string) *pool.Pool {
	t.Helper()
	tgt := target.Target{Name: name, Driver: target.DriverSQLite, Database: fmt.Sprintf("file:%s?mode=memory&cache=shared", name)}
	p, err := pool.New(context.Background(), pool.Config{
		Name:                       name,
		PartitionCount:             1,
		MinConnectionsPerPartition: 1,
		MaxConnectionsPerPartition: 1,
		AcquireIncrement:           1,
		Factory:                    factory.New(tgt),
	})
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	t.Cleanup(p.Shutdown)
	return p
}

func TestRegistry_HeartbeatAndMirrorCounters(t *testing.T) {
	s := miniredis.RunT(t)

	cfg := config.RegistryConfig{
		Addr:              s.Addr(),
		HeartbeatInterval: 20 * time.Millisecond,
		HeartbeatTTL:      time.Second,
	}

	reg, err := New(context.Background(), cfg, "instance-a")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := newTestPool(t, "regtest")
	reg.Watch("regtest", p)

	if err := reg.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer reg.Stop()

	deadline := time.Now().Add(time.Second)
	var raw string
	for time.Now().Before(deadline) {
		var err error
		raw, err = s.HGet("connpool:instance:instance-a:pools", "regtest")
		if err == nil && raw != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if raw == "" {
		t.Fatal("expected a mirrored pool snapshot in Redis")
	}

	var snap poolSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.TotalCreated != 1 {
		t.Fatalf("expected totalCreated=1, got %d", snap.TotalCreated)
	}

	if !s.Exists("connpool:instance:instance-a:heartbeat") {
		t.Fatal("expected a heartbeat key in Redis")
	}

	members, err := s.SMembers("connpool:instances")
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	found := false
	for _, m := range members {
		if m == "instance-a" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected instance-a registered in the instance set")
	}
}

func TestRegistry_NewFailsWhenRedisUnreachable(t *testing.T) {
	cfg := config.RegistryConfig{Addr: "127.0.0.1:1"}
	if _, err := New(context.Background(), cfg, "instance-b"); err == nil {
		t.Fatal("expected New to fail against an unreachable redis")
	}
}

func TestRegistry_CloseUnregistersInstance(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RegistryConfig{Addr: s.Addr(), HeartbeatInterval: time.Hour, HeartbeatTTL: time.Hour}

	reg, err := New(context.Background(), cfg, "instance-c")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := reg.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	reg.Stop()

	if err := reg.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	members, _ := s.SMembers("connpool:instances")
	for _, m := range members {
		if m == "instance-c" {
			t.Fatal("expected instance-c removed from the instance set after Close")
		}
	}
}
