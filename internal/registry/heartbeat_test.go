package registry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/joao-brasil/connpool/internal/config"
)

func TestCleanupDeadInstances_RemovesExpiredHeartbeat(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RegistryConfig{Addr: s.Addr(), HeartbeatInterval: time.Hour, HeartbeatTTL: time.Hour}

	reg, err := New(context.Background(), cfg, "watcher")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer reg.client.Close()

	ctx := context.Background()
	reg.client.SAdd(ctx, keyInstanceList, "watcher", "dead-one", "alive-one")
	reg.client.Set(ctx, "connpool:instance:alive-one:heartbeat", 1, time.Hour)
	// dead-one has no heartbeat key at all: simulates an expired TTL.

	reg.cleanupDeadInstances(ctx)

	members, err := s.SMembers(keyInstanceList)
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	for _, m := range members {
		if m == "dead-one" {
			t.Fatal("expected dead-one to be removed from the instance set")
		}
	}

	foundAlive := false
	for _, m := range members {
		if m == "alive-one" {
			foundAlive = true
		}
	}
	if !foundAlive {
		t.Fatal("expected alive-one to remain in the instance set")
	}
}
