// Package registry mirrors per-instance pool counters into Redis for
// multi-instance observability, grounded on the teacher's
// internal/coordinator package. Unlike the teacher's coordinator, this
// registry never participates in admission control: no Lua scripts, no
// cross-instance connection limits. It only publishes what each pool
// already knows about itself (totalLeased/totalFree/totalCreated) so an
// operator can see the whole fleet's pool health from one place, which
// keeps the Redis dependency wired without smuggling distributed
// semantics into the acquire/release algorithm.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joao-brasil/connpool/internal/config"
	"github.com/joao-brasil/connpool/internal/pool"
)

const (
	keyInstanceList  = "connpool:instances"
	keyInstancePools = "connpool:instance:%s:pools"
	keyInstanceHB    = "connpool:instance:%s:heartbeat"
)

// poolSnapshot is what gets JSON-encoded into the per-instance pools hash.
type poolSnapshot struct {
	TotalLeased     int64 `json:"total_leased"`
	TotalFree       int64 `json:"total_free"`
	TotalCreated    int64 `json:"total_created"`
	StarvationLatch bool  `json:"starvation_latch"`
}

// Registry periodically publishes this instance's pool counters to Redis
// and heartbeats its own liveness.
type Registry struct {
	client     *redis.Client
	instanceID string
	interval   time.Duration
	ttl        time.Duration

	mu    sync.Mutex
	pools map[string]*pool.Pool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New connects to Redis and returns a Registry for instanceID. It pings
// once up front; a failed ping is a construction error, since a registry
// that can never reach Redis is not worth running.
func New(ctx context.Context, cfg config.RegistryConfig, instanceID string) (*Registry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("registry: redis ping: %w", err)
	}

	return &Registry{
		client:     client,
		instanceID: instanceID,
		interval:   cfg.HeartbeatInterval,
		ttl:        cfg.HeartbeatTTL,
		pools:      make(map[string]*pool.Pool),
		stopCh:     make(chan struct{}),
	}, nil
}

// Watch registers p to be mirrored under name on every tick.
func (r *Registry) Watch(name string, p *pool.Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[name] = p
}

// Start registers this instance and begins the heartbeat/mirror loop.
func (r *Registry) Start(ctx context.Context) error {
	if err := r.client.SAdd(ctx, keyInstanceList, r.instanceID).Err(); err != nil {
		return fmt.Errorf("registry: registering instance: %w", err)
	}
	r.wg.Add(1)
	go r.loop(ctx)
	log.Printf("[registry] %s: started, interval=%s ttl=%s", r.instanceID, r.interval, r.ttl)
	return nil
}

func (r *Registry) loop(ctx context.Context) {
	defer r.wg.Done()

	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	cleanupCounter := 0
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.tick(ctx)
			cleanupCounter++
			if cleanupCounter%3 == 0 {
				r.cleanupDeadInstances(ctx)
			}
		}
	}
}

func (r *Registry) tick(ctx context.Context) {
	hbKey := fmt.Sprintf(keyInstanceHB, r.instanceID)
	if err := r.client.Set(ctx, hbKey, time.Now().Unix(), r.ttl).Err(); err != nil {
		log.Printf("[registry] %s: heartbeat failed: %v", r.instanceID, err)
		return
	}
	r.mirrorCounters(ctx)
}

// mirrorCounters publishes every watched pool's Stats() into this
// instance's pools hash in Redis.
func (r *Registry) mirrorCounters(ctx context.Context) {
	r.mu.Lock()
	snapshot := make(map[string]*pool.Pool, len(r.pools))
	for name, p := range r.pools {
		snapshot[name] = p
	}
	r.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	poolsKey := fmt.Sprintf(keyInstancePools, r.instanceID)
	pipe := r.client.Pipeline()
	for name, p := range snapshot {
		s := p.Stats()
		encoded, err := json.Marshal(poolSnapshot{
			TotalLeased:     s.TotalLeased,
			TotalFree:       s.TotalFree,
			TotalCreated:    s.TotalCreated,
			StarvationLatch: s.StarvationLatch,
		})
		if err != nil {
			continue
		}
		pipe.HSet(ctx, poolsKey, name, encoded)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[registry] %s: mirroring counters failed: %v", r.instanceID, err)
	}
}

// ActiveInstances returns the set of instance IDs currently registered.
func (r *Registry) ActiveInstances(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, keyInstanceList).Result()
}

// Stop signals the background loop to exit and waits for it.
func (r *Registry) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

// Close unregisters this instance and closes the Redis client.
func (r *Registry) Close(ctx context.Context) error {
	r.client.SRem(ctx, keyInstanceList, r.instanceID)
	r.client.Del(ctx, fmt.Sprintf(keyInstancePools, r.instanceID))
	r.client.Del(ctx, fmt.Sprintf(keyInstanceHB, r.instanceID))
	log.Printf("[registry] %s: unregistered", r.instanceID)
	return r.client.Close()
}
