package pool

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Manager owns one Pool per named target, so a single process can pool
// several distinct databases the way the teacher proxy pooled several RDS
// buckets — generalized here to any target name, not just SQL Server
// buckets.
type Manager struct {
	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewManager returns an empty Manager. Pools are added with Add.
func NewManager() *Manager {
	return &Manager{pools: make(map[string]*Pool)}
}

// Add constructs a pool from cfg and registers it under cfg.Name. If
// construction fails, any pools already added to this Manager are closed
// before the error surfaces.
func (m *Manager) Add(ctx context.Context, cfg Config) error {
	p, err := New(ctx, cfg)
	if err != nil {
		m.Close()
		return fmt.Errorf("initializing pool %s: %w", cfg.Name, err)
	}

	m.mu.Lock()
	m.pools[cfg.Name] = p
	m.mu.Unlock()
	return nil
}

// Pool returns the named pool, if registered.
func (m *Manager) Pool(name string) (*Pool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[name]
	return p, ok
}

// Acquire is a convenience wrapper around Pool(name).Acquire.
func (m *Manager) Acquire(ctx context.Context, name string) (*PooledConnection, error) {
	p, ok := m.Pool(name)
	if !ok {
		return nil, fmt.Errorf("pool: unknown target %q", name)
	}
	return p.Acquire(ctx)
}

// Release returns conn to whichever pool it belongs to. Since every
// PooledConnection carries its origin partition (which back-references
// its Pool), Manager doesn't need conn's target name to route this.
func (m *Manager) Release(ctx context.Context, conn *PooledConnection) error {
	if conn == nil || conn.origin == nil {
		return nil
	}
	return conn.origin.pool.Release(ctx, conn)
}

// Names returns the registered pool names.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.pools))
	for name := range m.pools {
		names = append(names, name)
	}
	return names
}

// AllStats returns Stats for every registered pool, keyed by name.
func (m *Manager) AllStats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := make(map[string]Stats, len(m.pools))
	for name, p := range m.pools {
		stats[name] = p.Stats()
	}
	return stats
}

// Close shuts down every registered pool.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, p := range m.pools {
		p.Shutdown()
		log.Printf("[manager] pool %s closed", name)
	}
	m.pools = nil
	return nil
}
