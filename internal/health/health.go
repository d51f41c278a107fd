// Package health serves the HTTP introspection endpoints spec §6 allows:
// counters only, no connection internals. It reports each pool's
// totalLeased/totalFree/totalCreated and starvation latch, grounded on
// the teacher's internal/health package (same ServeHTTP/Check shape,
// narrowed to the counters the pool exposes instead of opening ad-hoc
// probe connections per request).
package health

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joao-brasil/connpool/internal/pool"
)

// Status represents a component's health status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// PoolHealth reports one pool's counters.
type PoolHealth struct {
	Name            string `json:"name"`
	Status          Status `json:"status"`
	TotalLeased     int64  `json:"total_leased"`
	TotalFree       int64  `json:"total_free"`
	TotalCreated    int64  `json:"total_created"`
	StarvationLatch bool   `json:"starvation_latch"`
}

// Report is the overall health report.
type Report struct {
	Status     Status       `json:"status"`
	Timestamp  string       `json:"timestamp"`
	InstanceID string       `json:"instance_id"`
	Pools      []PoolHealth `json:"pools"`
}

// Checker reports on every pool registered with a Manager.
type Checker struct {
	instanceID string
	manager    *pool.Manager
}

// NewChecker returns a Checker for the pools owned by m.
func NewChecker(instanceID string, m *pool.Manager) *Checker {
	return &Checker{instanceID: instanceID, manager: m}
}

// Check reports counters for every registered pool. A pool is reported
// unhealthy when every one of its partitions has latched
// unableToCreateMore, which signals the underlying database is
// unreachable and no partition can grow.
func (c *Checker) Check() Report {
	report := Report{
		Status:     StatusHealthy,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		InstanceID: c.instanceID,
	}

	for name, s := range c.manager.AllStats() {
		status := StatusHealthy
		if p, ok := c.manager.Pool(name); ok && allPartitionsLatched(p) {
			status = StatusUnhealthy
		}
		if status == StatusUnhealthy {
			report.Status = StatusUnhealthy
		}
		report.Pools = append(report.Pools, PoolHealth{
			Name:            name,
			Status:          status,
			TotalLeased:     s.TotalLeased,
			TotalFree:       s.TotalFree,
			TotalCreated:    s.TotalCreated,
			StarvationLatch: s.StarvationLatch,
		})
	}

	return report
}

func allPartitionsLatched(p *pool.Pool) bool {
	s := p.Stats()
	if len(s.Partitions) == 0 {
		return false
	}
	for _, ps := range s.Partitions {
		if !ps.UnableToCreateMore {
			return false
		}
	}
	return true
}

// ServeHTTP starts the health-check HTTP server on the given port.
func (c *Checker) ServeHTTP(port int) *http.Server {
	mux := http.NewServeMux()

	serve := func(w http.ResponseWriter, r *http.Request) {
		report := c.Check()
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}

	mux.HandleFunc("/healthz", serve)
	mux.HandleFunc("/healthz/ready", serve)
	mux.HandleFunc("/healthz/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("[health] HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[health] HTTP server error: %v", err)
		}
	}()

	return server
}
