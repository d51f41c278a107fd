package health

import (
	"context"
	"fmt"
	"testing"

	"github.com/joao-brasil/connpool/internal/factory"
	"github.com/joao-brasil/connpool/internal/pool"
	"github.com/joao-brasil/connpool/pkg/target"
)

func addTestPool(t *testing.T, m *pool.Manager, name string, max int) {
	t.Helper()
	tgt := target.Target{Name: name, Driver: target.DriverSQLite, Database: fmt.Sprintf("file:%s?mode=memory&cache=shared", name)}
	cfg := pool.Config{
		Name:                       name,
		PartitionCount:             1,
		MinConnectionsPerPartition: 1,
		MaxConnectionsPerPartition: max,
		AcquireIncrement:           1,
		Factory:                    factory.New(tgt),
	}
	if err := m.Add(context.Background(), cfg); err != nil {
		t.Fatalf("Manager.Add(%s): %v", name, err)
	}
}

func TestChecker_ReportsHealthyPool(t *testing.T) {
	m := pool.NewManager()
	defer m.Close()
	addTestPool(t, m, "h1", 4)

	c := NewChecker("instance-1", m)
	report := c.Check()

	if report.Status != StatusHealthy {
		t.Fatalf("expected healthy report, got %s", report.Status)
	}
	if len(report.Pools) != 1 {
		t.Fatalf("expected 1 pool in report, got %d", len(report.Pools))
	}
	if report.Pools[0].Name != "h1" {
		t.Fatalf("expected pool name h1, got %s", report.Pools[0].Name)
	}
	if report.InstanceID != "instance-1" {
		t.Fatalf("expected instance_id instance-1, got %s", report.InstanceID)
	}
}

func TestChecker_MultiplePoolsAllHealthy(t *testing.T) {
	m := pool.NewManager()
	defer m.Close()
	addTestPool(t, m, "h2", 2)
	addTestPool(t, m, "h3", 2)

	c := NewChecker("instance-2", m)
	report := c.Check()

	if report.Status != StatusHealthy {
		t.Fatalf("expected healthy report, got %s", report.Status)
	}
	if len(report.Pools) != 2 {
		t.Fatalf("expected 2 pools in report, got %d", len(report.Pools))
	}
}
