// Package target defines the connection coordinates and pool-shaping
// options for a single pooled database, and builds the database/sql DSN
// for each driver the pack supports. It generalizes the teacher's
// single-driver pkg/bucket/bucket.go to four drivers.
package target

import (
	"fmt"
	"time"
)

// Driver identifies which database/sql driver a Target connects through.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite3"
	DriverMSSQL    Driver = "sqlserver"
)

// Target holds the connection coordinates for one pooled database plus the
// pool-shaping fields spec §6 recognizes (partitionCount,
// minConnectionsPerPartition, maxConnectionsPerPartition, acquireIncrement,
// idleConnectionTestPeriodMillis, idleMaxAgeMillis,
// connectionTestStatement, releaseHelperThreadCount, jdbcUrl/username/
// password — here Host/Port/Database/Username/Password play the jdbcUrl
// role since database/sql has no single connection-URL type shared across
// drivers).
type Target struct {
	Name   string `yaml:"name"`
	Driver Driver `yaml:"driver"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	PartitionCount             int           `yaml:"partition_count"`
	MinConnectionsPerPartition int           `yaml:"min_connections_per_partition"`
	MaxConnectionsPerPartition int           `yaml:"max_connections_per_partition"`
	AcquireIncrement           int           `yaml:"acquire_increment"`
	IdleConnectionTestPeriod   time.Duration `yaml:"idle_connection_test_period"`
	IdleMaxAge                 time.Duration `yaml:"idle_max_age"`
	ConnectionTestStatement    string        `yaml:"connection_test_statement"`
	ReleaseHelperThreadCount   int           `yaml:"release_helper_thread_count"`
}

// SQLDriverName returns the database/sql driver name registered for t's
// Driver, matching the blank imports in internal/factory.
func (t Target) SQLDriverName() string {
	return string(t.Driver)
}

// Addr returns the host:port address of the target, or the sqlite DSN
// itself when there is no host/port (sqlite is file- or memory-backed).
func (t Target) Addr() string {
	if t.Driver == DriverSQLite {
		return t.Database
	}
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// ConnectionString builds the driver-specific DSN database/sql needs to
// open t. Sqlite's Database field is used verbatim (it is already a DSN,
// e.g. "file::memory:?cache=shared"): there is no host/port/credential
// triple to assemble for a file- or memory-backed database.
func (t Target) ConnectionString() string {
	switch t.Driver {
	case DriverPostgres:
		return fmt.Sprintf(
			"host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
			t.Host, t.Port, t.Database, t.Username, t.Password,
		)
	case DriverMySQL:
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			t.Username, t.Password, t.Host, t.Port, t.Database,
		)
	case DriverMSSQL:
		return fmt.Sprintf(
			"sqlserver://%s:%s@%s:%d?database=%s",
			t.Username, t.Password, t.Host, t.Port, t.Database,
		)
	case DriverSQLite:
		return t.Database
	default:
		return t.Database
	}
}
