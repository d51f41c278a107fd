// Package factory implements pool.ConnectionFactory and pool.RawConnection
// on top of database/sql, for every driver the pack exercises: SQL Server,
// MySQL, Postgres, and SQLite. Each PooledConnection maps 1:1 to a single
// physical connection, the same technique the teacher proxy used for its
// SQL Server pool: a *sql.DB with MaxOpenConns(1) standing in for one raw
// connection handle.
package factory

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/joao-brasil/connpool/internal/pool"
	"github.com/joao-brasil/connpool/pkg/target"
)

// SQLFactory produces sqlRawConn values for a single target.
type SQLFactory struct {
	t target.Target
}

// New builds a ConnectionFactory bound to t.
func New(t target.Target) *SQLFactory {
	return &SQLFactory{t: t}
}

// Open implements pool.ConnectionFactory: opens one physical connection,
// pins database/sql to a single connection per handle, and verifies
// reachability with a ping before handing the connection to the pool.
func (f *SQLFactory) Open(ctx context.Context) (pool.RawConnection, error) {
	db, err := sql.Open(f.t.SQLDriverName(), f.t.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("sql.Open(%s): %w", f.t.SQLDriverName(), err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // the pool manages connection lifetime itself

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", f.t.Addr(), err)
	}

	return &sqlRawConn{db: db, driver: f.t.Driver}, nil
}

// sqlRawConn implements pool.RawConnection over a single-connection
// *sql.DB handle.
type sqlRawConn struct {
	db     *sql.DB
	driver target.Driver
}

// Prepare compiles the configured liveness-probe statement. *sql.Stmt
// already satisfies pool.Statement, so it is returned as-is.
func (c *sqlRawConn) Prepare(ctx context.Context, query string) (pool.Statement, error) {
	return c.db.PrepareContext(ctx, query)
}

// TableNames performs the default liveness probe: a metadata lookup for
// name, restricted to base tables, using each driver's catalog dialect.
// The lookup need not find anything — any successful round-trip counts as
// alive (spec §4.5).
func (c *sqlRawConn) TableNames(ctx context.Context, name string) ([]string, error) {
	query, arg := c.metadataQuery()

	rows, err := c.db.QueryContext(ctx, query, arg(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// metadataQuery returns the base-table name lookup for this driver plus a
// function producing the placeholder argument (drivers disagree on
// placeholder syntax: mssql/mysql/sqlite use "?"-style via database/sql
// rebinding where supported, postgres needs "$1").
func (c *sqlRawConn) metadataQuery() (string, func(string) any) {
	ident := func(s string) any { return s }
	switch c.driver {
	case target.DriverPostgres:
		return `SELECT table_name FROM information_schema.tables WHERE table_type = 'BASE TABLE' AND table_name = $1`, ident
	case target.DriverSQLite:
		return `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, ident
	default: // mssql, mysql
		return `SELECT table_name FROM information_schema.tables WHERE table_type = 'BASE TABLE' AND table_name = ?`, ident
	}
}

// Close releases the underlying database/sql handle.
func (c *sqlRawConn) Close() error {
	return c.db.Close()
}
