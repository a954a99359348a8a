// Package testutil provides an in-memory stand-in for the documents table so
// the postgres store can be tested without a server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
)

// documentColumns is the column order the store selects and inserts.
var documentColumns = []string{"name", "version", "content", "protocol", "updated_at"}

// StubConn understands the handful of statements the store issues against
// the documents table and records every exec.
type StubConn struct {
	Execs []string
	// Documents holds one row per name in documentColumns order.
	Documents map[string][]driver.Value

	FailExec   bool
	FailBegin  bool
	FailUpsert bool
	FailCommit bool
	RowsErr    error
}

var stubSeq atomic.Int64

// NewStubDB registers a fresh driver backed by a new StubConn and opens it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Documents: make(map[string][]driver.Value)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn. Every statement goes through the context
// variants instead.
func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, fmt.Errorf("stub: prepared statements unsupported")
}

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger and fails with FailExec.
func (c *StubConn) Ping(context.Context) error {
	if c.FailExec {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext for the DDL, upsert and delete.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	switch verb := leadingVerb(query); verb {
	case "CREATE":
		return driver.RowsAffected(0), nil
	case "INSERT":
		if c.FailUpsert {
			return nil, fmt.Errorf("upsert fail")
		}
		if len(args) != len(documentColumns) {
			return nil, fmt.Errorf("upsert wants %d args, got %d", len(documentColumns), len(args))
		}
		row := make([]driver.Value, len(args))
		for i, a := range args {
			row[i] = a.Value
		}
		c.Documents[row[0].(string)] = row
		return driver.RowsAffected(1), nil
	case "DELETE":
		if len(args) != 1 {
			return nil, fmt.Errorf("delete wants a name")
		}
		name := args[0].Value.(string)
		if _, ok := c.Documents[name]; !ok {
			return driver.RowsAffected(0), nil
		}
		delete(c.Documents, name)
		return driver.RowsAffected(1), nil
	default:
		return nil, fmt.Errorf("stub cannot exec %s: %s", verb, query)
	}
}

// QueryContext implements driver.QueryerContext. A single argument selects
// one document by name; no argument selects all of them ordered by name.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if leadingVerb(query) != "SELECT" {
		return nil, fmt.Errorf("stub cannot query: %s", query)
	}
	var rows [][]driver.Value
	if len(args) > 0 {
		if row, ok := c.Documents[args[0].Value.(string)]; ok {
			rows = append(rows, row)
		}
	} else {
		for _, name := range slices.Sorted(maps.Keys(c.Documents)) {
			rows = append(rows, c.Documents[name])
		}
	}
	return &stubRows{rows: rows, err: c.RowsErr}, nil
}

func leadingVerb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

type stubTx struct{ conn *StubConn }

func (t stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	return nil
}

func (t stubTx) Rollback() error { return nil }

type stubRows struct {
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return documentColumns }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
