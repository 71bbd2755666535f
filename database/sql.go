package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SqlDatabase implements Database for *sql.DB.
type SqlDatabase struct {
	db *sqlx.DB
}

// NewSqlDatabase wraps db; driverName selects sqlx bind rules.
func NewSqlDatabase(db *sql.DB, driverName string) *SqlDatabase {
	return &SqlDatabase{db: sqlx.NewDb(db, driverName)}
}

// Run executes query, reading rows when it returns any.
func (s *SqlDatabase) Run(ctx context.Context, query string, args ...any) (*Result, error) {
	return run(ctx, s.db, query, ReturnsRows(query), args)
}

// Prepare creates a prepared statement on the server.
func (s *SqlDatabase) Prepare(ctx context.Context, query string) (Stmt, error) {
	stmt, err := s.db.PreparexContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &SqlStmt{stmt: stmt, rows: ReturnsRows(query)}, nil
}

// PingContext verifies the connection to the database is alive.
func (s *SqlDatabase) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SqlDatabase) Close() error { return s.db.Close() }

// DB returns the underlying handle.
func (s *SqlDatabase) DB() *sqlx.DB { return s.db }

// SqlStmt implements Stmt for *sqlx.Stmt.
type SqlStmt struct {
	stmt *sqlx.Stmt
	rows bool
	args []any
}

// SetNumber binds a numeric value at pos.
func (s *SqlStmt) SetNumber(pos int, v float64) { s.set(pos, v) }

// SetString binds a string value at pos.
func (s *SqlStmt) SetString(pos int, v string) { s.set(pos, v) }

// SetBool binds a boolean value at pos.
func (s *SqlStmt) SetBool(pos int, v bool) { s.set(pos, v) }

// SetNull binds NULL at pos.
func (s *SqlStmt) SetNull(pos int) { s.set(pos, nil) }

// ClearParameters drops all bindings.
func (s *SqlStmt) ClearParameters() { s.args = s.args[:0] }

// Bound returns an Operation executing the statement with a copy of the
// current bindings.
func (s *SqlStmt) Bound() Operation {
	args := make([]any, len(s.args))
	copy(args, s.args)
	return func(ctx context.Context) (*Result, error) {
		return run(ctx, stmtRunner{s.stmt}, "", s.rows, args)
	}
}

// Close closes the statement on the server.
func (s *SqlStmt) Close() error { return s.stmt.Close() }

func (s *SqlStmt) set(pos int, v any) {
	if pos < 1 {
		panic(fmt.Sprintf("database: parameter position %d out of range", pos))
	}
	for len(s.args) < pos {
		s.args = append(s.args, nil)
	}
	s.args[pos-1] = v
}

// runner is satisfied by *sqlx.DB and, through stmtRunner, *sqlx.Stmt.
type runner interface {
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func run(ctx context.Context, q runner, query string, rows bool, args []any) (*Result, error) {
	if rows {
		rs, err := q.QueryxContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		return collect(rs)
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return summarize(res), nil
}

// stmtRunner adapts a prepared statement to runner; the query text is
// ignored.
type stmtRunner struct {
	stmt *sqlx.Stmt
}

func (s stmtRunner) QueryxContext(ctx context.Context, _ string, args ...any) (*sqlx.Rows, error) {
	return s.stmt.QueryxContext(ctx, args...)
}

func (s stmtRunner) ExecContext(ctx context.Context, _ string, args ...any) (sql.Result, error) {
	return s.stmt.ExecContext(ctx, args...)
}

func collect(rs *sqlx.Rows) (*Result, error) {
	defer rs.Close()

	out := make([]Row, 0)
	for rs.Next() {
		row := make(map[string]any)
		if err := rs.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return &Result{Rows: out, RowsAffected: int64(len(out))}, nil
}

func summarize(res sql.Result) *Result {
	out := &Result{Rows: []Row{}, RowsAffected: -1}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out
}

// Assert that SqlDatabase implements the Database interface.
var _ Database = (*SqlDatabase)(nil)

// Assert that SqlStmt implements the Stmt interface.
var _ Stmt = (*SqlStmt)(nil)
