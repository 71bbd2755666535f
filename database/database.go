package database

import (
	"context"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Result is what a completed operation produced.
type Result struct {
	Rows []Row
	// RowsAffected is read from the completed operation. For row returning
	// statements it is the number of rows read; -1 when the driver cannot
	// report it.
	RowsAffected int64
	// LastInsertID is zero when the driver does not support it.
	LastInsertID int64
}

// Operation runs one statement to completion.
type Operation func(ctx context.Context) (*Result, error)

// Database is the connection handle the query layer runs against.
type Database interface {
	Run(ctx context.Context, query string, args ...any) (*Result, error)
	Prepare(ctx context.Context, query string) (Stmt, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Stmt is a driver prepared statement with positional, 1-based bindings.
// Bindings are kept until ClearParameters.
type Stmt interface {
	SetNumber(pos int, v float64)
	SetString(pos int, v string)
	SetBool(pos int, v bool)
	SetNull(pos int)
	ClearParameters()
	// Bound snapshots the current bindings into an Operation. Later Set
	// calls do not affect the returned Operation.
	Bound() Operation
	Close() error
}
