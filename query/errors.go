package query

import "github.com/pkg/errors"

var (
	// ErrEmptyTemplate is returned when a query is dispatched without SQL.
	ErrEmptyTemplate = errors.New("query template is empty")
	// ErrNoEscape is returned when substitution has no escape function.
	ErrNoEscape = errors.New("no escape function")
)
