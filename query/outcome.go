package query

import "github.com/Konsultn-Engineering/gsql/database"

// Reason names the terminal outcome reported to a Callback.
type Reason string

const (
	ReasonSuccess Reason = "success"
	ReasonAborted Reason = "aborted"
	ReasonError   Reason = "error"
)

// Callback receives the outcome of one operation, exactly once. res is
// only set on success. Driver error text is never passed here; it goes to
// the diagnostics sink.
type Callback func(ok bool, reason Reason, res *database.Result)

// Outcome is the terminal state of a PendingQuery.
type Outcome struct {
	Reason Reason
	Result *database.Result
	// Err is the driver error for ReasonError and the context error for
	// ReasonAborted.
	Err error
}

func (o Outcome) OK() bool {
	return o.Reason == ReasonSuccess
}
