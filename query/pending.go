package query

import (
	"context"
	"sync"

	"github.com/Konsultn-Engineering/gsql/database"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

// PendingQuery is one in-flight operation. It reaches exactly one Outcome
// and is never reused.
type PendingQuery struct {
	ID        ulid.ULID
	Component string
	SQL       string

	op database.Operation

	onSuccess func(*database.Result)
	onAborted func()
	onError   func(error)

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func newPendingQuery(id ulid.ULID, component, sql string, op database.Operation) *PendingQuery {
	return &PendingQuery{
		ID:        id,
		Component: component,
		SQL:       sql,
		op:        op,
		done:      make(chan struct{}),
	}
}

// Done is closed after the callback has returned.
func (p *PendingQuery) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the operation completed and returns its outcome.
func (p *PendingQuery) Wait() Outcome {
	<-p.done
	return p.outcome
}

// Outcome returns the outcome if the operation has completed.
func (p *PendingQuery) Outcome() (Outcome, bool) {
	select {
	case <-p.done:
		return p.outcome, true
	default:
		return Outcome{}, false
	}
}

// run executes the operation and settles the query.
func (p *PendingQuery) run(ctx context.Context) Outcome {
	res, err := p.op(ctx)
	p.settle(ctx, res, err)
	return p.outcome
}

// settle records the outcome and fires the matching handler. Only the
// first call has any effect.
func (p *PendingQuery) settle(ctx context.Context, res *database.Result, err error) {
	p.once.Do(func() {
		defer close(p.done)

		switch {
		case err == nil:
			if res == nil {
				res = &database.Result{Rows: []database.Row{}}
			}
			p.outcome = Outcome{Reason: ReasonSuccess, Result: res}
			p.onSuccess(res)
		case aborted(ctx, err):
			p.outcome = Outcome{Reason: ReasonAborted, Err: err}
			p.onAborted()
		default:
			p.outcome = Outcome{Reason: ReasonError, Err: err}
			p.onError(err)
		}
	})
}

func aborted(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		ctx.Err() != nil
}
