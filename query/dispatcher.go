package query

import (
	"context"
	"sync"
	"time"

	"github.com/Konsultn-Engineering/gsql/database"
	"github.com/Konsultn-Engineering/gsql/metrics"
	"github.com/Konsultn-Engineering/gsql/utils"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/ulid/v2"
)

// Recorder receives diagnostics for failed operations.
type Recorder interface {
	Record(component, message string)
}

type DispatcherConfig struct {
	// Timeout bounds each operation; zero means none. An expired
	// operation is reported as aborted.
	Timeout time.Duration
	Sink    Recorder
	Logger  log.Logger
	Metrics *metrics.Metrics
}

// Dispatcher runs operations on their own goroutine and routes each
// outcome to the caller's callback.
type Dispatcher struct {
	root    context.Context
	timeout time.Duration
	sink    Recorder
	logger  log.Logger
	metrics *metrics.Metrics
	ids     *utils.ULIDGenerator

	mu       sync.Mutex
	inflight map[ulid.ULID]*PendingQuery
	wg       sync.WaitGroup
}

// NewDispatcher returns a dispatcher whose operations are aborted once
// root is cancelled.
func NewDispatcher(root context.Context, cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}
	if cfg.Sink == nil {
		cfg.Sink = nopRecorder{}
	}
	return &Dispatcher{
		root:     root,
		timeout:  cfg.Timeout,
		sink:     cfg.Sink,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		ids:      utils.NewULIDGenerator(),
		inflight: make(map[ulid.ULID]*PendingQuery),
	}
}

// Dispatch starts op and returns immediately. cb is called exactly once
// from the operation's goroutine; a nil cb is allowed.
func (d *Dispatcher) Dispatch(ctx context.Context, component, sql string, op database.Operation, cb Callback) *PendingQuery {
	if cb == nil {
		cb = func(bool, Reason, *database.Result) {}
	}

	p := newPendingQuery(d.ids.MustGenerate(), component, sql, op)
	p.onSuccess = func(res *database.Result) {
		cb(true, ReasonSuccess, res)
	}
	p.onAborted = func() {
		cb(false, ReasonAborted, nil)
	}
	p.onError = func(err error) {
		d.sink.Record(component, err.Error())
		cb(false, ReasonError, nil)
	}

	d.track(p)

	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(d.root, cancel)
	if d.timeout > 0 {
		opCtx, cancel = withTimeout(opCtx, cancel, d.timeout)
	}

	level.Debug(d.logger).Log("msg", "dispatching", "component", component, "id", p.ID, "sql", sql)

	go func() {
		defer d.untrack(p)
		defer cancel()
		defer stop()

		out := p.run(opCtx)
		d.metrics.Finished(component, string(out.Reason))
		level.Debug(d.logger).Log("msg", "completed", "component", component, "id", p.ID, "outcome", out.Reason)
	}()

	return p
}

// InFlight returns the number of operations whose callback has not
// returned yet.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// Wait blocks until every dispatched operation has completed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) track(p *PendingQuery) {
	d.mu.Lock()
	d.inflight[p.ID] = p
	d.mu.Unlock()

	d.wg.Add(1)
	d.metrics.Started()
}

func (d *Dispatcher) untrack(p *PendingQuery) {
	d.mu.Lock()
	delete(d.inflight, p.ID)
	d.mu.Unlock()

	d.wg.Done()
}

func withTimeout(ctx context.Context, parent context.CancelFunc, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		parent()
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(string, string) {}
