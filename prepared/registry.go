// Package prepared keeps driver prepared statements in a table addressed by
// stable integer index.
package prepared

import (
	"context"
	"strings"
	"sync"

	"github.com/Konsultn-Engineering/gsql/database"
	"github.com/Konsultn-Engineering/gsql/metrics"
	"github.com/Konsultn-Engineering/gsql/query"
	"github.com/Konsultn-Engineering/gsql/utils"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// FirstIndex is the lowest index a handle can have. Index 0 is never valid.
const FirstIndex = 1

// Component tags used in diagnostics records.
const (
	ComponentPrepare = "prepare"
	ComponentDelete  = "delete"
	ComponentExecute = "execute"
)

type handle struct {
	index int
	name  string
	sql   string
	stmt  database.Stmt
}

type Config struct {
	Sink    query.Recorder
	Logger  log.Logger
	Metrics *metrics.Metrics
}

// Registry owns prepared statement handles. Indices grow monotonically and
// are never reused; a retired slot stays empty.
type Registry struct {
	db         database.Database
	dispatcher *query.Dispatcher
	sink       query.Recorder
	logger     log.Logger
	metrics    *metrics.Metrics

	mu     sync.Mutex
	slots  []*handle
	live   int
	closed bool
}

func NewRegistry(db database.Database, dispatcher *query.Dispatcher, cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}
	if cfg.Sink == nil {
		cfg.Sink = nopRecorder{}
	}
	return &Registry{
		db:         db,
		dispatcher: dispatcher,
		sink:       cfg.Sink,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		slots:      make([]*handle, FirstIndex),
	}
}

// Allocate prepares sql on the server and returns its index.
func (r *Registry) Allocate(ctx context.Context, sql string) (int, error) {
	if strings.TrimSpace(sql) == "" {
		return 0, r.reject(ComponentPrepare, ErrInvalidStatement)
	}

	stmt, err := r.db.Prepare(ctx, sql)
	if err != nil {
		return 0, r.reject(ComponentPrepare, errors.Wrap(err, "prepare failed"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		stmt.Close()
		return 0, r.reject(ComponentPrepare, ErrClosed)
	}

	h := &handle{
		index: len(r.slots),
		name:  utils.NewName(),
		sql:   sql,
		stmt:  stmt,
	}
	r.slots = append(r.slots, h)
	r.live++
	r.metrics.HandleAllocated()

	level.Debug(r.logger).Log("msg", "prepared statement allocated", "index", h.index, "name", h.name)
	return h.index, nil
}

// Retire closes the statement at index and empties its slot.
func (r *Registry) Retire(index int) error {
	r.mu.Lock()
	h, err := r.lookup(index)
	if err != nil {
		r.mu.Unlock()
		return r.reject(ComponentDelete, err)
	}
	r.slots[index] = nil
	r.live--
	r.mu.Unlock()

	r.metrics.HandleRetired()
	if err := h.stmt.Close(); err != nil {
		level.Warn(r.logger).Log("msg", "closing prepared statement", "index", index, "name", h.name, "err", err)
	}
	return nil
}

// Execute binds params positionally from 1 and starts the statement. cb
// receives the outcome exactly once. Errors returned here are local: the
// driver has not been contacted and cb will not be called.
func (r *Registry) Execute(ctx context.Context, index int, cb query.Callback, params ...Value) (*query.PendingQuery, error) {
	r.mu.Lock()
	h, err := r.lookup(index)
	if err != nil {
		r.mu.Unlock()
		return nil, r.reject(ComponentExecute, err)
	}

	h.stmt.ClearParameters()
	for i, p := range params {
		if err := p.bind(h.stmt, i+1); err != nil {
			h.stmt.ClearParameters()
			r.mu.Unlock()
			return nil, r.reject(ComponentExecute, err)
		}
	}
	op := h.stmt.Bound()
	sql := h.sql
	r.mu.Unlock()

	return r.dispatcher.Dispatch(ctx, ComponentExecute, sql, op, cb), nil
}

// SQL returns the statement text held at index.
func (r *Registry) SQL(index int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, err := r.lookup(index)
	if err != nil {
		return "", false
	}
	return h.sql, true
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Close closes every live statement. Later calls fail with ErrClosed or
// ErrInvalidIndex.
func (r *Registry) Close() error {
	r.mu.Lock()
	slots := r.slots
	r.slots = make([]*handle, len(slots))
	r.live = 0
	r.closed = true
	r.mu.Unlock()

	var first error
	for _, h := range slots {
		if h == nil {
			continue
		}
		r.metrics.HandleRetired()
		if err := h.stmt.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "closing prepared statement %d", h.index)
		}
	}
	return first
}

// lookup must be called with r.mu held.
func (r *Registry) lookup(index int) (*handle, error) {
	if index < FirstIndex || index >= len(r.slots) {
		return nil, errors.Wrapf(ErrInvalidIndex, "index %d out of range", index)
	}
	h := r.slots[index]
	if h == nil {
		return nil, errors.Wrapf(ErrInvalidIndex, "index %d is not allocated", index)
	}
	return h, nil
}

// reject records a local error and returns it.
func (r *Registry) reject(component string, err error) error {
	r.sink.Record(component, err.Error())
	r.metrics.Rejected(component)
	return err
}

type nopRecorder struct{}

func (nopRecorder) Record(string, string) {}
