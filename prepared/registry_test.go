package prepared

import (
	"context"
	"sync"
	"testing"

	"github.com/Konsultn-Engineering/gsql/database"
	"github.com/Konsultn-Engineering/gsql/metrics"
	"github.com/Konsultn-Engineering/gsql/query"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bindCall struct {
	method string
	pos    int
	value  any
}

type fakeStmt struct {
	mu      sync.Mutex
	sql     string
	calls   []bindCall
	args    map[int]any
	started int
	closed  bool
	result  *database.Result
	err     error
}

func (s *fakeStmt) record(method string, pos int, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, bindCall{method, pos, v})
	s.args[pos] = v
}

func (s *fakeStmt) SetNumber(pos int, v float64) { s.record("SetNumber", pos, v) }
func (s *fakeStmt) SetString(pos int, v string)  { s.record("SetString", pos, v) }
func (s *fakeStmt) SetBool(pos int, v bool)      { s.record("SetBool", pos, v) }
func (s *fakeStmt) SetNull(pos int)              { s.record("SetNull", pos, nil) }

func (s *fakeStmt) ClearParameters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.args = map[int]any{}
	s.calls = nil
}

func (s *fakeStmt) Bound() database.Operation {
	s.mu.Lock()
	args := make(map[int]any, len(s.args))
	for k, v := range s.args {
		args[k] = v
	}
	s.mu.Unlock()

	return func(context.Context) (*database.Result, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.started++
		if s.err != nil {
			return nil, s.err
		}
		return &database.Result{Rows: []database.Row{{"args": args}}, RowsAffected: 1}, nil
	}
}

func (s *fakeStmt) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStmt) bindCalls() []bindCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bindCall(nil), s.calls...)
}

func (s *fakeStmt) startedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

type fakeDB struct {
	mu         sync.Mutex
	stmts      []*fakeStmt
	prepareErr error
}

func (d *fakeDB) Run(context.Context, string, ...any) (*database.Result, error) {
	return &database.Result{}, nil
}

func (d *fakeDB) Prepare(_ context.Context, sql string) (database.Stmt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.prepareErr != nil {
		return nil, d.prepareErr
	}
	s := &fakeStmt{sql: sql, args: map[int]any{}}
	d.stmts = append(d.stmts, s)
	return s, nil
}

func (d *fakeDB) PingContext(context.Context) error { return nil }
func (d *fakeDB) Close() error                      { return nil }

func (d *fakeDB) prepared() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.stmts)
}

type fakeSink struct {
	mu      sync.Mutex
	records []string
}

func (f *fakeSink) Record(component, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, component+": "+message)
}

func (f *fakeSink) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func newRegistry(t *testing.T) (*Registry, *fakeDB, *fakeSink) {
	t.Helper()
	db := &fakeDB{}
	sink := &fakeSink{}
	d := query.NewDispatcher(context.Background(), query.DispatcherConfig{Sink: sink})
	return NewRegistry(db, d, Config{Sink: sink}), db, sink
}

func TestAllocate(t *testing.T) {
	r, db, _ := newRegistry(t)

	first, err := r.Allocate(context.Background(), "SELECT ?")
	require.NoError(t, err)
	second, err := r.Allocate(context.Background(), "SELECT ?, ?")
	require.NoError(t, err)

	assert.Equal(t, FirstIndex, first)
	assert.Equal(t, FirstIndex+1, second)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, db.prepared())

	sql, ok := r.SQL(second)
	assert.True(t, ok)
	assert.Equal(t, "SELECT ?, ?", sql)
}

func TestAllocateInvalid(t *testing.T) {
	r, db, sink := newRegistry(t)

	_, err := r.Allocate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidStatement)
	_, err = r.Allocate(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidStatement)

	assert.Zero(t, db.prepared())
	assert.Equal(t, 2, sink.len())
}

func TestAllocatePrepareFailureConsumesNoIndex(t *testing.T) {
	r, db, sink := newRegistry(t)
	db.prepareErr = errors.New("syntax error")

	_, err := r.Allocate(context.Background(), "SELEC ?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
	assert.Equal(t, 1, sink.len())

	db.prepareErr = nil
	idx, err := r.Allocate(context.Background(), "SELECT ?")
	require.NoError(t, err)
	assert.Equal(t, FirstIndex, idx)
}

func TestIndicesAreNeverReused(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	a, _ := r.Allocate(ctx, "SELECT 1")
	b, _ := r.Allocate(ctx, "SELECT 2")
	require.NoError(t, r.Retire(a))
	require.NoError(t, r.Retire(b))

	c, err := r.Allocate(ctx, "SELECT 3")
	require.NoError(t, err)
	assert.Greater(t, c, b)
	assert.Equal(t, 1, r.Len())
}

func TestRetire(t *testing.T) {
	r, db, sink := newRegistry(t)
	ctx := context.Background()

	a, _ := r.Allocate(ctx, "SELECT 1")
	b, _ := r.Allocate(ctx, "SELECT 2")

	require.NoError(t, r.Retire(a))
	assert.True(t, db.stmts[0].closed)
	assert.False(t, db.stmts[1].closed)

	err := r.Retire(a)
	assert.ErrorIs(t, err, ErrInvalidIndex)

	for _, idx := range []int{0, -1, 99} {
		assert.ErrorIs(t, r.Retire(idx), ErrInvalidIndex)
	}
	assert.Equal(t, 4, sink.len())

	_, ok := r.SQL(b)
	assert.True(t, ok, "other slots stay untouched")
}

func TestExecuteBindsPositionally(t *testing.T) {
	r, db, _ := newRegistry(t)
	idx, err := r.Allocate(context.Background(), "INSERT INTO t VALUES (?, ?, ?, ?)")
	require.NoError(t, err)

	p, err := r.Execute(context.Background(), idx, nil, Number(42), Text("abc"), Bool(true), Null())
	require.NoError(t, err)
	out := p.Wait()

	assert.Equal(t, []bindCall{
		{"SetNumber", 1, float64(42)},
		{"SetString", 2, "abc"},
		{"SetBool", 3, true},
		{"SetNull", 4, nil},
	}, db.stmts[0].bindCalls())
	assert.True(t, out.OK())
	assert.Equal(t, "execute", p.Component)
}

func TestExecuteClearsPreviousBindings(t *testing.T) {
	r, _, _ := newRegistry(t)
	idx, _ := r.Allocate(context.Background(), "SELECT ?, ?")

	p, err := r.Execute(context.Background(), idx, nil, Number(1), Number(2))
	require.NoError(t, err)
	first := p.Wait()

	p, err = r.Execute(context.Background(), idx, nil, Text("only"))
	require.NoError(t, err)
	second := p.Wait()

	assert.Equal(t, map[int]any{1: float64(1), 2: float64(2)}, first.Result.Rows[0]["args"])
	assert.Equal(t, map[int]any{1: "only"}, second.Result.Rows[0]["args"])
}

func TestExecuteUnsupportedParameter(t *testing.T) {
	r, db, sink := newRegistry(t)
	idx, _ := r.Allocate(context.Background(), "SELECT ?, ?")

	called := false
	_, err := r.Execute(context.Background(), idx, func(bool, query.Reason, *database.Result) {
		called = true
	}, Number(1), Value{})

	assert.ErrorIs(t, err, ErrUnsupportedParameter)
	assert.False(t, called)
	assert.Zero(t, db.stmts[0].startedCount())
	assert.Equal(t, 1, sink.len())
}

func TestExecuteInvalidIndex(t *testing.T) {
	r, db, sink := newRegistry(t)

	_, err := r.Execute(context.Background(), 0, nil)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	_, err = r.Execute(context.Background(), 5, nil, Number(1))
	assert.ErrorIs(t, err, ErrInvalidIndex)

	assert.Zero(t, db.prepared())
	assert.Equal(t, 2, sink.len())
}

func TestExecuteDriverError(t *testing.T) {
	r, db, sink := newRegistry(t)
	idx, _ := r.Allocate(context.Background(), "SELECT ?")
	db.stmts[0].err = errors.New("deadlock found")

	var got []query.Reason
	p, err := r.Execute(context.Background(), idx, func(ok bool, reason query.Reason, res *database.Result) {
		assert.False(t, ok)
		assert.Nil(t, res)
		got = append(got, reason)
	}, Number(1))
	require.NoError(t, err)
	p.Wait()

	assert.Equal(t, []query.Reason{query.ReasonError}, got)
	assert.Equal(t, []string{"execute: deadlock found"}, sink.records)
}

func TestExecuteDoesNotRetire(t *testing.T) {
	r, _, _ := newRegistry(t)
	idx, _ := r.Allocate(context.Background(), "SELECT ?")

	for i := 0; i < 3; i++ {
		p, err := r.Execute(context.Background(), idx, nil, Number(float64(i)))
		require.NoError(t, err)
		assert.True(t, p.Wait().OK())
	}
	assert.Equal(t, 1, r.Len())
}

func TestLifecycle(t *testing.T) {
	r, db, _ := newRegistry(t)
	ctx := context.Background()

	idx, err := r.Allocate(ctx, "SELECT ? AS v")
	require.NoError(t, err)

	p, err := r.Execute(ctx, idx, nil, Text("x"))
	require.NoError(t, err)
	require.True(t, p.Wait().OK())

	require.NoError(t, r.Retire(idx))
	_, err = r.Execute(ctx, idx, nil, Text("x"))
	assert.ErrorIs(t, err, ErrInvalidIndex)
	assert.Equal(t, 1, db.stmts[0].startedCount())
}

func TestClose(t *testing.T) {
	r, db, _ := newRegistry(t)
	ctx := context.Background()
	_, _ = r.Allocate(ctx, "SELECT 1")
	b, _ := r.Allocate(ctx, "SELECT 2")
	require.NoError(t, r.Retire(b))

	require.NoError(t, r.Close())
	assert.True(t, db.stmts[0].closed)
	assert.Zero(t, r.Len())

	_, err := r.Allocate(ctx, "SELECT 3")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRegistryMetrics(t *testing.T) {
	db := &fakeDB{}
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	d := query.NewDispatcher(context.Background(), query.DispatcherConfig{Metrics: m})
	r := NewRegistry(db, d, Config{Metrics: m})

	idx, _ := r.Allocate(context.Background(), "SELECT 1")
	_, _ = r.Allocate(context.Background(), "SELECT 2")
	require.NoError(t, r.Retire(idx))
	assert.ErrorIs(t, r.Retire(idx), ErrInvalidIndex)

	assert.Equal(t, 1.0, gathered(t, reg, "gsql_prepared_handles"))
	assert.Equal(t, 1.0, gathered(t, reg, "gsql_local_errors_total"))
}

// gathered sums every sample of the named family.
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetGauge().GetValue() + m.GetCounter().GetValue()
		}
	}
	return sum
}
