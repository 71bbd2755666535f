// Package gsql runs SQL templates and prepared statements asynchronously,
// reporting each outcome to a callback exactly once.
package gsql

import (
	"context"
	"os"
	"sync"

	"github.com/Konsultn-Engineering/gsql/connector"
	"github.com/Konsultn-Engineering/gsql/database"
	"github.com/Konsultn-Engineering/gsql/diag"
	"github.com/Konsultn-Engineering/gsql/dialect"
	"github.com/Konsultn-Engineering/gsql/logging"
	"github.com/Konsultn-Engineering/gsql/metrics"
	"github.com/Konsultn-Engineering/gsql/prepared"
	"github.com/Konsultn-Engineering/gsql/query"
	"github.com/Konsultn-Engineering/gsql/utils"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	_ "github.com/Konsultn-Engineering/gsql/providers/mysql"
	_ "github.com/Konsultn-Engineering/gsql/providers/postgres"
	_ "github.com/Konsultn-Engineering/gsql/providers/sqlite"
)

type (
	Params   = query.Params
	Callback = query.Callback
	Reason   = query.Reason
	Result   = database.Result
	Row      = database.Row
	Value    = prepared.Value
	Pending  = query.PendingQuery
	Outcome  = query.Outcome
)

const (
	Success = query.ReasonSuccess
	Aborted = query.ReasonAborted
	Error   = query.ReasonError

	FirstIndex = prepared.FirstIndex
)

const (
	componentQuery      = "query"
	componentConnection = "connection"
)

var (
	ErrEmptyTemplate        = query.ErrEmptyTemplate
	ErrInvalidStatement     = prepared.ErrInvalidStatement
	ErrInvalidIndex         = prepared.ErrInvalidIndex
	ErrUnsupportedParameter = prepared.ErrUnsupportedParameter
	ErrClientClosed         = errors.New("client is closed")
)

func Number(v float64) Value { return prepared.Number(v) }
func Text(v string) Value    { return prepared.Text(v) }
func Bool(v bool) Value      { return prepared.Bool(v) }
func Null() Value            { return prepared.Null() }

// Values converts dynamically typed arguments for Execute.
func Values(args ...any) ([]Value, error) { return prepared.Values(args...) }

// Client is a connection wrapped with the template engine, the dispatcher
// and the prepared statement table.
type Client struct {
	id      string
	db      database.Database
	dialect dialect.Dialect
	conn    connector.Connection
	closer  func() error

	engine     *query.Engine
	dispatcher *query.Dispatcher
	registry   *prepared.Registry
	sink       query.Recorder
	logger     log.Logger
	metrics    *metrics.Metrics

	cancel    context.CancelFunc
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Initialize connects with cfg and returns a ready client. Diagnostics go
// to cfg.LogPath, which is created if missing. A connection failure is
// recorded there and returned.
func Initialize(ctx context.Context, cfg connector.Config, opts ...Option) (*Client, error) {
	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}

	o := defaultOptions()
	o.logger = logger
	o.queryTimeout = cfg.QueryTimeout
	for _, opt := range opts {
		opt(&o)
	}

	sink := diag.NewSink(cfg.LogPath, o.logger)
	if err := sink.Touch(); err != nil {
		level.Warn(o.logger).Log("msg", "cannot create diagnostics file", "path", sink.Path(), "err", err)
	}
	if o.sink == nil {
		o.sink = sink
	}

	cfg.ApplyDefaults()
	conn, err := connect(ctx, cfg)
	if err != nil {
		o.sink.Record(componentConnection, err.Error())
		sink.Close()
		return nil, errors.Wrapf(err, "connecting to %s", cfg.Driver)
	}

	level.Info(o.logger).Log("msg", "connected", "driver", conn.DriverName(), "host", cfg.Host, "database", cfg.Database)

	c := newClient(database.NewSqlDatabase(conn.DB(), conn.DriverName()), conn.Dialect(), o)
	c.conn = conn
	c.closer = func() error {
		err := conn.Close()
		sink.Close()
		return err
	}
	return c, nil
}

func connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	c, err := connector.New(cfg.Driver, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Retry != nil {
		return c.ConnectWithRetry(ctx, *cfg.Retry)
	}
	return c.Connect(ctx)
}

// New wraps an open database. Close closes db and, unless WithSink was
// given, the default diagnostics file.
func New(db database.Database, d dialect.Dialect, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	var sink *diag.Sink
	if o.sink == nil {
		sink = diag.NewSink(diag.DefaultPath, o.logger)
		o.sink = sink
	}

	c := newClient(db, d, o)
	c.closer = func() error {
		err := db.Close()
		if sink != nil {
			sink.Close()
		}
		return err
	}
	return c
}

func newClient(db database.Database, d dialect.Dialect, o options) *Client {
	root, cancel := context.WithCancel(context.Background())

	var m *metrics.Metrics
	if o.registerer != nil {
		m = metrics.NewMetrics(o.registerer)
	}

	id := utils.NewName()
	logger := log.With(o.logger, "client", id)

	dispatcher := query.NewDispatcher(root, query.DispatcherConfig{
		Timeout: o.queryTimeout,
		Sink:    o.sink,
		Logger:  logger,
		Metrics: m,
	})

	return &Client{
		id:         id,
		db:         db,
		dialect:    d,
		engine:     query.NewEngine(o.cacheSize),
		dispatcher: dispatcher,
		registry: prepared.NewRegistry(db, dispatcher, prepared.Config{
			Sink:    o.sink,
			Logger:  logger,
			Metrics: m,
		}),
		sink:    o.sink,
		logger:  logger,
		metrics: m,
		cancel:  cancel,
	}
}

// ID identifies the client in logs.
func (c *Client) ID() string { return c.id }

// Dialect returns the escaping rules used for templates.
func (c *Client) Dialect() dialect.Dialect { return c.dialect }

// Query substitutes params into template and runs it. See QueryContext.
func (c *Client) Query(template string, cb Callback, params Params) (*Pending, error) {
	return c.QueryContext(context.Background(), template, cb, params)
}

// QueryContext substitutes params into template with the dialect's escaping
// and starts the query. It returns once the query is dispatched; cb then
// receives the outcome exactly once. A returned error means nothing was
// dispatched and cb will not be called.
//
// Placeholders without a parameter are sent as they are. Substitution is
// textual; use Prepare and Execute for untrusted input.
func (c *Client) QueryContext(ctx context.Context, template string, cb Callback, params Params) (*Pending, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, c.reject(componentQuery, ErrClientClosed)
	}

	sql, err := c.engine.Substitute(template, params, c.dialect.Escape)
	if err != nil {
		return nil, c.reject(componentQuery, err)
	}

	op := func(ctx context.Context) (*database.Result, error) {
		return c.db.Run(ctx, sql)
	}
	return c.dispatcher.Dispatch(ctx, componentQuery, sql, op, cb), nil
}

// Prepare prepares sql and returns its handle index.
func (c *Client) Prepare(sql string) (int, error) {
	return c.PrepareContext(context.Background(), sql)
}

func (c *Client) PrepareContext(ctx context.Context, sql string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, c.reject(prepared.ComponentPrepare, ErrClientClosed)
	}
	return c.registry.Allocate(ctx, sql)
}

// MustPrepare is like Prepare but panics on error.
func (c *Client) MustPrepare(sql string) int {
	index, err := c.Prepare(sql)
	if err != nil {
		panic(err)
	}
	return index
}

// Delete retires the prepared statement at index. The index is never
// handed out again.
func (c *Client) Delete(index int) error {
	return c.registry.Retire(index)
}

// Execute binds params to the prepared statement at index and runs it.
func (c *Client) Execute(index int, cb Callback, params ...Value) (*Pending, error) {
	return c.ExecuteContext(context.Background(), index, cb, params...)
}

func (c *Client) ExecuteContext(ctx context.Context, index int, cb Callback, params ...Value) (*Pending, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, c.reject(prepared.ComponentExecute, ErrClientClosed)
	}
	return c.registry.Execute(ctx, index, cb, params...)
}

// Prepared returns the number of live prepared statements.
func (c *Client) Prepared() int { return c.registry.Len() }

// InFlight returns the number of operations whose callback has not
// returned yet.
func (c *Client) InFlight() int { return c.dispatcher.InFlight() }

// Wait blocks until every dispatched operation has completed. It must not
// be called from a callback.
func (c *Client) Wait() { c.dispatcher.Wait() }

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.conn != nil {
		return c.conn.Health(ctx)
	}
	return c.db.PingContext(ctx)
}

// Stats reports the connection pool. It is only available for clients
// created by Initialize.
func (c *Client) Stats() (connector.ConnectionStats, bool) {
	if c.conn == nil {
		return connector.ConnectionStats{}, false
	}
	return c.conn.Stats(), true
}

// Close aborts in-flight operations, waits for their callbacks, then
// releases prepared statements and the connection. It must not be called
// from a callback.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.cancel()
		c.dispatcher.Wait()

		c.closeErr = c.registry.Close()
		if c.closer != nil {
			if err := c.closer(); err != nil && c.closeErr == nil {
				c.closeErr = err
			}
		}
		if c.closeErr != nil {
			level.Warn(c.logger).Log("msg", "closing client", "err", c.closeErr)
		}
		level.Debug(c.logger).Log("msg", "client closed")
	})
	return c.closeErr
}

func (c *Client) reject(component string, err error) error {
	c.sink.Record(component, err.Error())
	c.metrics.Rejected(component)
	return err
}
