package gsql

import (
	"time"

	"github.com/Konsultn-Engineering/gsql/cache"
	"github.com/Konsultn-Engineering/gsql/query"
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	logger       log.Logger
	sink         query.Recorder
	registerer   prometheus.Registerer
	queryTimeout time.Duration
	cacheSize    int
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the ambient logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSink replaces the diagnostics file with any recorder.
func WithSink(sink query.Recorder) Option {
	return func(o *options) { o.sink = sink }
}

// WithRegisterer registers the client metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithQueryTimeout aborts operations still running after d.
func WithQueryTimeout(d time.Duration) Option {
	return func(o *options) { o.queryTimeout = d }
}

// WithTemplateCacheSize bounds the number of compiled query templates kept.
func WithTemplateCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

func defaultOptions() options {
	return options{
		logger:    log.NewNopLogger(),
		cacheSize: cache.DefaultTemplateCacheSize,
	}
}
