package connector

import (
	"context"
	"database/sql"

	"github.com/Konsultn-Engineering/gsql/dialect"
)

// Connection is one open database handle.
type Connection interface {
	DB() *sql.DB
	DriverName() string
	Dialect() dialect.Dialect
	Health(ctx context.Context) error
	Stats() ConnectionStats
	Close() error
}

type Connector interface {
	Connect(ctx context.Context) (Connection, error)
	ConnectWithRetry(ctx context.Context, opts RetryConfig) (Connection, error)
	Close() error
}
