package connector

import (
	"context"
	"database/sql"

	"github.com/Konsultn-Engineering/gsql/dialect"
)

// SQLConnection is a Connection backed by a plain *sql.DB.
type SQLConnection struct {
	db         *sql.DB
	driverName string
	dialect    dialect.Dialect
}

// NewSQLConnection wraps db, applying the pool limits in pool.
func NewSQLConnection(db *sql.DB, driverName string, d dialect.Dialect, pool PoolConfig) *SQLConnection {
	ConfigurePool(db, pool)
	return &SQLConnection{db: db, driverName: driverName, dialect: d}
}

// ConfigurePool applies pool limits to db.
func ConfigurePool(db *sql.DB, pool PoolConfig) {
	if pool.MaxOpen > 0 {
		db.SetMaxOpenConns(pool.MaxOpen)
	}
	if pool.MaxIdle > 0 {
		db.SetMaxIdleConns(pool.MaxIdle)
	}
	if pool.MaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.MaxLifetime)
	}
	if pool.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.MaxIdleTime)
	}
}

func (c *SQLConnection) DB() *sql.DB              { return c.db }
func (c *SQLConnection) DriverName() string       { return c.driverName }
func (c *SQLConnection) Dialect() dialect.Dialect { return c.dialect }

// Health checks the connection health.
func (c *SQLConnection) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Stats returns connection pool statistics.
func (c *SQLConnection) Stats() ConnectionStats {
	s := c.db.Stats()
	return ConnectionStats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
	}
}

// Close closes the connection pool.
func (c *SQLConnection) Close() error {
	return c.db.Close()
}

var _ Connection = (*SQLConnection)(nil)
