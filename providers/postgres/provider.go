package postgres

import (
	"context"
	"database/sql"

	"github.com/Konsultn-Engineering/gsql/connector"
	"github.com/Konsultn-Engineering/gsql/dialect"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const driverName = "postgres"

type Provider struct{}

func init() {
	connector.Register(driverName, &Provider{})
}

var defaultParams = map[string]string{
	"sslmode":         "prefer",
	"connect_timeout": "10",
}

func (p *Provider) buildDSN(cfg connector.Config) string {
	return connector.URLDSN("postgres", cfg, defaultParams)
}

// PoolConfig translates cfg into a pgxpool configuration.
func (p *Provider) PoolConfig(cfg connector.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(p.buildDSN(cfg))
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = int32(cfg.Pool.MaxOpen)
	poolCfg.MinConns = int32(cfg.Pool.MaxIdle)
	poolCfg.MaxConnLifetime = cfg.Pool.MaxLifetime
	poolCfg.MaxConnIdleTime = cfg.Pool.MaxIdleTime
	if cfg.Pool.HealthCheckFreq > 0 {
		poolCfg.HealthCheckPeriod = cfg.Pool.HealthCheckFreq
	}
	return poolCfg, nil
}

func (p *Provider) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	poolCfg, err := p.PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &connection{
		pool:    pool,
		db:      stdlib.OpenDBFromPool(pool),
		dialect: p.Dialect(),
	}, nil
}

func (p *Provider) Dialect() dialect.Dialect {
	return dialect.NewPostgresDialect()
}

func (p *Provider) HealthCheck(ctx context.Context, conn connector.Connection) error {
	return conn.Health(ctx)
}

type connection struct {
	pool    *pgxpool.Pool
	db      *sql.DB
	dialect dialect.Dialect
}

func (c *connection) DB() *sql.DB {
	return c.db
}

// DriverName is the name sqlx uses to pick $n bind variables.
func (c *connection) DriverName() string {
	return "pgx"
}

func (c *connection) Dialect() dialect.Dialect {
	return c.dialect
}

func (c *connection) Health(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *connection) Stats() connector.ConnectionStats {
	s := c.pool.Stat()
	return connector.ConnectionStats{
		OpenConnections: int(s.TotalConns()),
		InUse:           int(s.AcquiredConns()),
		Idle:            int(s.IdleConns()),
	}
}

func (c *connection) Close() error {
	err := c.db.Close()
	c.pool.Close()
	return err
}
