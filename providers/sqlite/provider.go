package sqlite

import (
	"context"
	"database/sql"
	"net/url"
	"sort"
	"strings"

	"github.com/Konsultn-Engineering/gsql/connector"
	"github.com/Konsultn-Engineering/gsql/dialect"
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

type Provider struct{}

func init() {
	connector.Register(driverName, &Provider{})
}

// DSN returns the go-sqlite3 data source for cfg. Database holds the file
// path (or ":memory:"), Params become query parameters such as
// _busy_timeout or _foreign_keys.
func (p *Provider) DSN(cfg connector.Config) string {
	if len(cfg.Params) == 0 {
		return cfg.Database
	}

	keys := make([]string, 0, len(cfg.Params))
	for k := range cfg.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(cfg.Database)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(cfg.Params[k]))
	}
	return b.String()
}

func (p *Provider) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	db, err := sql.Open(driverName, p.DSN(cfg))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// SQLite allows a single writer, and every ":memory:" connection is a
	// separate database.
	pool := cfg.Pool
	pool.MaxOpen = 1
	pool.MaxIdle = 1
	pool.MaxLifetime = 0
	pool.MaxIdleTime = 0

	return connector.NewSQLConnection(db, driverName, p.Dialect(), pool), nil
}

func (p *Provider) Dialect() dialect.Dialect {
	return dialect.NewSQLiteDialect()
}

func (p *Provider) HealthCheck(ctx context.Context, conn connector.Connection) error {
	return conn.Health(ctx)
}
