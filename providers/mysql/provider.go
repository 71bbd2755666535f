package mysql

import (
	"context"
	"database/sql"
	"net"
	"strconv"

	"github.com/Konsultn-Engineering/gsql/connector"
	"github.com/Konsultn-Engineering/gsql/dialect"
	"github.com/go-sql-driver/mysql"
)

const driverName = "mysql"

type Provider struct{}

func init() {
	connector.Register(driverName, &Provider{})
}

// DriverConfig translates cfg into the driver's configuration.
func (p *Provider) DriverConfig(cfg connector.Config) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}
	if len(cfg.Params) > 0 {
		mc.Params = make(map[string]string, len(cfg.Params))
		for k, v := range cfg.Params {
			mc.Params[k] = v
		}
	}
	return mc
}

func (p *Provider) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	conn, err := mysql.NewConnector(p.DriverConfig(cfg))
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(conn)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return connector.NewSQLConnection(db, driverName, p.Dialect(), cfg.Pool), nil
}

func (p *Provider) Dialect() dialect.Dialect {
	return dialect.NewMySQLDialect()
}

func (p *Provider) HealthCheck(ctx context.Context, conn connector.Connection) error {
	return conn.Health(ctx)
}
