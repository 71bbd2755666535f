package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Konsultn-Engineering/gsql/connector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	p := &Provider{}
	assert.Equal(t, "app.db", p.DSN(connector.Config{Database: "app.db"}))
	assert.Equal(t, "app.db?_busy_timeout=5000&_foreign_keys=on", p.DSN(connector.Config{
		Database: "app.db",
		Params:   map[string]string{"_foreign_keys": "on", "_busy_timeout": "5000"},
	}))
}

func TestConnect(t *testing.T) {
	c, err := connector.New("sqlite3", connector.Config{Database: filepath.Join(t.TempDir(), "gsql.db")})
	require.NoError(t, err)

	conn, err := c.Connect(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "sqlite3", conn.DriverName())
	assert.Equal(t, "sqlite3", conn.Dialect().Name())
	assert.NoError(t, conn.Health(context.Background()))

	var one int
	require.NoError(t, conn.DB().QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
	assert.Equal(t, 1, conn.DB().Stats().MaxOpenConnections)
}
