package client

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DataSourceName(t *testing.T) {
	t.Run("tcp", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Password = "secret"
		cfg.Database = "app"

		mc, err := mysql.ParseDSN(cfg.DataSourceName())
		require.NoError(t, err)
		assert.Equal(t, "root", mc.User)
		assert.Equal(t, "secret", mc.Passwd)
		assert.Equal(t, "tcp", mc.Net)
		assert.Equal(t, "127.0.0.1:3306", mc.Addr)
		assert.Equal(t, "app", mc.DBName)
		assert.True(t, mc.ParseTime)
		assert.Equal(t, "utf8mb4", mc.Params["charset"])
	})

	t.Run("unix socket", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Host = "/var/run/mysqld/mysqld.sock"

		mc, err := mysql.ParseDSN(cfg.DataSourceName())
		require.NoError(t, err)
		assert.Equal(t, "unix", mc.Net)
		assert.Equal(t, "/var/run/mysqld/mysqld.sock", mc.Addr)
	})

	t.Run("explicit dsn wins", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DSN = "u:p@tcp(db:3307)/x"
		assert.Equal(t, "u:p@tcp(db:3307)/x", cfg.DataSourceName())
	})

	t.Run("sqlite uses database", func(t *testing.T) {
		cfg := Config{Driver: DriverSQLite, Database: ":memory:"}
		assert.Equal(t, "sqlite3", cfg.DriverName())
		assert.Equal(t, ":memory:", cfg.DataSourceName())
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "missing host", mutate: func(c *Config) { c.Host = "" }, wantErr: "host is required"},
		{name: "dsn without host", mutate: func(c *Config) { c.Host = ""; c.DSN = "root@/db" }},
		{name: "bad port", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "invalid port"},
		{name: "sqlite without database", mutate: func(c *Config) { c.Driver = DriverSQLite }, wantErr: "database is required"},
		{name: "unknown driver", mutate: func(c *Config) { c.Driver = "postgres" }, wantErr: "unsupported driver"},
		{name: "negative pool", mutate: func(c *Config) { c.MaxIdleConns = -1 }, wantErr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
