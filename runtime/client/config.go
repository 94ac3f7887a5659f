package client

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	// DriverMySQL is the default driver
	DriverMySQL = "mysql"
	// DriverSQLite runs the same statements against an embedded database,
	// mainly for tests
	DriverSQLite = "sqlite3"
)

// Config holds connection settings
type Config struct {
	Driver   string `mapstructure:"driver" yaml:"driver"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
	// Params are extra DSN attributes such as charset or time_zone
	Params map[string]string `mapstructure:"params" yaml:"params"`
	// DSN overrides every connection field above when set
	DSN string `mapstructure:"dsn" yaml:"dsn"`

	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	// StmtCacheSize bounds the prepared statement cache. Zero uses the
	// executor default and a negative size disables caching.
	StmtCacheSize int `mapstructure:"stmt_cache_size" yaml:"stmt_cache_size"`

	// Strict rejects UPDATE and DELETE without WHERE
	Strict bool      `mapstructure:"strict" yaml:"strict"`
	Log    LogConfig `mapstructure:"log" yaml:"log"`
}

// LogConfig controls statement logging
type LogConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Level   string `mapstructure:"level" yaml:"level"`
	Format  string `mapstructure:"format" yaml:"format"`
	// Args includes bound parameters in log records
	Args bool `mapstructure:"args" yaml:"args"`
}

// DefaultConfig returns the settings used for unset fields
func DefaultConfig() Config {
	return Config{
		Driver:   DriverMySQL,
		Host:     "127.0.0.1",
		Port:     3306,
		Username: "root",
		Params:   map[string]string{"charset": "utf8mb4"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	switch c.Driver {
	case "", DriverMySQL:
		if c.DSN == "" && c.Host == "" {
			return fmt.Errorf("host is required")
		}
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("invalid port %d", c.Port)
		}
	case DriverSQLite:
		if c.DSN == "" && c.Database == "" {
			return fmt.Errorf("database is required for %s", DriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return fmt.Errorf("connection pool sizes must not be negative")
	}
	return nil
}

// DriverName returns the database/sql driver name
func (c Config) DriverName() string {
	if c.Driver == "" {
		return DriverMySQL
	}
	return c.Driver
}

// DataSourceName builds the DSN passed to the driver
func (c Config) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.DriverName() == DriverSQLite {
		return c.Database
	}

	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	if strings.HasPrefix(c.Host, "/") {
		mc.Net = "unix"
		mc.Addr = c.Host
	}
	mc.DBName = c.Database
	mc.ParseTime = true
	if len(c.Params) > 0 {
		mc.Params = make(map[string]string, len(c.Params))
		for k, v := range c.Params {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN()
}
