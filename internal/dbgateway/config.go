package dbgateway

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the SQL-connection descriptor's source material: host,
// port, user, password, server name, and database name, built into a
// PostgreSQL/pgx connection string rather than an ODBC driver template.
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	User         string        `yaml:"username"`
	Password     string        `yaml:"password"`
	ServerName   string        `yaml:"servername"`
	DatabaseName string        `yaml:"databasename"`
	SSLMode      string        `yaml:"ssl_mode"`
	MaxConns     int32         `yaml:"max_conns"`
	MinConns     int32         `yaml:"min_conns"`
	ConnTimeout  time.Duration `yaml:"connect_timeout"`
}

// DSN builds the connection descriptor. It is opaque to the rest of
// the system: callers pass it to Connect and never parse it back
// apart. ServerName carries through as the libpq application_name
// parameter, so every one of the six credential fields lands
// somewhere in the descriptor instead of being collected and ignored.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&application_name=%s",
		c.User, c.Password, c.Host, c.Port, c.DatabaseName, sslMode, url.QueryEscape(c.ServerName),
	)
}

func (c Config) withDefaults() Config {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 1
	}
	if c.ConnTimeout == 0 {
		c.ConnTimeout = 5 * time.Second
	}
	return c
}
