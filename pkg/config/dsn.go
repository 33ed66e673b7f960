package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig points at the Postgres database holding the trust-anchor
// table. Only the resolver behind trust_store=postgres and the anchors CLI
// connect to it.
type DatabaseConfig struct {
	// URL is a postgres:// connection URL and wins over the discrete fields
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`

	// Reported to Postgres so anchor lookups can be told apart in pg_stat_activity
	ApplicationName string `mapstructure:"application_name"`
	// Bounds dialing, which happens once at startup
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// Bounds every statement; a key lookup sits on the signature check path
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// sessionParams are the lib/pq parameters added to either DSN form. Unknown
// keys such as statement_timeout reach the server as run-time parameters.
func (c *DatabaseConfig) sessionParams() map[string]string {
	params := map[string]string{}
	if c.ApplicationName != "" {
		params["application_name"] = c.ApplicationName
	}
	if c.ConnectTimeout > 0 {
		params["connect_timeout"] = strconv.Itoa(int(c.ConnectTimeout.Seconds()))
	}
	if c.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10)
	}
	return params
}

// DSN returns the lib/pq connection string. A URL is passed through with the
// session parameters it does not set itself; otherwise a key/value DSN is
// built from the discrete fields.
func (c *DatabaseConfig) DSN() string {
	params := c.sessionParams()

	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return c.URL
		}
		q := u.Query()
		for k, v := range params {
			if !q.Has(k) {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	pairs := []string{
		"host=" + quoteDSN(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"user=" + quoteDSN(c.User),
		"password=" + quoteDSN(c.Password),
		"dbname=" + quoteDSN(c.Database),
		"sslmode=" + quoteDSN(c.SSLMode),
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, k+"="+quoteDSN(params[k]))
	}

	return strings.Join(pairs, " ")
}

// quoteDSN quotes a key/value DSN value when libpq would otherwise split it
func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Validate checks the URL form and, in production or staging, that a real
// database was configured.
func (c *DatabaseConfig) Validate(environment string) error {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("invalid database URL: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("invalid database URL scheme: %s (expected postgres or postgresql)", u.Scheme)
		}
	}

	if environment == EnvProduction || environment == EnvStaging {
		if c.URL == "" && c.Host == "" {
			return errors.New("TDDPROOF_DATABASE_URL or TDDPROOF_DATABASE_HOST required in " + environment)
		}
		if c.URL == "" && c.Host == "localhost" {
			return errors.New("localhost database not allowed in " + environment + " - set TDDPROOF_DATABASE_URL or TDDPROOF_DATABASE_HOST")
		}
	}
	return nil
}
