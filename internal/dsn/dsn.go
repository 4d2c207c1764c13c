package dsn

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/desertthunder/alchemy/internal/shared"
	"github.com/go-sql-driver/mysql"
)

const memoryPath = ":memory:"

// DSN is a parsed engine URL.
type DSN struct {
	Raw        string // URL as configured
	Dialect    string // SQLAlchemy dialect, e.g. "postgresql"
	Driver     string // database/sql driver name
	DataSource string // driver-specific data source name
	Host       string
	Database   string
	User       string
	Memory     bool // in-process database that disappears with its last connection
}

// Parse parses an SQLAlchemy-style URL into a [DSN].
func Parse(raw string) (*DSN, error) {
	raw = strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme in %q", shared.ErrInvalidDSN, raw)
	}

	dialect, _, _ := strings.Cut(strings.ToLower(scheme), "+")
	driver, ok := dialects[dialect]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnsupportedDialect, dialect)
	}

	d := &DSN{Raw: raw, Dialect: dialect, Driver: driver}

	var err error
	switch driver {
	case DriverSQLite:
		err = d.parseSQLite(rest)
	case DriverRamSQL:
		err = d.parseRamSQL(rest)
	case DriverPostgres:
		err = d.parsePostgres(rest)
	case DriverMySQL:
		err = d.parseMySQL(rest)
	}
	if err != nil {
		return nil, err
	}

	return d, nil
}

// MustParse is like [Parse] but panics on error.
func MustParse(raw string) *DSN {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// Redacted returns the URL with any password masked.
func (d *DSN) Redacted() string {
	scheme, rest, _ := strings.Cut(d.Raw, "://")
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return d.Raw
	}
	userinfo := rest[:at]
	user, _, hasPassword := strings.Cut(userinfo, ":")
	if !hasPassword {
		return d.Raw
	}
	return scheme + "://" + user + ":***" + rest[at:]
}

// String implements [fmt.Stringer] with the redacted URL.
func (d *DSN) String() string {
	return d.Redacted()
}

func (d *DSN) parseSQLite(rest string) error {
	path, query, _ := strings.Cut(rest, "?")
	switch {
	case path == "" || path == "/" || path == "/"+memoryPath:
		d.Memory = true
		d.Database = memoryPath
		d.DataSource = memoryPath
		return nil
	case !strings.HasPrefix(path, "/"):
		return fmt.Errorf("%w: sqlite URL must not name a host: %q", shared.ErrInvalidDSN, d.Raw)
	}

	path = path[1:]
	d.Database = path
	if query == "" {
		d.DataSource = path
	} else {
		d.DataSource = "file:" + path + "?" + query
	}
	return nil
}

func (d *DSN) parseRamSQL(rest string) error {
	name := strings.Trim(rest, "/")
	if name == "" {
		return fmt.Errorf("%w: ramsql URL needs a database name", shared.ErrInvalidDSN)
	}
	d.Memory = true
	d.Database = name
	d.DataSource = name
	return nil
}

func (d *DSN) parsePostgres(rest string) error {
	u, err := url.Parse("postgres://" + rest)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidDSN, err)
	}
	d.Host = u.Host
	d.Database = strings.TrimPrefix(u.Path, "/")
	d.User = u.User.Username()
	d.DataSource = u.String()
	return nil
}

func (d *DSN) parseMySQL(rest string) error {
	u, err := url.Parse("mysql://" + rest)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidDSN, err)
	}

	cfg := mysql.NewConfig()
	cfg.User = u.User.Username()
	cfg.Passwd, _ = u.User.Password()
	cfg.ParseTime = true
	cfg.DBName = strings.TrimPrefix(u.Path, "/")

	host := u.Host
	switch {
	case host == "":
		host = "127.0.0.1:3306"
	case u.Port() == "":
		host = net.JoinHostPort(u.Hostname(), "3306")
	}

	if socket := u.Query().Get("unix_socket"); socket != "" {
		cfg.Net = "unix"
		cfg.Addr = socket
	} else {
		cfg.Net = "tcp"
		cfg.Addr = host
	}

	params := map[string]string{}
	for key, values := range u.Query() {
		if key == "unix_socket" || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	if len(params) > 0 {
		cfg.Params = params
	}

	d.Host = host
	d.Database = cfg.DBName
	d.User = cfg.User
	d.DataSource = cfg.FormatDSN()
	return nil
}
