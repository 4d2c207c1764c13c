package dsn

import (
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/proullon/ramsql/driver"
)

// Go driver names registered with database/sql.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverRamSQL   = "ramsql"
)

// dialects maps SQLAlchemy dialect names to Go driver names.
var dialects = map[string]string{
	"sqlite":     DriverSQLite,
	"postgresql": DriverPostgres,
	"postgres":   DriverPostgres,
	"mysql":      DriverMySQL,
	"mariadb":    DriverMySQL,
	"ramsql":     DriverRamSQL,
}

// Dialects returns the supported dialect names.
func Dialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	return names
}
