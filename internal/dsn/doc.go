// Package dsn converts SQLAlchemy-style engine URLs into Go driver names and data source names.
//
// Engine configurations are written the way database administrators already know them:
//
//	dialect[+driver]://user:password@host:port/database?param=value
//
// [Parse] maps the dialect to one of the drivers linked into the binary:
//   - sqlite (github.com/mattn/go-sqlite3): "sqlite://" is an in-memory database,
//     "sqlite:///relative.db" and "sqlite:////absolute/path.db" are files.
//   - postgresql, postgres (github.com/lib/pq): the URL is passed through with the driver suffix removed.
//   - mysql (github.com/go-sql-driver/mysql): the URL is rewritten into the driver's native DSN.
//   - ramsql (github.com/proullon/ramsql): "ramsql://name" is a named in-process SQL engine.
//
// The Python driver suffix ("+psycopg2", "+pymysql", ...) is accepted and ignored.
package dsn
