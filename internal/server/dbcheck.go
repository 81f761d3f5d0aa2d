package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrUnsupportedDriver is returned for a driver name the checker does not know.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Supported values for ConnectionRequest.Driver.
const (
	DriverMySQL     = "mysql"
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
)

// ConnectionChecker opens a short-lived connection and reports whether the
// server accepted it.
type ConnectionChecker interface {
	Check(ctx context.Context, req ConnectionRequest) error
}

// sqlChecker checks connectivity through database/sql.
type sqlChecker struct {
	timeout time.Duration
}

// NewSQLChecker returns a checker that gives each attempt at most timeout.
func NewSQLChecker(timeout time.Duration) ConnectionChecker {
	return &sqlChecker{timeout: timeout}
}

// Check dials, pings and closes. The connection never outlives the call.
func (c *sqlChecker) Check(ctx context.Context, req ConnectionRequest) error {
	driverName, dsn, err := buildDSN(req, c.timeout)
	if err != nil {
		return err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("open %s connection: %w", req.Driver, err)
	}
	defer func() { _ = db.Close() }()

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(c.timeout)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", req.Driver, err)
	}
	return nil
}

// buildDSN maps a request onto the registered driver name and its DSN.
func buildDSN(req ConnectionRequest, timeout time.Duration) (driverName, dsn string, err error) {
	addr := net.JoinHostPort(req.Host, strconv.Itoa(req.Port))

	switch req.Driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = req.Username
		cfg.Passwd = req.Password
		cfg.Net = "tcp"
		cfg.Addr = addr
		cfg.DBName = req.Database
		cfg.Timeout = timeout
		return "mysql", cfg.FormatDSN(), nil

	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(req.Username, req.Password),
			Host:     addr,
			Path:     "/" + req.Database,
			RawQuery: url.Values{"connect_timeout": {seconds(timeout)}}.Encode(),
		}
		return "pgx", u.String(), nil

	case DriverSQLServer:
		u := url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(req.Username, req.Password),
			Host:   addr,
			RawQuery: url.Values{
				"database":           {req.Database},
				"connection timeout": {seconds(timeout)},
			}.Encode(),
		}
		return "sqlserver", u.String(), nil

	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, req.Driver)
	}
}

// seconds renders d as whole seconds, rounding up so short timeouts are not
// turned into "0", which several drivers read as "no timeout".
func seconds(d time.Duration) string {
	s := int64((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return strconv.FormatInt(s, 10)
}
