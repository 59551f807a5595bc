// Package store is the relational store behind fundboard: profiles, projects,
// comments, donations and bids. It runs on either SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres
	_ "modernc.org/sqlite"             // sqlite
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Supported drivers.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Config describes the database to open.
type Config struct {
	// Driver is either SQLite or Postgres.
	Driver string
	// DSN is the file path for SQLite or the connection string for Postgres.
	DSN string
}

// Store is a handle to the relational store. It is safe to use concurrently.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Open opens the database and checks that it is reachable. Migrate must be
// called before the store is used on a new database.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var sqlDriver, dsn string

	switch cfg.Driver {
	case SQLite, "":
		cfg.Driver = SQLite
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, errors.New("sqlite path is required")
		}
		sqlDriver = "sqlite"
		dsn = sqliteDSN(cfg.DSN)
	case Postgres:
		sqlDriver = "pgx"
		dsn = cfg.DSN
	default:
		return nil, errors.Errorf("unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", cfg.Driver)
	}

	if cfg.Driver == SQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to ping %s", cfg.Driver)
	}

	return &Store{
		db:     db,
		driver: cfg.Driver,
		now:    time.Now,
	}, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") || strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the name of the driver that the store runs on.
func (s *Store) Driver() string { return s.driver }

// rebind rewrites ? placeholders into $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != Postgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)

	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) inTx(ctx context.Context, f func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "cannot begin transaction")
	}
	defer tx.Rollback()

	if err := f(tx); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "cannot commit transaction")
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// scanner is either *sql.Row or *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}
