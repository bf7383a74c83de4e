package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warning-explosive/Core-sub004/internal/render"
	"github.com/warning-explosive/Core-sub004/internal/settings"
)

// Driver names a database/sql driver.
type Driver string

const (
	Postgres Driver = settings.DriverPostgres
	SQLite   Driver = settings.DriverSQLite
)

// Querier is implemented by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DB is a database handle bound to one driver.
//
// Thread-safety: DB is safe for concurrent use; the transactions begun
// from it are not.
type DB struct {
	db       *sql.DB
	driver   Driver
	timeout  time.Duration
	versions VersionSource
	logger   *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithQueryTimeout bounds every statement. Zero disables the bound.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(d *DB) { d.timeout = timeout }
}

// WithVersions replaces the version clock.
func WithVersions(v VersionSource) Option {
	return func(d *DB) {
		if v != nil {
			d.versions = v
		}
	}
}

// New wraps an open handle. The version clock starts at 0 unless
// WithVersions is given.
func New(db *sql.DB, driver Driver, opts ...Option) *DB {
	d := &DB{
		db:       db,
		driver:   driver,
		versions: NewClock(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open connects with the driver and DSN of s and verifies the
// connection. SQLite connections are limited to a single writer and get
// the pragmas in sqlitePragmas.
//
// Options are applied after the settings, so WithQueryTimeout overrides
// s.QueryTimeout.
func Open(ctx context.Context, s settings.Settings, opts ...Option) (*DB, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open(s.Driver, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	driver := Driver(s.Driver)
	if driver == SQLite {
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	opts = append([]Option{
		WithQueryTimeout(s.QueryTimeout),
		WithVersions(NewClockAt(time.Now().UnixMicro())),
	}, opts...)
	d := New(db, driver, opts...)

	d.logger.Debug("database opened", "driver", driver, "timeout", d.timeout)
	return d, nil
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SQL returns the underlying handle.
func (d *DB) SQL() *sql.DB { return d.db }

func (d *DB) Driver() Driver { return d.driver }

// Versions returns the version clock shared by all transactions.
func (d *DB) Versions() VersionSource { return d.versions }

func (d *DB) Logger() *slog.Logger { return d.logger }

// Begin starts a transaction.
func (d *DB) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

// Query runs cmd on q. The statement timeout lasts until the returned
// rows are closed.
func (d *DB) Query(ctx context.Context, q Querier, cmd *render.Command) (*Rows, error) {
	args, err := d.Args(cmd)
	if err != nil {
		return nil, err
	}

	ctx, cancel := d.statementContext(ctx)
	d.logger.Debug("query", "sql", cmd.Text, "parameters", len(cmd.Parameters))

	rows, err := q.QueryContext(ctx, cmd.Text, args...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return &Rows{Rows: rows, cancel: cancel}, nil
}

// Exec runs cmd on q and returns the number of affected rows.
func (d *DB) Exec(ctx context.Context, q Querier, cmd *render.Command) (int64, error) {
	args, err := d.Args(cmd)
	if err != nil {
		return 0, err
	}

	ctx, cancel := d.statementContext(ctx)
	defer cancel()
	d.logger.Debug("exec", "sql", cmd.Text, "parameters", len(cmd.Parameters))

	res, err := q.ExecContext(ctx, cmd.Text, args...)
	if err != nil {
		return 0, fmt.Errorf("execute command: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read affected rows: %w", err)
	}
	return n, nil
}

func (d *DB) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout > 0 {
		return context.WithTimeout(ctx, d.timeout)
	}
	return context.WithCancel(ctx)
}
