package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/warning-explosive/Core-sub004/internal/database"
	"github.com/warning-explosive/Core-sub004/internal/render"
	"github.com/warning-explosive/Core-sub004/internal/store"
)

// IDGenerator creates transaction IDs.
type IDGenerator interface {
	Generate() uuid.UUID
}

// UUIDv7Generator generates time-sortable UUIDv7 transaction IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate panics if the random source fails.
func (UUIDv7Generator) Generate() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Transaction is one unit of work.
//
// Thread-safety: a Transaction and its Store are used by one goroutine at
// a time.
type Transaction struct {
	ID    uuid.UUID
	Tx    *sql.Tx
	Store *store.Store

	db       *database.DB
	version  int64
	changes  []*Change
	finished bool
	logger   *slog.Logger
}

// Option configures Begin.
type Option func(*options)

type options struct {
	ids    IDGenerator
	logger *slog.Logger
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithLogger sets the logger. Defaults to the logger of the database.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Begin starts a transaction on db and takes its version from the
// database clock.
func Begin(ctx context.Context, db *database.DB, opts ...Option) (*Transaction, error) {
	o := options{ids: UUIDv7Generator{}, logger: db.Logger()}
	for _, opt := range opts {
		opt(&o)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, err
	}

	t := &Transaction{
		ID:      o.ids.Generate(),
		Tx:      tx,
		Store:   store.New(),
		db:      db,
		version: db.Versions().Next(),
		logger:  o.logger,
	}
	t.logger.Debug("transaction started", "transaction", t.ID, "version", t.version)
	return t, nil
}

// Version is stamped on every entity this transaction writes.
func (t *Transaction) Version() int64 { return t.version }

// DB returns the database the transaction runs on.
func (t *Transaction) DB() *database.DB { return t.db }

// Query runs cmd inside the transaction.
func (t *Transaction) Query(ctx context.Context, cmd *render.Command) (*database.Rows, error) {
	if t.finished {
		return nil, ErrFinished
	}
	return t.db.Query(ctx, t.Tx, cmd)
}

// Exec runs cmd inside the transaction and returns the affected rows.
func (t *Transaction) Exec(ctx context.Context, cmd *render.Command) (int64, error) {
	if t.finished {
		return 0, ErrFinished
	}
	return t.db.Exec(ctx, t.Tx, cmd)
}

// Record appends a change.
func (t *Transaction) Record(c *Change) {
	t.logger.Debug("change recorded",
		"transaction", t.ID,
		"kind", c.Kind,
		"type", c.Type,
		"versions", c.Versions,
		"affected", c.Affected)
	t.changes = append(t.changes, c)
}

// Changes returns the recorded changes in order.
func (t *Transaction) Changes() []*Change {
	out := make([]*Change, len(t.changes))
	copy(out, t.changes)
	return out
}

// Commit reconciles the recorded changes and commits. A change that did
// not reconcile rolls the transaction back and fails with
// ConcurrencyError.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.finished {
		return ErrFinished
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(fmt.Errorf("commit transaction: %w", err), t.Rollback(ctx))
	}

	for _, c := range t.changes {
		if c.Reconciled() {
			continue
		}
		conflict := &ConcurrencyError{Transaction: t.ID, Change: c}
		t.logger.Debug("concurrency conflict", "transaction", t.ID, "error", conflict)
		if err := t.Rollback(ctx); err != nil {
			return errors.Join(conflict, err)
		}
		return conflict
	}

	t.finished = true
	if err := t.Tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	t.logger.Debug("transaction committed", "transaction", t.ID, "changes", len(t.changes))
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction
// is a no-op.
func (t *Transaction) Rollback(_ context.Context) error {
	if t.finished {
		return nil
	}
	t.finished = true
	if err := t.Tx.Rollback(); err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	t.logger.Debug("transaction rolled back", "transaction", t.ID)
	return nil
}
