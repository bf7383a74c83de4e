package query

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"reflect"
	"strings"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/render"
	"github.com/warning-explosive/Core-sub004/internal/transaction"
)

var (
	// ErrNoRows is returned by First, Single and Find for empty results.
	ErrNoRows = errors.New("query returned no rows")

	// ErrMultipleRows is returned by Single for results with more than one row.
	ErrMultipleRows = errors.New("query returned more than one row")
)

// Session runs queries and commands inside one transaction.
//
// Thread-safety: a Session is used by one goroutine at a time.
type Session struct {
	provider *Provider
	tx       *transaction.Transaction
}

// Provider returns the provider the session was begun from.
func (s *Session) Provider() *Provider { return s.provider }

// Transaction returns the underlying transaction.
func (s *Session) Transaction() *transaction.Transaction { return s.tx }

// Commit reconciles the recorded changes and commits.
func (s *Session) Commit(ctx context.Context) error { return s.tx.Commit(ctx) }

// Rollback aborts the session's transaction.
func (s *Session) Rollback(ctx context.Context) error { return s.tx.Rollback(ctx) }

// run executes cmd and yields one materialized value of type item per
// row, in database order.
func (s *Session) run(ctx context.Context, cmd *render.Command, item reflect.Type) iter.Seq2[reflect.Value, error] {
	return func(yield func(reflect.Value, error) bool) {
		fail := func(err error) { yield(reflect.Value{}, err) }

		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}
		rows, err := s.tx.Query(ctx, cmd)
		if err != nil {
			fail(err)
			return
		}

		if s.needsRoundTrips(item) {
			data, err := rows.Drain()
			if err != nil {
				fail(err)
				return
			}
			s.provider.logger.Debug("rows read", "type", item, "rows", len(data))
			for _, row := range data {
				if err := ctx.Err(); err != nil {
					fail(err)
					return
				}
				v, err := s.materialize(ctx, item, row)
				if err != nil {
					fail(err)
					return
				}
				if !yield(v, nil) {
					return
				}
			}
			return
		}

		defer rows.Close()
		n := 0
		for rows.Next() {
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			row, err := rows.ScanMap()
			if err != nil {
				fail(err)
				return
			}
			v, err := s.materialize(ctx, item, row)
			if err != nil {
				fail(err)
				return
			}
			n++
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			fail(fmt.Errorf("read rows: %w", err))
			return
		}
		s.provider.logger.Debug("rows read", "type", item, "rows", n)
	}
}

// collect runs cmd and gathers every value.
func (s *Session) collect(ctx context.Context, cmd *render.Command, item reflect.Type) ([]reflect.Value, error) {
	var out []reflect.Value
	for v, err := range s.run(ctx, cmd, item) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// needsRoundTrips reports whether materializing item may issue queries.
func (s *Session) needsRoundTrips(item reflect.Type) bool {
	if !s.provider.models.IsEntity(item) {
		return false
	}
	table, err := s.provider.models.Table(item)
	return err == nil && len(table.Relations) > 0
}

// Query runs a query expression whose item type is only known at run
// time, such as one compiled from a spec file.
func (s *Session) Query(ctx context.Context, n expr.Node) ([]reflect.Value, error) {
	t := n.Type()
	if t == nil || t.Kind() != reflect.Slice {
		return nil, fmt.Errorf("query %s: not a sequence", expr.String(n))
	}
	item := t.Elem()
	cmd, err := s.provider.Render(n)
	if err != nil {
		return nil, err
	}
	return s.collect(ctx, cmd, item)
}

// Explain returns the JSON execution plan of the query expression n.
func (s *Session) Explain(ctx context.Context, n expr.Node, analyze bool) (string, error) {
	cmd, err := s.provider.Render(expr.Explain(n, analyze))
	if err != nil {
		return "", err
	}
	rows, err := s.tx.Query(ctx, cmd)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var plan []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", fmt.Errorf("scan plan: %w", err)
		}
		plan = append(plan, line)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("read plan: %w", err)
	}
	return strings.Join(plan, "\n"), nil
}
