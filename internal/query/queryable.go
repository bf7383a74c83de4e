package query

import (
	"context"
	"fmt"
	"iter"
	"reflect"

	"github.com/warning-explosive/Core-sub004/internal/expr"
)

// Queryable is a composable query over items of type T. Every operator
// returns a new Queryable; nothing runs until the query is iterated.
type Queryable[T any] struct {
	session *Session
	node    expr.Node
}

// All starts a query over every entity of type T.
func All[T any](s *Session) *Queryable[T] {
	return &Queryable[T]{session: s, node: expr.All(reflect.TypeFor[T]())}
}

// Node returns the host expression of the query.
func (q *Queryable[T]) Node() expr.Node { return q.node }

// String returns the host expression in readable form.
func (q *Queryable[T]) String() string { return expr.String(q.node) }

func (q *Queryable[T]) with(n expr.Node) *Queryable[T] {
	return &Queryable[T]{session: q.session, node: n}
}

func (q *Queryable[T]) lambda(fn func(x *expr.Parameter) expr.Node) *expr.Lambda {
	return expr.Func(reflect.TypeFor[T](), fn)
}

// Where filters the items by predicate. Chained filters are combined
// with AND.
func (q *Queryable[T]) Where(predicate func(x *expr.Parameter) expr.Node) *Queryable[T] {
	return q.with(expr.Where(q.node, q.lambda(predicate)))
}

func (q *Queryable[T]) OrderBy(key func(x *expr.Parameter) expr.Node) *Queryable[T] {
	return q.with(expr.OrderBy(q.node, q.lambda(key)))
}

func (q *Queryable[T]) OrderByDescending(key func(x *expr.Parameter) expr.Node) *Queryable[T] {
	return q.with(expr.OrderByDescending(q.node, q.lambda(key)))
}

func (q *Queryable[T]) ThenBy(key func(x *expr.Parameter) expr.Node) *Queryable[T] {
	return q.with(expr.ThenBy(q.node, q.lambda(key)))
}

func (q *Queryable[T]) ThenByDescending(key func(x *expr.Parameter) expr.Node) *Queryable[T] {
	return q.with(expr.ThenByDescending(q.node, q.lambda(key)))
}

// Take limits the query to n items.
func (q *Queryable[T]) Take(n int) *Queryable[T] {
	return q.with(expr.Take(q.node, n))
}

func (q *Queryable[T]) Distinct() *Queryable[T] {
	return q.with(expr.Distinct(q.node))
}

// CachedExpression tags the query with key. Queries sharing a key must
// have the same shape; only their parameter values may differ.
func (q *Queryable[T]) CachedExpression(key string) *Queryable[T] {
	return q.with(expr.CachedExpression(q.node, key))
}

// Iter runs the query and yields its items in database order. The first
// error ends the sequence.
func (q *Queryable[T]) Iter(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		cmd, err := q.session.provider.Render(q.node)
		if err != nil {
			yield(zero, err)
			return
		}
		for v, err := range q.session.run(ctx, cmd, reflect.TypeFor[T]()) {
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v.Interface().(T), nil) {
				return
			}
		}
	}
}

// ToList runs the query and collects every item.
func (q *Queryable[T]) ToList(ctx context.Context) ([]T, error) {
	var out []T
	for item, err := range q.Iter(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// First returns the first item. It returns ErrNoRows when there is none.
func (q *Queryable[T]) First(ctx context.Context) (T, error) {
	var zero T
	items, err := q.Take(1).ToList(ctx)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, ErrNoRows
	}
	return items[0], nil
}

// Single returns the only item. It returns ErrNoRows or ErrMultipleRows
// when the query does not yield exactly one.
func (q *Queryable[T]) Single(ctx context.Context) (T, error) {
	var zero T
	items, err := q.Take(2).ToList(ctx)
	if err != nil {
		return zero, err
	}
	switch len(items) {
	case 0:
		return zero, ErrNoRows
	case 1:
		return items[0], nil
	default:
		return zero, ErrMultipleRows
	}
}

// Explain returns the JSON execution plan of the query. With analyze the
// query is executed.
func (q *Queryable[T]) Explain(ctx context.Context, analyze bool) (string, error) {
	return q.session.Explain(ctx, q.node, analyze)
}

// Select projects every item through selector. The selector body is
// usually a member access, an expression or expr.NewStruct for R.
func Select[T, R any](q *Queryable[T], selector func(x *expr.Parameter) expr.Node) *Queryable[R] {
	return &Queryable[R]{session: q.session, node: expr.Select(q.node, q.lambda(selector))}
}

// Find returns the entity of type T with primary key key, from the
// identity map when the session has already materialized it.
func Find[T any](ctx context.Context, s *Session, key any) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()
	table, err := s.provider.models.Table(t)
	if err != nil {
		return zero, err
	}
	if t != table.Type {
		return zero, fmt.Errorf("find %v: entities are materialized as %v", t, table.Type)
	}
	keyValue, err := convertKey(key, table.PrimaryKey.Type)
	if err != nil {
		return zero, fmt.Errorf("find %v: %w", t, err)
	}
	if v, ok := s.tx.Store.Get(table.Type, keyValue); ok {
		return v.Interface().(T), nil
	}
	v, err := s.find(ctx, table, keyValue)
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}
