package query

import (
	"context"
	"fmt"
	"iter"
	"reflect"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// Grouping is one group of a GroupBy query. Its values are queried only
// when Values is called.
type Grouping[K, V any] struct {
	Key K

	session *Session
	values  sqlexpr.ValuesProducer
}

// Values runs the values query of the group.
func (g *Grouping[K, V]) Values(ctx context.Context) ([]V, error) {
	e, err := g.values(g.Key)
	if err != nil {
		return nil, err
	}
	// rendered per key, uncached
	cmd, err := g.session.provider.render(e, nil, "")
	if err != nil {
		return nil, err
	}
	values, err := g.session.collect(ctx, cmd, reflect.TypeFor[V]())
	if err != nil {
		return nil, fmt.Errorf("group %v: %w", g.Key, err)
	}
	out := make([]V, len(values))
	for i, v := range values {
		out[i] = v.Interface().(V)
	}
	return out, nil
}

// GroupedQuery is a query yielding one Grouping per distinct key.
type GroupedQuery[K, V any] struct {
	session *Session
	node    expr.Node
}

// GroupBy groups the items of q by key.
//
// The keys are read by one query; the values of each group are read by a
// second query filtered on the group key.
func GroupBy[T, K any](q *Queryable[T], key func(x *expr.Parameter) expr.Node) *GroupedQuery[K, T] {
	grouping := reflect.TypeFor[*Grouping[K, T]]()
	return &GroupedQuery[K, T]{session: q.session, node: expr.GroupBy(q.node, q.lambda(key), grouping)}
}

// Node returns the host expression of the query.
func (q *GroupedQuery[K, V]) Node() expr.Node { return q.node }

// Iter runs the keys query and yields the groups in database order. The
// key set is read completely before the first group is yielded, so
// Values may be called while iterating.
func (q *GroupedQuery[K, V]) Iter(ctx context.Context) iter.Seq2[*Grouping[K, V], error] {
	return func(yield func(*Grouping[K, V], error) bool) {
		groups, err := q.ToList(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, g := range groups {
			if !yield(g, nil) {
				return
			}
		}
	}
}

// ToList runs the keys query and returns every group.
func (q *GroupedQuery[K, V]) ToList(ctx context.Context) ([]*Grouping[K, V], error) {
	p := q.session.provider
	cmd, err := p.translator.Translate(q.node)
	if err != nil {
		return nil, err
	}
	g, ok := cmd.Expression.(*sqlexpr.GroupBy)
	if !ok {
		return nil, fmt.Errorf("group by: translated to %s", cmd.Expression.Kind())
	}
	if kt := reflect.TypeFor[K](); kt != g.KeyType {
		return nil, fmt.Errorf("group by: key selector yields %v, not %v", g.KeyType, kt)
	}

	rendered, err := p.render(g, cmd.Parameters, cmd.CacheKey)
	if err != nil {
		return nil, err
	}
	keys, err := q.session.collect(ctx, rendered, g.KeyType)
	if err != nil {
		return nil, err
	}

	out := make([]*Grouping[K, V], len(keys))
	for i, k := range keys {
		out[i] = &Grouping[K, V]{Key: k.Interface().(K), session: q.session, values: g.Values}
	}
	return out, nil
}
