package translate

import (
	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

func (c *Context) visitCall(n *expr.Call) error {
	if n.Method.Declaring != expr.QueryableType {
		handled, err := c.recognize(n, n.Method)
		if err != nil {
			return err
		}
		if !handled {
			return unsupportedMember(n, n.Method)
		}
		return nil
	}

	if len(n.Args) != n.Method.Arity {
		return unsupported(n, "%s expects %d arguments, got %d", n.Method.Name, n.Method.Arity, len(n.Args))
	}

	switch n.Method.Name {
	case expr.MethodAll.Name:
		return c.visitAll(n)
	case expr.MethodWhere.Name:
		return c.visitWhere(n)
	case expr.MethodSelect.Name:
		return c.visitSelect(n)
	case expr.MethodGroupBy.Name:
		return c.visitGroupBy(n)
	case expr.MethodOrderBy.Name:
		return c.visitOrderBy(n, sqlexpr.Ascending, false)
	case expr.MethodOrderByDescending.Name:
		return c.visitOrderBy(n, sqlexpr.Descending, false)
	case expr.MethodThenBy.Name:
		return c.visitOrderBy(n, sqlexpr.Ascending, true)
	case expr.MethodThenByDescending.Name:
		return c.visitOrderBy(n, sqlexpr.Descending, true)
	case expr.MethodTake.Name:
		return c.visitTake(n)
	case expr.MethodDistinct.Name:
		return c.visitDistinct(n)
	case expr.MethodCachedExpression.Name:
		return c.visitCachedExpression(n)
	case expr.MethodExplain.Name:
		return c.visitExplain(n)
	case expr.MethodUpdate.Name, expr.MethodSet.Name, expr.MethodDelete.Name:
		return unsupported(n, "%s is only valid at the root of a command", n.Method.Name)
	}
	return unsupportedMember(n, n.Method)
}

func (c *Context) visitAll(n *expr.Call) error {
	item := expr.ItemType(n)
	table, err := c.Models().Table(item)
	if err != nil {
		return unknownEntity(n, err)
	}
	return c.Apply(c.querySource(item, table))
}

// visitWhere reuses an enclosing filter that is still waiting for its
// source, so chained Where calls collapse into one WHERE whose predicates
// are conjoined in source order.
func (c *Context) visitWhere(n *expr.Call) (err error) {
	pred, err := lambdaArg(n, 1)
	if err != nil {
		return err
	}

	if f, ok := c.Top().(*sqlexpr.Filter); ok && f.Source == nil {
		if err = c.visit(n.Args[0]); err != nil {
			return err
		}
		return c.visitLambda(pred, &f.Source)
	}

	filter := &sqlexpr.Filter{Item: expr.ItemType(n)}
	scope := c.WithinScope(filter)
	defer scope.Close(&err)

	if err = c.visit(n.Args[0]); err != nil {
		return err
	}
	return c.visitLambda(pred, &filter.Source)
}

func (c *Context) visitSelect(n *expr.Call) (err error) {
	selector, err := lambdaArg(n, 1)
	if err != nil {
		return err
	}
	if err := c.checkSelector(selector.Body); err != nil {
		return err
	}

	projection := &sqlexpr.Projection{Item: expr.ItemType(n)}
	scope := c.WithinScope(projection)
	defer scope.Close(&err)

	if err = c.visit(n.Args[0]); err != nil {
		return err
	}
	return c.visitLambda(selector, &projection.Source)
}

// checkSelector rejects projections of to-one relations. Only the
// foreign key column is stored on the owner row, so the referenced entity
// cannot be built from it; project its members instead.
func (c *Context) checkSelector(body expr.Node) error {
	switch b := body.(type) {
	case *expr.Member:
		if b.Resolved() && c.Models().IsEntity(b.Type()) {
			return unsupported(b, "relation %s cannot be projected, select its members instead", b.Name)
		}
	case *expr.New:
		for _, m := range b.Members {
			if err := c.checkSelector(m.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Context) visitDistinct(n *expr.Call) (err error) {
	projection := &sqlexpr.Projection{Item: expr.ItemType(n), IsDistinct: true}
	c.shared.distinct[projection] = true

	scope := c.WithinScope(projection)
	defer scope.Close(&err)

	return c.visit(n.Args[0])
}

// visitOrderBy opens an OrderBy scope, or extends the one a ThenBy opened
// above it.
func (c *Context) visitOrderBy(n *expr.Call, dir sqlexpr.OrderDirection, then bool) (err error) {
	key, err := lambdaArg(n, 1)
	if err != nil {
		return err
	}

	if ob, ok := c.Top().(*sqlexpr.OrderBy); ok && ob.Source == nil && c.shared.thenBy[ob] {
		if !then {
			delete(c.shared.thenBy, ob)
		}
		if err = c.visit(n.Args[0]); err != nil {
			return err
		}
		return c.orderKey(ob, key, dir)
	}

	ob := &sqlexpr.OrderBy{Item: expr.ItemType(n)}
	if then {
		c.shared.thenBy[ob] = true
	}
	scope := c.WithinScope(ob)
	defer scope.Close(&err)

	if err = c.visit(n.Args[0]); err != nil {
		return err
	}
	return c.orderKey(ob, key, dir)
}

func (c *Context) orderKey(ob *sqlexpr.OrderBy, key *expr.Lambda, dir sqlexpr.OrderDirection) (err error) {
	scope := c.WithinScope(&sqlexpr.OrderByBinding{Direction: dir})
	defer scope.Close(&err)

	return c.visitLambda(key, &ob.Source)
}

func (c *Context) visitTake(n *expr.Call) (err error) {
	limit, ok := n.Args[1].(*expr.Constant)
	if !ok {
		return unsupported(n, "Take limit must be a constant")
	}
	count, ok := limit.Value.(int)
	if !ok {
		return unsupported(n, "Take limit must be an int, got %T", limit.Value)
	}

	scope := c.WithinScope(&sqlexpr.RowsFetchLimit{Item: expr.ItemType(n), Limit: count})
	defer scope.Close(&err)

	return c.visit(n.Args[0])
}

func (c *Context) visitCachedExpression(n *expr.Call) error {
	key, ok := n.Args[1].(*expr.Constant)
	if !ok {
		return unsupported(n, "cache key must be a constant")
	}
	s, ok := key.Value.(string)
	if !ok {
		return unsupported(n, "cache key must be a string, got %T", key.Value)
	}
	if c.shared.cacheKey == "" {
		c.shared.cacheKey = s
	}
	return c.visit(n.Args[0])
}

func (c *Context) visitExplain(n *expr.Call) (err error) {
	flag, ok := n.Args[1].(*expr.Constant)
	if !ok {
		return unsupported(n, "explain flag must be a constant")
	}
	analyze, _ := flag.Value.(bool)

	scope := c.WithinScope(&sqlexpr.Explain{Analyze: analyze})
	defer scope.Close(&err)

	return c.visit(n.Args[0])
}

// visitLambda binds the lambda parameter to the source held by holder and
// translates the body.
func (c *Context) visitLambda(l *expr.Lambda, holder *sqlexpr.Expression) error {
	if len(l.Params) != 1 {
		return unsupported(l, "lambda with %d parameters", len(l.Params))
	}
	b, err := c.sourceBinding(holder)
	if err != nil {
		return err
	}
	c.shared.bindings[l.Params[0]] = b
	return c.visit(l.Body)
}

// sourceBinding decides what a lambda parameter over *holder stands for.
func (c *Context) sourceBinding(holder *sqlexpr.Expression) (*binding, error) {
	switch src := (*holder).(type) {
	case *sqlexpr.NamedSource:
		return &binding{alias: src.Parameter, table: c.tableFor(src.Item), holder: holder}, nil
	case *sqlexpr.Join:
		root := rootNamedSource(src)
		if root == nil {
			return nil, unresolved("join without aliased source")
		}
		return &binding{alias: root.Parameter, table: c.tableFor(root.Item), holder: holder}, nil
	case *sqlexpr.Filter:
		return c.sourceBinding(&src.Source)
	case *sqlexpr.Projection:
		return &binding{projection: src}, nil
	case nil:
		return nil, unresolved("lambda parameter has no source")
	}
	return nil, unresolved("lambda parameter over %s", (*holder).Kind())
}

func lambdaArg(n *expr.Call, i int) (*expr.Lambda, error) {
	if i >= len(n.Args) {
		return nil, unsupported(n, "%s requires a lambda argument", n.Method.Name)
	}
	l, ok := n.Args[i].(*expr.Lambda)
	if !ok {
		return nil, unsupported(n, "%s argument %d must be a lambda", n.Method.Name, i)
	}
	return l, nil
}
