package translate

import (
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// applyTo attaches child to parent according to the parent kind.
func (c *Context) applyTo(parent, child sqlexpr.Expression) error {
	switch p := parent.(type) {
	case *sqlexpr.Projection:
		return c.applyProjection(p, child)

	case *sqlexpr.Filter:
		if p.Source == nil {
			if inner, ok := child.(*sqlexpr.Filter); ok && p.Predicate == nil {
				p.Source, p.Predicate = inner.Source, inner.Predicate
				return nil
			}
			src, err := c.asSource(child)
			if err != nil {
				return err
			}
			p.Source = src
			return nil
		}
		p.Predicate = conjoin(p.Predicate, child)
		return nil

	case *sqlexpr.Binary:
		operand, err := c.asOperand(child)
		if err != nil {
			return err
		}
		switch {
		case p.Left == nil:
			p.Left = operand
		case p.Right == nil:
			p.Right = operand
		default:
			return unresolved("binary %s already has both operands", p.Operator)
		}
		return nil

	case *sqlexpr.Unary:
		if p.Operand != nil {
			return unresolved("unary %s already has an operand", p.Operator)
		}
		p.Operand = child
		return nil

	case *sqlexpr.Conditional:
		switch {
		case p.When == nil:
			p.When = child
		case p.Then == nil:
			p.Then = child
		case p.Else == nil:
			p.Else = child
		default:
			return unresolved("conditional already complete")
		}
		return nil

	case *sqlexpr.NamedBinding:
		if p.Expression != nil {
			return unresolved("binding %q already has an expression", p.Name)
		}
		p.Expression = child
		return nil

	case *sqlexpr.MethodCall:
		p.Arguments = append(p.Arguments, child)
		return nil

	case *sqlexpr.New:
		nb, ok := child.(*sqlexpr.NamedBinding)
		if !ok {
			return unresolved("new accepts named bindings, got %s", child.Kind())
		}
		p.Bindings = append(p.Bindings, nb)
		return nil

	case *sqlexpr.List:
		p.Items = append(p.Items, child)
		return nil

	case *sqlexpr.Assign:
		if p.Left == nil {
			column, ok := child.(*sqlexpr.SimpleBinding)
			if !ok {
				return unresolved("assignment target must be a column, got %s", child.Kind())
			}
			p.Left = column
			return nil
		}
		if p.Right != nil {
			return unresolved("assignment already has a value")
		}
		p.Right = child
		return nil

	case *sqlexpr.JSONAttribute:
		p.Source = child
		return nil

	case *sqlexpr.GroupBy:
		keys, ok := child.(*sqlexpr.Projection)
		if !ok {
			return unresolved("group by keys must be a projection, got %s", child.Kind())
		}
		p.Keys = keys
		return nil

	case *sqlexpr.OrderBy:
		if p.Source == nil {
			switch child.(type) {
			case *sqlexpr.OrderBy, *sqlexpr.RowsFetchLimit:
				src, err := c.asSource(child)
				if err != nil {
					return err
				}
				p.Source = src
			default:
				p.Source = child
			}
			return nil
		}
		key, ok := child.(*sqlexpr.OrderByBinding)
		if !ok {
			return unresolved("order by accepts sort keys, got %s", child.Kind())
		}
		p.Bindings = append(p.Bindings, key)
		return nil

	case *sqlexpr.OrderByBinding:
		p.Expression = child
		return nil

	case *sqlexpr.RowsFetchLimit:
		if p.Source != nil {
			return unresolved("fetch limit already has a source")
		}
		if _, ok := child.(*sqlexpr.RowsFetchLimit); ok {
			src, err := c.asSource(child)
			if err != nil {
				return err
			}
			child = src
		}
		p.Source = child
		return nil

	case *sqlexpr.Explain:
		p.Source = child
		return nil

	case *sqlexpr.Update:
		if a, ok := child.(*sqlexpr.Assign); ok {
			p.Assignments = append(p.Assignments, a)
			return nil
		}
		p.Predicate = conjoin(p.Predicate, child)
		return nil

	case *sqlexpr.Delete:
		p.Predicate = conjoin(p.Predicate, child)
		return nil
	}

	return unresolved("cannot apply %s to %s", child.Kind(), parent.Kind())
}

// applyProjection sets the source of p on first application and appends
// selector results afterwards.
func (c *Context) applyProjection(p *sqlexpr.Projection, child sqlexpr.Expression) error {
	if p.Source == nil {
		if inner, ok := child.(*sqlexpr.Projection); ok && c.shared.distinct[p] {
			p.Source = inner.Source
			p.Bindings = inner.Bindings
			p.GroupBy = inner.GroupBy
			return nil
		}
		src, err := c.asSource(child)
		if err != nil {
			return err
		}
		p.Source = src
		return nil
	}

	switch b := child.(type) {
	case *sqlexpr.New:
		for _, nb := range b.Bindings {
			p.Bindings = append(p.Bindings, nb)
		}
	case *sqlexpr.Parameter:
		table := c.tableFor(b.Item)
		if table == nil {
			return unresolved("alias %s has no columns to project", b.Name)
		}
		p.Bindings = append(p.Bindings, columnBindings(b, table)...)
	case *sqlexpr.SimpleBinding, *sqlexpr.NamedBinding:
		p.Bindings = append(p.Bindings, b)
	default:
		p.Bindings = append(p.Bindings, &sqlexpr.NamedBinding{Name: "Value", Expression: child})
	}
	return nil
}

// asSource turns child into something a FROM clause can hold, wrapping
// query shapes into an aliased subquery.
func (c *Context) asSource(child sqlexpr.Expression) (sqlexpr.Expression, error) {
	switch child.(type) {
	case *sqlexpr.NamedSource, *sqlexpr.Join, *sqlexpr.Filter:
		return child, nil
	}
	query, err := c.ensureQuery(child)
	if err != nil {
		return nil, err
	}
	return &sqlexpr.NamedSource{
		Item:      child.ItemType(),
		Source:    query,
		Parameter: c.NextAlias(child.ItemType()),
	}, nil
}

// asOperand turns nested query shapes into complete subqueries.
func (c *Context) asOperand(child sqlexpr.Expression) (sqlexpr.Expression, error) {
	switch child.(type) {
	case *sqlexpr.Filter, *sqlexpr.NamedSource, *sqlexpr.Join, *sqlexpr.OrderBy, *sqlexpr.RowsFetchLimit:
		return c.ensureQuery(child)
	}
	return child, nil
}

func conjoin(existing, next sqlexpr.Expression) sqlexpr.Expression {
	if existing == nil {
		return next
	}
	return &sqlexpr.Binary{Operator: sqlexpr.AndAlso, Left: existing, Right: next}
}
