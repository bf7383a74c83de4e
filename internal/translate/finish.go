package translate

import (
	"strings"

	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// finish normalizes the published result into a renderable root.
func (c *Context) finish() (sqlexpr.Expression, error) {
	if len(c.stack) != 0 {
		return nil, unresolved("scopes still open: %s", c.describeStack())
	}
	if c.result == nil {
		return nil, unresolved("expression produced no result")
	}

	root, err := c.ensureQuery(c.result)
	if err != nil {
		return nil, err
	}

	if v := sqlexpr.Validate(root); !v.Valid {
		return nil, unresolved("invalid %s: %s", root.Kind(), strings.Join(v.Problems, "; "))
	}
	return root, nil
}

// ensureQuery makes e a complete query: bare sources get a default
// projection, wrappers get their source completed.
func (c *Context) ensureQuery(e sqlexpr.Expression) (sqlexpr.Expression, error) {
	switch n := e.(type) {
	case *sqlexpr.Projection, *sqlexpr.GroupBy, *sqlexpr.Insert, *sqlexpr.Update, *sqlexpr.Delete:
		return e, nil
	case *sqlexpr.Filter, *sqlexpr.NamedSource, *sqlexpr.Join:
		return c.wrapProjection(e)
	case *sqlexpr.OrderBy:
		src, err := c.ensureQuery(n.Source)
		if err != nil {
			return nil, err
		}
		n.Source = src
		return n, nil
	case *sqlexpr.RowsFetchLimit:
		src, err := c.ensureQuery(n.Source)
		if err != nil {
			return nil, err
		}
		n.Source = src
		return n, nil
	case *sqlexpr.Explain:
		src, err := c.ensureQuery(n.Source)
		if err != nil {
			return nil, err
		}
		n.Source = src
		return n, nil
	case nil:
		return nil, unresolved("query has no source")
	}
	return nil, unresolved("a %s cannot be the root of a query", e.Kind())
}

func (c *Context) wrapProjection(src sqlexpr.Expression) (*sqlexpr.Projection, error) {
	bindings, err := c.defaultBindings(src)
	if err != nil {
		return nil, err
	}
	return &sqlexpr.Projection{Item: src.ItemType(), Source: src, Bindings: bindings}, nil
}

// complete fills in what a node still lacks when its scope closes.
func (c *Context) complete(node sqlexpr.Expression) error {
	if p, ok := node.(*sqlexpr.Projection); ok && len(p.Bindings) == 0 {
		if p.Source == nil {
			return unresolved("projection without source")
		}
		bindings, err := c.defaultBindings(p.Source)
		if err != nil {
			return err
		}
		p.Bindings = bindings
	}
	return nil
}

// defaultBindings selects every stored column of the root source of src.
func (c *Context) defaultBindings(src sqlexpr.Expression) ([]sqlexpr.Expression, error) {
	ns := rootNamedSource(src)
	if ns == nil {
		return nil, unresolved("no aliased source under %s", src.Kind())
	}

	if table := c.tableFor(ns.Item); table != nil {
		return columnBindings(ns.Parameter, table), nil
	}

	names := outputNames(ns.Source)
	if len(names) == 0 {
		return nil, unresolved("source %s exposes no columns", ns.Parameter.Name)
	}
	out := make([]sqlexpr.Expression, len(names))
	for i, name := range names {
		out[i] = &sqlexpr.SimpleBinding{Source: ns.Parameter, Name: name}
	}
	return out, nil
}

func columnBindings(alias *sqlexpr.Parameter, table *model.Table) []sqlexpr.Expression {
	out := make([]sqlexpr.Expression, len(table.Columns))
	for i, col := range table.Columns {
		out[i] = &sqlexpr.SimpleBinding{Item: col.Type, Source: alias, Name: col.Name}
	}
	return out
}

// rootNamedSource finds the leftmost aliased source of a FROM clause.
func rootNamedSource(e sqlexpr.Expression) *sqlexpr.NamedSource {
	for {
		switch n := e.(type) {
		case *sqlexpr.NamedSource:
			return n
		case *sqlexpr.Join:
			e = n.Left
		case *sqlexpr.Filter:
			e = n.Source
		default:
			return nil
		}
	}
}

// outputNames lists the column names a subquery yields.
func outputNames(e sqlexpr.Expression) []string {
	for {
		switch n := e.(type) {
		case *sqlexpr.OrderBy:
			e = n.Source
		case *sqlexpr.RowsFetchLimit:
			e = n.Source
		case *sqlexpr.Projection:
			names := make([]string, 0, len(n.Bindings))
			for _, b := range n.Bindings {
				switch b := b.(type) {
				case *sqlexpr.SimpleBinding:
					names = append(names, b.Name)
				case *sqlexpr.NamedBinding:
					names = append(names, b.Name)
				}
			}
			return names
		default:
			return nil
		}
	}
}
