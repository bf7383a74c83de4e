package postgres

import (
	"fmt"
	"strings"

	"github.com/warning-explosive/Core-sub004/internal/render"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

func projection(r *render.Renderer, p *sqlexpr.Projection, depth int) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT")
	if p.IsDistinct {
		b.WriteString(" DISTINCT")
	}

	bindings, err := r.RenderAll(p.Bindings, depth+1)
	if err != nil {
		return "", err
	}
	for i, s := range bindings {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n" + render.Indent(depth+1) + s)
	}

	src, err := r.Render(p.Source, depth+1)
	if err != nil {
		return "", err
	}
	b.WriteString("\n" + render.Indent(depth) + "FROM\n" + render.Indent(depth+1) + src)

	if len(p.GroupBy) > 0 {
		keys, err := r.RenderAll(p.GroupBy, depth+1)
		if err != nil {
			return "", err
		}
		b.WriteString("\n" + render.Indent(depth) + "GROUP BY\n" + render.Indent(depth+1) + strings.Join(keys, ", "))
	}
	return b.String(), nil
}

func filter(r *render.Renderer, f *sqlexpr.Filter, depth int) (string, error) {
	src, err := r.Render(f.Source, depth)
	if err != nil {
		return "", err
	}
	pred, err := r.Render(f.Predicate, depth)
	if err != nil {
		return "", err
	}
	return src + "\n" + render.Indent(depth-1) + "WHERE\n" + render.Indent(depth) + pred, nil
}

func join(r *render.Renderer, j *sqlexpr.Join, depth int) (string, error) {
	left, err := r.Render(j.Left, depth)
	if err != nil {
		return "", err
	}
	right, err := r.Render(j.Right, depth)
	if err != nil {
		return "", err
	}
	on, err := r.Render(j.On, depth)
	if err != nil {
		return "", err
	}

	outer := render.Indent(depth - 1)
	inner := render.Indent(depth)
	return left + "\n" + outer + "JOIN\n" + inner + right + "\n" + outer + "ON\n" + inner + on, nil
}

func namedSource(r *render.Renderer, n *sqlexpr.NamedSource, depth int) (string, error) {
	if qs, ok := n.Source.(*sqlexpr.QuerySource); ok {
		return qualified(qs.Schema, qs.Table) + " " + n.Parameter.Name, nil
	}
	sub, err := r.Render(n.Source, depth+1)
	if err != nil {
		return "", err
	}
	return "(\n" + render.Indent(depth+1) + sub + "\n" + render.Indent(depth) + ") " + n.Parameter.Name, nil
}

func querySource(_ *render.Renderer, q *sqlexpr.QuerySource, _ int) (string, error) {
	return qualified(q.Schema, q.Table), nil
}

// groupBy renders the keys query; values queries are rendered separately
// once a key is known.
func groupBy(r *render.Renderer, g *sqlexpr.GroupBy, depth int) (string, error) {
	if g.Keys == nil {
		return "", fmt.Errorf("render group by: no keys query")
	}
	return r.Render(g.Keys, depth)
}

func orderBy(r *render.Renderer, o *sqlexpr.OrderBy, depth int) (string, error) {
	src, err := r.Render(o.Source, depth)
	if err != nil {
		return "", err
	}
	keys := make([]string, len(o.Bindings))
	for i, k := range o.Bindings {
		s, err := r.Render(k, depth)
		if err != nil {
			return "", err
		}
		keys[i] = s
	}
	return src + "\n" + render.Indent(depth) + "ORDER BY " + strings.Join(keys, ", "), nil
}

func orderByBinding(r *render.Renderer, o *sqlexpr.OrderByBinding, depth int) (string, error) {
	s, err := r.Render(o.Expression, depth)
	if err != nil {
		return "", err
	}
	return s + " " + o.Direction.String(), nil
}

func rowsFetchLimit(r *render.Renderer, l *sqlexpr.RowsFetchLimit, depth int) (string, error) {
	src, err := r.Render(l.Source, depth)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\n%sFETCH FIRST %d ROWS ONLY", src, render.Indent(depth), l.Limit), nil
}

func explain(r *render.Renderer, e *sqlexpr.Explain, depth int) (string, error) {
	src, err := r.Render(e.Source, depth)
	if err != nil {
		return "", err
	}
	head := "EXPLAIN (FORMAT json)"
	if e.Analyze {
		head = "EXPLAIN (ANALYZE, FORMAT json)"
	}
	return head + "\n" + render.Indent(depth) + src, nil
}
