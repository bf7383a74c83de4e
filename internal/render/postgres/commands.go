package postgres

import (
	"fmt"
	"strings"

	"github.com/warning-explosive/Core-sub004/internal/render"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

func insert(r *render.Renderer, in *sqlexpr.Insert, depth int) (string, error) {
	cols := make([]string, len(in.Columns))
	for i, c := range in.Columns {
		cols[i] = QuoteIdentifier(c)
	}

	rows := make([]string, len(in.Values))
	for i, row := range in.Values {
		if len(row) != len(in.Columns) {
			return "", fmt.Errorf("render insert: row %d has %d values for %d columns", i, len(row), len(in.Columns))
		}
		values, err := r.RenderAll(row, depth+1)
		if err != nil {
			return "", err
		}
		rows[i] = render.Indent(depth+1) + "(" + strings.Join(values, ", ") + ")"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s)\n%sVALUES\n%s",
		qualified(in.Table.Schema, in.Table.Table),
		strings.Join(cols, ", "),
		render.Indent(depth),
		strings.Join(rows, ",\n"))
	if in.Behavior == sqlexpr.InsertDoNothing {
		b.WriteString("\n" + render.Indent(depth) + "ON CONFLICT DO NOTHING")
	}
	return b.String(), nil
}

func update(r *render.Renderer, u *sqlexpr.Update, depth int) (string, error) {
	target, err := commandTarget(u.Source)
	if err != nil {
		return "", err
	}

	sets := make([]string, len(u.Assignments))
	for i, a := range u.Assignments {
		s, err := r.Render(a, depth+1)
		if err != nil {
			return "", err
		}
		sets[i] = render.Indent(depth+1) + s
	}

	text := "UPDATE " + target + "\n" + render.Indent(depth) + "SET\n" + strings.Join(sets, ",\n")
	return withPredicate(r, text, u.Predicate, depth)
}

func deleteCommand(r *render.Renderer, d *sqlexpr.Delete, depth int) (string, error) {
	target, err := commandTarget(d.Source)
	if err != nil {
		return "", err
	}
	return withPredicate(r, "DELETE FROM "+target, d.Predicate, depth)
}

func assign(r *render.Renderer, a *sqlexpr.Assign, depth int) (string, error) {
	value, err := r.Render(a.Right, depth)
	if err != nil {
		return "", err
	}
	return QuoteIdentifier(a.Left.Name) + " = " + value, nil
}

func commandTarget(src *sqlexpr.NamedSource) (string, error) {
	if src == nil {
		return "", fmt.Errorf("render command: no target table")
	}
	qs, ok := src.Source.(*sqlexpr.QuerySource)
	if !ok {
		return "", fmt.Errorf("render command: target must be a table, got %s", src.Source.Kind())
	}
	return qualified(qs.Schema, qs.Table) + " AS " + src.Parameter.Name, nil
}

func withPredicate(r *render.Renderer, text string, pred sqlexpr.Expression, depth int) (string, error) {
	if pred == nil {
		return text, nil
	}
	s, err := r.Render(pred, depth+1)
	if err != nil {
		return "", err
	}
	return text + "\n" + render.Indent(depth) + "WHERE\n" + render.Indent(depth+1) + s, nil
}
