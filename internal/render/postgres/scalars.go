package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/warning-explosive/Core-sub004/internal/render"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

const atomic = 100

// precedence orders operators from loosest to tightest binding. Nodes
// that are not infix binaries never need parentheses.
func precedence(e sqlexpr.Expression) int {
	b, ok := e.(*sqlexpr.Binary)
	if !ok {
		return atomic
	}
	switch b.Operator {
	case sqlexpr.OrElse:
		return 1
	case sqlexpr.ExclusiveOr:
		return 2
	case sqlexpr.AndAlso:
		return 3
	case sqlexpr.Equal, sqlexpr.NotEqual, sqlexpr.GreaterThanOrEqual, sqlexpr.GreaterThan,
		sqlexpr.LessThan, sqlexpr.LessThanOrEqual, sqlexpr.Contains, sqlexpr.Like:
		return 4
	case sqlexpr.Add, sqlexpr.Subtract:
		return 5
	case sqlexpr.Multiply, sqlexpr.Divide, sqlexpr.Modulo:
		return 6
	}
	return atomic
}

func isQuery(e sqlexpr.Expression) bool {
	switch e.(type) {
	case *sqlexpr.Projection, *sqlexpr.OrderBy, *sqlexpr.RowsFetchLimit, *sqlexpr.GroupBy:
		return true
	}
	return false
}

func isNull(e sqlexpr.Expression) bool {
	c, ok := e.(*sqlexpr.Constant)
	return ok && c.IsNull()
}

func binary(r *render.Renderer, b *sqlexpr.Binary, depth int) (string, error) {
	left, right := b.Left, b.Right

	if b.Operator == sqlexpr.Coalesce {
		l, err := r.Render(left, depth)
		if err != nil {
			return "", err
		}
		rt, err := r.Render(right, depth)
		if err != nil {
			return "", err
		}
		return "COALESCE(" + l + ", " + rt + ")", nil
	}

	op, ok := Operators[b.Operator]
	if !ok {
		return "", fmt.Errorf("render binary: unknown operator %s", b.Operator)
	}

	if b.Operator == sqlexpr.Equal || b.Operator == sqlexpr.NotEqual {
		if isNull(left) && !isNull(right) {
			left, right = right, left
		}
		if isNull(right) {
			op = "IS"
			if b.Operator == sqlexpr.NotEqual {
				op = "IS NOT"
			}
		}
	}

	l, err := operand(r, b, left, false, depth)
	if err != nil {
		return "", err
	}

	if b.Operator == sqlexpr.Contains {
		rt, err := r.Render(right, depth)
		if err != nil {
			return "", err
		}
		return l + " IN (" + rt + ")", nil
	}

	rt, err := operand(r, b, right, true, depth)
	if err != nil {
		return "", err
	}
	return l + " " + op + " " + rt, nil
}

// operand renders a child of parent, parenthesized when the child binds
// looser than the parent. Comparisons never chain without parentheses.
func operand(r *render.Renderer, parent *sqlexpr.Binary, child sqlexpr.Expression, right bool, depth int) (string, error) {
	s, err := r.Render(child, depth)
	if err != nil {
		return "", err
	}
	if isQuery(child) {
		return "(" + s + ")", nil
	}

	p, cp := precedence(parent), precedence(child)
	if cp < p || (cp == p && cp != atomic && (right || p == 4)) {
		return "(" + s + ")", nil
	}
	return s, nil
}

func unary(r *render.Renderer, u *sqlexpr.Unary, depth int) (string, error) {
	s, err := r.Render(u.Operand, depth)
	if err != nil {
		return "", err
	}
	switch u.Operator {
	case sqlexpr.Not:
		return "NOT (" + s + ")", nil
	case sqlexpr.Negate:
		if precedence(u.Operand) != atomic {
			return "-(" + s + ")", nil
		}
		return "-" + s, nil
	}
	return "", fmt.Errorf("render unary: unknown operator %s", u.Operator)
}

func conditional(r *render.Renderer, c *sqlexpr.Conditional, depth int) (string, error) {
	when, err := r.Render(c.When, depth)
	if err != nil {
		return "", err
	}
	then, err := r.Render(c.Then, depth)
	if err != nil {
		return "", err
	}
	if c.Else == nil {
		return "CASE WHEN " + when + " THEN " + then + " END", nil
	}
	els, err := r.Render(c.Else, depth)
	if err != nil {
		return "", err
	}
	return "CASE WHEN " + when + " THEN " + then + " ELSE " + els + " END", nil
}

func simpleBinding(_ *render.Renderer, b *sqlexpr.SimpleBinding, _ int) (string, error) {
	if b.Source == nil {
		return QuoteIdentifier(b.Name), nil
	}
	return b.Source.Name + "." + QuoteIdentifier(b.Name), nil
}

func namedBinding(r *render.Renderer, b *sqlexpr.NamedBinding, depth int) (string, error) {
	s, err := r.Render(b.Expression, depth)
	if err != nil {
		return "", err
	}
	if isQuery(b.Expression) {
		s = "(" + s + ")"
	}
	return s + " AS " + QuoteIdentifier(b.Name), nil
}

func constant(_ *render.Renderer, c *sqlexpr.Constant, _ int) (string, error) {
	switch v := c.Value.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		return quoteLiteral(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	}
	return quoteLiteral(fmt.Sprint(c.Value)), nil
}

func parameter(_ *render.Renderer, p *sqlexpr.Parameter, _ int) (string, error) {
	return p.Name, nil
}

func queryParameter(r *render.Renderer, p *sqlexpr.QueryParameter, _ int) (string, error) {
	r.Emit(p)
	return "@" + p.Name, nil
}

func methodCall(r *render.Renderer, m *sqlexpr.MethodCall, depth int) (string, error) {
	args := m.Arguments
	if m.Source != nil {
		args = append([]sqlexpr.Expression{m.Source}, args...)
	}
	parts, err := r.RenderAll(args, depth)
	if err != nil {
		return "", err
	}
	return m.Name + "(" + strings.Join(parts, ", ") + ")", nil
}

func newNode(r *render.Renderer, n *sqlexpr.New, depth int) (string, error) {
	parts := make([]string, len(n.Bindings))
	for i, b := range n.Bindings {
		s, err := r.Render(b, depth)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

// list renders the items of an IN list. An empty list is NULL, which
// matches no row.
func list(r *render.Renderer, l *sqlexpr.List, depth int) (string, error) {
	if len(l.Items) == 0 {
		return "NULL", nil
	}
	parts, err := r.RenderAll(l.Items, depth)
	if err != nil {
		return "", err
	}
	return strings.Join(parts, ", "), nil
}

func special(_ *render.Renderer, s *sqlexpr.Special, _ int) (string, error) {
	return s.Text, nil
}

// jsonAttribute navigates with -> and reads the last attribute as text
// with ->>.
func jsonAttribute(r *render.Renderer, j *sqlexpr.JSONAttribute, depth int) (string, error) {
	s, err := r.Render(j.Source, depth)
	if err != nil {
		return "", err
	}
	if len(j.Path) == 0 {
		return "", fmt.Errorf("render json attribute: empty path")
	}
	var b strings.Builder
	b.WriteString(s)
	for i, name := range j.Path {
		if i == len(j.Path)-1 {
			b.WriteString(" ->> ")
		} else {
			b.WriteString(" -> ")
		}
		b.WriteString(quoteLiteral(name))
	}
	return b.String(), nil
}
