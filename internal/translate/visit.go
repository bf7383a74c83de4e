package translate

import (
	"reflect"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

var binaryOperators = map[expr.BinaryOp]sqlexpr.BinaryOperator{
	expr.OpEqual:              sqlexpr.Equal,
	expr.OpNotEqual:           sqlexpr.NotEqual,
	expr.OpGreaterThan:        sqlexpr.GreaterThan,
	expr.OpGreaterThanOrEqual: sqlexpr.GreaterThanOrEqual,
	expr.OpLessThan:           sqlexpr.LessThan,
	expr.OpLessThanOrEqual:    sqlexpr.LessThanOrEqual,
	expr.OpAndAlso:            sqlexpr.AndAlso,
	expr.OpOrElse:             sqlexpr.OrElse,
	expr.OpExclusiveOr:        sqlexpr.ExclusiveOr,
	expr.OpAdd:                sqlexpr.Add,
	expr.OpSubtract:           sqlexpr.Subtract,
	expr.OpMultiply:           sqlexpr.Multiply,
	expr.OpDivide:             sqlexpr.Divide,
	expr.OpModulo:             sqlexpr.Modulo,
	expr.OpCoalesce:           sqlexpr.Coalesce,
}

var unaryOperators = map[expr.UnaryOp]sqlexpr.UnaryOperator{
	expr.OpNot:    sqlexpr.Not,
	expr.OpNegate: sqlexpr.Negate,
}

// visit translates n and applies the result to the innermost scope.
func (c *Context) visit(n expr.Node) error {
	switch n := n.(type) {
	case *expr.Call:
		return c.visitCall(n)
	case *expr.Binary:
		return c.visitBinary(n)
	case *expr.Unary:
		return c.visitUnary(n)
	case *expr.Conditional:
		return c.visitConditional(n)
	case *expr.Member:
		return c.visitMember(n)
	case *expr.Parameter:
		return c.visitParameter(n)
	case *expr.Constant:
		return c.visitConstant(n)
	case *expr.New:
		return c.visitNew(n)
	case *expr.Lambda:
		return unsupported(n, "lambda outside of a query operator")
	case nil:
		return unresolved("nil expression")
	}
	return unsupported(n, "unknown node %T", n)
}

func (c *Context) visitBinary(n *expr.Binary) (err error) {
	op, ok := binaryOperators[n.Op]
	if !ok {
		return unsupported(n, "binary operator %s", n.Op)
	}

	scope := c.WithinScope(&sqlexpr.Binary{Item: n.Type(), Operator: op})
	defer scope.Close(&err)

	if err = c.visit(n.Left); err != nil {
		return err
	}
	return c.visit(n.Right)
}

func (c *Context) visitUnary(n *expr.Unary) (err error) {
	op, ok := unaryOperators[n.Op]
	if !ok {
		return unsupported(n, "unary operator %s", n.Op)
	}

	scope := c.WithinScope(&sqlexpr.Unary{Item: n.Type(), Operator: op})
	defer scope.Close(&err)

	return c.visit(n.Operand)
}

func (c *Context) visitConditional(n *expr.Conditional) (err error) {
	scope := c.WithinScope(&sqlexpr.Conditional{Item: n.Type()})
	defer scope.Close(&err)

	for _, part := range []expr.Node{n.Test, n.IfTrue, n.IfFalse} {
		if err = c.visit(part); err != nil {
			return err
		}
	}
	return nil
}

// visitNew translates every member in a detached context so that member
// translations never see the New node as their scope; only the assembled
// node is applied.
func (c *Context) visitNew(n *expr.New) error {
	node := &sqlexpr.New{Item: n.Type()}

	for _, m := range n.Members {
		d := c.detached()
		nb := &sqlexpr.NamedBinding{Name: memberColumn(n.Type(), m.Name)}

		err := func() (err error) {
			scope := d.WithinScope(nb)
			defer scope.Close(&err)
			return d.visit(m.Value)
		}()
		if err != nil {
			return err
		}
		node.Bindings = append(node.Bindings, nb)
	}

	return c.Apply(node)
}

// memberColumn is the output column a New member binds to.
func memberColumn(t reflect.Type, member string) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(member); ok {
			return model.ColumnName(f)
		}
	}
	return member
}

func (c *Context) visitConstant(n *expr.Constant) error {
	value := n.Value

	// Entities compare by primary key.
	if table := c.entityTable(n.Type()); table != nil && !isNil(value) {
		value = reflect.ValueOf(value).Elem().FieldByIndex(table.PrimaryKey.Index).Interface()
		return c.Apply(c.NextParameter(value, table.PrimaryKey.Type))
	}

	if b, ok := c.Top().(*sqlexpr.Binary); ok && b.Operator == sqlexpr.Contains && b.Left != nil && b.Right == nil {
		if rv := reflect.ValueOf(value); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			list := &sqlexpr.List{Item: n.Type()}
			for i := 0; i < rv.Len(); i++ {
				list.Items = append(list.Items, c.NextParameter(rv.Index(i).Interface(), rv.Type().Elem()))
			}
			return c.Apply(list)
		}
	}

	return c.Apply(c.NextParameter(value, n.Type()))
}

func (c *Context) entityTable(t reflect.Type) *model.Table {
	if !c.Models().IsEntity(t) {
		return nil
	}
	return c.tableFor(t)
}

func (c *Context) visitParameter(n *expr.Parameter) error {
	b, ok := c.shared.bindings[n]
	if !ok {
		return unresolved("parameter %s is not bound to a source", n.Name)
	}

	if b.projection != nil {
		if len(b.projection.Bindings) != 1 {
			return unsupported(n, "projected row with %d columns used as a value", len(b.projection.Bindings))
		}
		return c.Apply(unwrapBinding(b.projection.Bindings[0]))
	}

	if _, projecting := c.Top().(*sqlexpr.Projection); projecting || b.table == nil {
		return c.Apply(b.alias)
	}
	// An entity used as a value stands for its primary key.
	return c.Apply(&sqlexpr.SimpleBinding{Item: b.table.PrimaryKey.Type, Source: b.alias, Name: b.table.PrimaryKey.Name})
}

func unwrapBinding(e sqlexpr.Expression) sqlexpr.Expression {
	if nb, ok := e.(*sqlexpr.NamedBinding); ok {
		return nb.Expression
	}
	return e
}

func (c *Context) visitMember(m *expr.Member) error {
	if !m.Resolved() {
		return unsupportedMember(m, m.Info())
	}

	if handled, err := c.recognize(m, m.Info()); handled || err != nil {
		return err
	}

	// Members of captured values are evaluated on the host.
	if v, ok := evaluate(m); ok {
		return c.visitConstant(expr.TypedConst(v, m.Type()))
	}

	owner, err := c.resolveOwner(m.Target)
	if err != nil {
		return err
	}

	if owner.projection != nil {
		name := model.ColumnName(m.Field)
		for _, b := range owner.projection.Bindings {
			if outputName(b) == name {
				return c.Apply(unwrapBinding(b))
			}
		}
		return unsupported(m, "projection has no column %q", name)
	}

	if owner.table == nil {
		return c.Apply(&sqlexpr.SimpleBinding{Item: m.Type(), Source: owner.alias, Name: model.ColumnName(m.Field)})
	}

	col, ok := owner.table.ColumnByField(m.Name)
	if !ok {
		if rel, isRel := owner.table.Relation(m.Name); isRel && rel.Multiple {
			return unsupported(m, "collection %s can only be materialized, not queried", m.Name)
		}
		return unsupportedMember(m, m.Info())
	}
	return c.Apply(&sqlexpr.SimpleBinding{Item: col.Type, Source: owner.alias, Name: col.Name})
}

func outputName(e sqlexpr.Expression) string {
	switch b := e.(type) {
	case *sqlexpr.NamedBinding:
		return b.Name
	case *sqlexpr.SimpleBinding:
		return b.Name
	}
	return ""
}

// resolveOwner returns the binding whose columns a member chain reads.
// Intermediate to-one relations become joins.
func (c *Context) resolveOwner(n expr.Node) (*binding, error) {
	switch n := n.(type) {
	case *expr.Parameter:
		b, ok := c.shared.bindings[n]
		if !ok {
			return nil, unresolved("parameter %s is not bound to a source", n.Name)
		}
		return b, nil
	case *expr.Member:
		parent, err := c.resolveOwner(n.Target)
		if err != nil {
			return nil, err
		}
		if parent.table == nil {
			return nil, unsupported(n, "member %s does not navigate to an entity", n.Name)
		}
		rel, ok := parent.table.Relation(n.Name)
		if !ok || rel.Multiple {
			return nil, unsupported(n, "member %s is not a to-one relation", n.Name)
		}
		return c.join(parent, rel, n)
	}
	return nil, unsupported(n, "member access on %T", n)
}

// join attaches one inner join per (alias, relation) to the owner's source.
func (c *Context) join(owner *binding, rel *model.Relation, n expr.Node) (*binding, error) {
	key := joinKey{alias: owner.alias, relation: rel}
	if b, ok := c.shared.joins[key]; ok {
		return b, nil
	}
	if owner.holder == nil {
		return nil, unsupported(n, "relation %s cannot be navigated here", rel.Field)
	}

	target, err := c.Models().Table(rel.Target)
	if err != nil {
		return nil, unknownEntity(n, err)
	}

	right := c.querySource(rel.Target, target)
	left := *owner.holder
	*owner.holder = &sqlexpr.Join{
		Item:  left.ItemType(),
		Left:  left,
		Right: right,
		On: &sqlexpr.Binary{
			Operator: sqlexpr.Equal,
			Left:     &sqlexpr.SimpleBinding{Source: owner.alias, Name: rel.Column},
			Right:    &sqlexpr.SimpleBinding{Source: right.Parameter, Name: target.PrimaryKey.Name},
		},
	}

	b := &binding{alias: right.Parameter, table: target, holder: owner.holder}
	c.shared.joins[key] = b
	return b, nil
}

// evaluate resolves a member chain rooted at a constant.
func evaluate(n expr.Node) (any, bool) {
	v, ok := evaluateValue(n)
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

func evaluateValue(n expr.Node) (reflect.Value, bool) {
	switch n := n.(type) {
	case *expr.Constant:
		if n.Value == nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(n.Value), true
	case *expr.Member:
		v, ok := evaluateValue(n.Target)
		if !ok {
			return reflect.Value{}, false
		}
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, false
		}
		return v.FieldByIndex(n.Field.Index), true
	}
	return reflect.Value{}, false
}
