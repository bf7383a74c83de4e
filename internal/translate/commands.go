package translate

import (
	"fmt"
	"reflect"

	"github.com/goccy/go-json"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// isCommand reports whether the operator chain of n starts at Update or
// Delete.
func isCommand(n *expr.Call) bool {
	for {
		if n.Method.Matches(expr.MethodUpdate) || n.Method.Matches(expr.MethodDelete) {
			return true
		}
		if n.Method.Declaring != expr.QueryableType || len(n.Args) == 0 {
			return false
		}
		next, ok := n.Args[0].(*expr.Call)
		if !ok {
			return false
		}
		n = next
	}
}

// translateCommand translates Update(...).Set(...).Where(...) and
// Delete(...).Where(...) chains.
func (c *Context) translateCommand(n *expr.Call) (sqlexpr.Expression, error) {
	var sets, wheres []*expr.Lambda
	root := n

chain:
	for {
		switch {
		case root.Method.Matches(expr.MethodUpdate), root.Method.Matches(expr.MethodDelete):
			break chain
		case root.Method.Matches(expr.MethodSet):
			l, err := lambdaArg(root, 1)
			if err != nil {
				return nil, err
			}
			sets = append([]*expr.Lambda{l}, sets...)
		case root.Method.Matches(expr.MethodWhere):
			l, err := lambdaArg(root, 1)
			if err != nil {
				return nil, err
			}
			wheres = append([]*expr.Lambda{l}, wheres...)
		case root.Method.Matches(expr.MethodCachedExpression):
			if key, ok := root.Args[1].(*expr.Constant); ok {
				if s, ok := key.Value.(string); ok && c.shared.cacheKey == "" {
					c.shared.cacheKey = s
				}
			}
		default:
			return nil, unsupported(root, "%s cannot be part of a command", root.Method.Name)
		}
		root = root.Args[0].(*expr.Call)
	}

	item := expr.ItemType(root)
	table, err := c.Models().Table(item)
	if err != nil {
		return nil, unknownEntity(root, err)
	}
	source := c.querySource(item, table)

	var node sqlexpr.Expression
	if root.Method.Matches(expr.MethodUpdate) {
		if len(sets) == 0 {
			return nil, unsupported(n, "update without Set")
		}
		node = &sqlexpr.Update{Item: item, Source: source}
	} else {
		if len(sets) != 0 {
			return nil, unsupported(n, "delete cannot Set columns")
		}
		node = &sqlexpr.Delete{Item: item, Source: source}
	}

	b := &binding{alias: source.Parameter, table: table}
	err = func() (err error) {
		scope := c.WithinScope(node)
		defer scope.Close(&err)

		for _, l := range sets {
			if call, ok := l.Body.(*expr.Call); !ok || !call.Method.Matches(expr.FuncAssign) {
				return unsupported(l, "Set body must be an Assign call")
			}
			if err = c.visitCommandLambda(l, b); err != nil {
				return err
			}
		}
		for _, l := range wheres {
			if err = c.visitCommandLambda(l, b); err != nil {
				return err
			}
		}
		return nil
	}()
	if err != nil {
		return nil, err
	}

	if v := sqlexpr.Validate(c.result); !v.Valid {
		return nil, unresolved("invalid %s: %v", c.result.Kind(), v.Problems)
	}
	return c.result, nil
}

func (c *Context) visitCommandLambda(l *expr.Lambda, b *binding) error {
	if len(l.Params) != 1 {
		return unsupported(l, "lambda with %d parameters", len(l.Params))
	}
	c.shared.bindings[l.Params[0]] = b
	return c.visit(l.Body)
}

// TranslateInsert builds INSERT commands for entities, which must all be
// of the same entity type. Many-to-many collections produce one extra
// command per join table.
func (t *Translator) TranslateInsert(behavior sqlexpr.InsertBehavior, entities ...any) ([]*Command, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	typ := reflect.TypeOf(entities[0])
	table, err := t.models.Table(typ)
	if err != nil {
		return nil, &Error{Code: ErrCodeUnknownEntity, Message: err.Error()}
	}

	c := newContext(t)
	insert := &sqlexpr.Insert{
		Item:     typ,
		Table:    &sqlexpr.QuerySource{Item: typ, Schema: table.Schema, Table: table.Name},
		Columns:  table.ColumnNames(),
		Behavior: behavior,
	}

	joins := map[*model.Relation]*sqlexpr.Insert{}
	joinCtx := map[*model.Relation]*Context{}

	for _, entity := range entities {
		v := reflect.ValueOf(entity)
		if v.Type() != typ {
			return nil, &Error{Code: ErrCodeUnsupportedExpression,
				Message: fmt.Sprintf("insert mixes %v and %v", typ, v.Type())}
		}
		if v.IsNil() {
			return nil, &Error{Code: ErrCodeUnsupportedExpression, Message: "insert of nil entity"}
		}
		row := v.Elem()

		values := make([]sqlexpr.Expression, len(table.Columns))
		for i, col := range table.Columns {
			value, err := t.storedValue(col, row.FieldByIndex(col.Index))
			if err != nil {
				return nil, err
			}
			values[i] = c.NextParameter(value, col.Type)
		}
		insert.Values = append(insert.Values, values)

		owner := row.FieldByIndex(table.PrimaryKey.Index).Interface()
		for _, rel := range table.Collections() {
			items := row.FieldByIndex(rel.Index)
			if items.Len() == 0 {
				continue
			}
			target, err := t.models.Table(rel.Target)
			if err != nil {
				return nil, &Error{Code: ErrCodeUnknownEntity, Message: err.Error()}
			}
			join, ok := joins[rel]
			if !ok {
				join = &sqlexpr.Insert{
					Item:     rel.Join.Type,
					Table:    &sqlexpr.QuerySource{Item: rel.Join.Type, Schema: rel.Join.Schema, Table: rel.Join.Name},
					Columns:  rel.Join.ColumnNames(),
					Behavior: behavior,
				}
				joins[rel] = join
				joinCtx[rel] = newContext(t)
			}
			jc := joinCtx[rel]
			for i := 0; i < items.Len(); i++ {
				item := items.Index(i)
				if item.IsNil() {
					continue
				}
				key := item.Elem().FieldByIndex(target.PrimaryKey.Index).Interface()
				join.Values = append(join.Values, []sqlexpr.Expression{
					jc.NextParameter(owner, table.PrimaryKey.Type),
					jc.NextParameter(key, target.PrimaryKey.Type),
				})
			}
		}
	}

	commands := []*Command{{Expression: insert, Parameters: c.shared.params}}
	for _, rel := range table.Collections() {
		if join, ok := joins[rel]; ok && len(join.Values) > 0 {
			commands = append(commands, &Command{Expression: join, Parameters: joinCtx[rel].shared.params})
		}
	}
	return commands, nil
}

// storedValue converts a field value into its column representation:
// relations store the referenced primary key, flags are split into the
// array of set bits and JSON columns are encoded as documents.
func (t *Translator) storedValue(col *model.Column, field reflect.Value) (any, error) {
	switch col.Kind {
	case model.ColumnRelation:
		if field.IsNil() {
			return nil, nil
		}
		target, err := t.models.Table(col.Relation.Target)
		if err != nil {
			return nil, &Error{Code: ErrCodeUnknownEntity, Message: err.Error()}
		}
		return field.Elem().FieldByIndex(target.PrimaryKey.Index).Interface(), nil

	case model.ColumnFlags:
		return FlagValues(field), nil

	case model.ColumnJSON:
		if field.Kind() == reflect.Pointer && field.IsNil() {
			return nil, nil
		}
		doc, err := json.Marshal(field.Interface())
		if err != nil {
			return nil, fmt.Errorf("encode column %s: %w", col.Name, err)
		}
		return string(doc), nil
	}

	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return nil, nil
		}
		return field.Elem().Interface(), nil
	}
	return field.Interface(), nil
}

// FlagValues splits an integer flags value into its set bits.
func FlagValues(v reflect.Value) []int64 {
	var bits uint64
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits = uint64(v.Int())
	default:
		bits = v.Uint()
	}
	out := []int64{}
	for i := 0; i < 64; i++ {
		if bits&(1<<i) != 0 {
			out = append(out, int64(1)<<i)
		}
	}
	return out
}
