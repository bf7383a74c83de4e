package translate

import (
	"fmt"
	"reflect"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// visitGroupBy produces a two-query grouping. The keys query selects the
// distinct key set; the values query of each group is translated only
// once its key has been materialized.
func (c *Context) visitGroupBy(n *expr.Call) (err error) {
	key, err := lambdaArg(n, 1)
	if err != nil {
		return err
	}
	if len(key.Params) != 1 {
		return unsupported(key, "group key lambda with %d parameters", len(key.Params))
	}

	group := &sqlexpr.GroupBy{Item: expr.ItemType(n), KeyType: key.Body.Type()}
	scope := c.WithinScope(group)
	defer scope.Close(&err)

	keys := &sqlexpr.Projection{Item: group.KeyType, IsDistinct: true}
	err = func() (err error) {
		keyScope := c.WithinScope(keys)
		defer keyScope.Close(&err)

		if err = c.visit(n.Args[0]); err != nil {
			return err
		}
		return c.visitLambda(key, &keys.Source)
	}()
	if err != nil {
		return err
	}

	group.Values = c.shared.translator.valuesProducer(n.Args[0], key)
	return nil
}

// valuesProducer returns a function translating
//
//	source.Where(x => keySelector(x) == key)
//
// for a materialized key. Composite keys built with New compare member by
// member; nil key parts compare with IS NULL.
func (t *Translator) valuesProducer(source expr.Node, key *expr.Lambda) sqlexpr.ValuesProducer {
	return func(k any) (sqlexpr.Expression, error) {
		param := expr.Param(key.Params[0].Name, expr.ItemType(source))
		body := expr.Substitute(key.Body, key.Params[0], param)

		pred, err := keyPredicate(body, k)
		if err != nil {
			return nil, err
		}

		cmd, err := t.Translate(expr.Where(source, expr.Lambda(pred, param)))
		if err != nil {
			return nil, fmt.Errorf("translate group values: %w", err)
		}
		return cmd.Expression, nil
	}
}

func keyPredicate(body expr.Node, key any) (expr.Node, error) {
	composite, ok := body.(*expr.New)
	if !ok {
		return keyEquals(body, key, body.Type()), nil
	}

	v := reflect.ValueOf(key)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, unsupported(body, "nil composite group key")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, unsupported(body, "composite group key of type %T", key)
	}

	parts := make([]expr.Node, 0, len(composite.Members))
	for _, m := range composite.Members {
		f := v.FieldByName(m.Name)
		if !f.IsValid() {
			return nil, unsupported(body, "group key has no member %s", m.Name)
		}
		parts = append(parts, keyEquals(m.Value, f.Interface(), f.Type()))
	}
	if len(parts) == 0 {
		return nil, unsupported(body, "empty composite group key")
	}
	return expr.And(parts[0], parts[1:]...), nil
}

func keyEquals(n expr.Node, value any, t reflect.Type) expr.Node {
	if isNil(value) {
		return expr.IsNull(n)
	}
	return expr.Equal(n, expr.TypedConst(value, t))
}
