// Package expr provides the host query expression tree.
//
// Queries are built as trees of explicit nodes rather than compiled
// closures so that they can be inspected and translated to SQL:
//
//	orders := expr.All(reflect.TypeFor[*Order]())
//	q := expr.Where(orders, expr.Func(reflect.TypeFor[*Order](), func(o *expr.Parameter) expr.Node {
//	    return expr.Equal(expr.Field(o, "CustomerID"), expr.Const(int64(5)))
//	}))
//
// Query operators and SQL helpers are Call nodes identified by a
// MemberInfo descriptor. Translators recognize calls by descriptor, never
// by invoking anything.
//
// Sequence-valued nodes have a slice type whose element is the item type,
// so the item of All(*Order) is *Order and its node type is []*Order.
package expr
