// Package postgres registers the PostgreSQL translators of every core
// expression kind.
package postgres

import (
	"strings"

	"github.com/warning-explosive/Core-sub004/internal/render"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// Operators is the SQL text of each infix binary operator. Coalesce is
// absent because it renders as a function call.
var Operators = map[sqlexpr.BinaryOperator]string{
	sqlexpr.Equal:              "=",
	sqlexpr.NotEqual:           "!=",
	sqlexpr.GreaterThanOrEqual: ">=",
	sqlexpr.GreaterThan:        ">",
	sqlexpr.LessThan:           "<",
	sqlexpr.LessThanOrEqual:    "<=",
	sqlexpr.AndAlso:            "AND",
	sqlexpr.OrElse:             "OR",
	sqlexpr.ExclusiveOr:        "XOR",
	sqlexpr.Contains:           "IN",
	sqlexpr.Like:               "LIKE",
	sqlexpr.Add:                "+",
	sqlexpr.Subtract:           "-",
	sqlexpr.Divide:             "/",
	sqlexpr.Multiply:           "*",
	sqlexpr.Modulo:             "%",
}

// New returns a composite with every PostgreSQL translator registered.
func New() *render.Composite {
	c := render.NewComposite()
	Register(c)
	return c
}

// Register adds the PostgreSQL translators to c.
func Register(c *render.Composite) {
	// Queries
	c.Register(sqlexpr.KindProjection, render.Typed(projection))
	c.Register(sqlexpr.KindFilter, render.Typed(filter))
	c.Register(sqlexpr.KindJoin, render.Typed(join))
	c.Register(sqlexpr.KindNamedSource, render.Typed(namedSource))
	c.Register(sqlexpr.KindQuerySource, render.Typed(querySource))
	c.Register(sqlexpr.KindGroupBy, render.Typed(groupBy))
	c.Register(sqlexpr.KindOrderBy, render.Typed(orderBy))
	c.Register(sqlexpr.KindOrderByBinding, render.Typed(orderByBinding))
	c.Register(sqlexpr.KindRowsFetchLimit, render.Typed(rowsFetchLimit))
	c.Register(sqlexpr.KindExplain, render.Typed(explain))

	// Scalars
	c.Register(sqlexpr.KindBinary, render.Typed(binary))
	c.Register(sqlexpr.KindUnary, render.Typed(unary))
	c.Register(sqlexpr.KindConditional, render.Typed(conditional))
	c.Register(sqlexpr.KindSimpleBinding, render.Typed(simpleBinding))
	c.Register(sqlexpr.KindNamedBinding, render.Typed(namedBinding))
	c.Register(sqlexpr.KindConstant, render.Typed(constant))
	c.Register(sqlexpr.KindParameter, render.Typed(parameter))
	c.Register(sqlexpr.KindQueryParameter, render.Typed(queryParameter))
	c.Register(sqlexpr.KindMethodCall, render.Typed(methodCall))
	c.Register(sqlexpr.KindNew, render.Typed(newNode))
	c.Register(sqlexpr.KindList, render.Typed(list))
	c.Register(sqlexpr.KindSpecial, render.Typed(special))
	c.Register(sqlexpr.KindJSONAttribute, render.Typed(jsonAttribute))

	// Commands
	c.Register(sqlexpr.KindInsert, render.Typed(insert))
	c.Register(sqlexpr.KindUpdate, render.Typed(update))
	c.Register(sqlexpr.KindDelete, render.Typed(deleteCommand))
	c.Register(sqlexpr.KindAssign, render.Typed(assign))
}

// QuoteIdentifier double-quotes name, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral single-quotes s, doubling embedded quotes.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func qualified(schema, table string) string {
	if schema == "" {
		return QuoteIdentifier(table)
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(table)
}
