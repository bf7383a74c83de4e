// Package sqlexpr provides the database-agnostic intermediate expression
// model that sits between host query expressions and dialect SQL text.
//
// ARCHITECTURE:
//
//	[expr tree] → [translate] → [sqlexpr tree] → [render/postgres] → SQL text
//
// Every node reports its Kind, a static tag the renderer dispatches on
// through a registration table, and its ItemType, the Go type of the
// values the node produces (rows for sources, scalars for operators).
//
// NODE FAMILIES:
//
//   - Sources: Projection, Filter, Join, NamedSource, QuerySource
//   - Scalars: Binary, Unary, Conditional, SimpleBinding, NamedBinding,
//     Constant, Parameter, QueryParameter, MethodCall, New, List, Special,
//     JSONAttribute
//   - Query shape: GroupBy, OrderBy, OrderByBinding, RowsFetchLimit, Explain
//   - Commands: Insert, Update, Delete, Assign
//
// The node set is open: a dialect may add its own kinds as long as it
// registers a renderer for them. Fields are exported so the translator can
// build nodes incrementally while a scope is still open.
package sqlexpr
