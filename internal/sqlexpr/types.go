package sqlexpr

import "reflect"

// Kind tags a node variant for static dispatch.
type Kind string

// Node kinds known to the core.
const (
	KindProjection     Kind = "Projection"
	KindFilter         Kind = "Filter"
	KindJoin           Kind = "Join"
	KindNamedSource    Kind = "NamedSource"
	KindQuerySource    Kind = "QuerySource"
	KindBinary         Kind = "Binary"
	KindUnary          Kind = "Unary"
	KindConditional    Kind = "Conditional"
	KindSimpleBinding  Kind = "SimpleBinding"
	KindNamedBinding   Kind = "NamedBinding"
	KindConstant       Kind = "Constant"
	KindParameter      Kind = "Parameter"
	KindQueryParameter Kind = "QueryParameter"
	KindMethodCall     Kind = "MethodCall"
	KindNew            Kind = "New"
	KindList           Kind = "List"
	KindSpecial        Kind = "Special"
	KindAssign         Kind = "Assign"
	KindJSONAttribute  Kind = "JSONAttribute"
	KindGroupBy        Kind = "GroupBy"
	KindOrderBy        Kind = "OrderBy"
	KindOrderByBinding Kind = "OrderByBinding"
	KindRowsFetchLimit Kind = "RowsFetchLimit"
	KindExplain        Kind = "Explain"
	KindInsert         Kind = "Insert"
	KindUpdate         Kind = "Update"
	KindDelete         Kind = "Delete"
)

// Kinds lists every kind defined in this package, in declaration order.
// Dialects use it to verify their registration table is complete.
func Kinds() []Kind {
	return []Kind{
		KindProjection, KindFilter, KindJoin, KindNamedSource, KindQuerySource,
		KindBinary, KindUnary, KindConditional, KindSimpleBinding, KindNamedBinding,
		KindConstant, KindParameter, KindQueryParameter, KindMethodCall, KindNew,
		KindList, KindSpecial, KindAssign, KindJSONAttribute, KindGroupBy,
		KindOrderBy, KindOrderByBinding, KindRowsFetchLimit, KindExplain,
		KindInsert, KindUpdate, KindDelete,
	}
}

// Expression is a node of the intermediate expression model.
//
// ItemType is the Go type a node yields. For row sources it is the row
// item type (for example *Order), for scalar nodes the value type.
type Expression interface {
	Kind() Kind
	ItemType() reflect.Type
}

// BinaryOperator enumerates the supported binary operators.
type BinaryOperator int

const (
	Equal BinaryOperator = iota
	NotEqual
	GreaterThanOrEqual
	GreaterThan
	LessThan
	LessThanOrEqual
	AndAlso
	OrElse
	ExclusiveOr
	Contains
	Like
	Add
	Subtract
	Divide
	Multiply
	Modulo
	Coalesce
)

var binaryOperatorNames = [...]string{
	Equal:              "Equal",
	NotEqual:           "NotEqual",
	GreaterThanOrEqual: "GreaterThanOrEqual",
	GreaterThan:        "GreaterThan",
	LessThan:           "LessThan",
	LessThanOrEqual:    "LessThanOrEqual",
	AndAlso:            "AndAlso",
	OrElse:             "OrElse",
	ExclusiveOr:        "ExclusiveOr",
	Contains:           "Contains",
	Like:               "Like",
	Add:                "Add",
	Subtract:           "Subtract",
	Divide:             "Divide",
	Multiply:           "Multiply",
	Modulo:             "Modulo",
	Coalesce:           "Coalesce",
}

func (o BinaryOperator) String() string {
	if o < 0 || int(o) >= len(binaryOperatorNames) {
		return "BinaryOperator(?)"
	}
	return binaryOperatorNames[o]
}

// Valid reports whether o is one of the declared operators.
func (o BinaryOperator) Valid() bool {
	return o >= Equal && o <= Coalesce
}

// BinaryOperators returns every declared binary operator.
func BinaryOperators() []BinaryOperator {
	ops := make([]BinaryOperator, 0, len(binaryOperatorNames))
	for op := Equal; op <= Coalesce; op++ {
		ops = append(ops, op)
	}
	return ops
}

// UnaryOperator enumerates the supported unary operators.
type UnaryOperator int

const (
	Not UnaryOperator = iota
	Negate
)

func (o UnaryOperator) String() string {
	switch o {
	case Not:
		return "Not"
	case Negate:
		return "Negate"
	default:
		return "UnaryOperator(?)"
	}
}

// OrderDirection is the sort direction of an ORDER BY binding.
type OrderDirection int

const (
	Ascending OrderDirection = iota
	Descending
)

func (d OrderDirection) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// InsertBehavior selects how an INSERT reacts to key conflicts.
type InsertBehavior int

const (
	// InsertDefault fails the statement on conflict.
	InsertDefault InsertBehavior = iota
	// InsertDoNothing skips conflicting rows (ON CONFLICT DO NOTHING).
	InsertDoNothing
)

// ValuesProducer builds the values query of one group once its key has
// been materialized.
type ValuesProducer func(key any) (Expression, error)
