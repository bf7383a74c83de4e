package expr

import "reflect"

// Declaring type names of the built-in descriptors.
const (
	QueryableType = "query.Queryable"
	SQLType       = "sqlfn"
)

// Query operator descriptors. The first argument of every operator except
// All, Update and Delete is its source sequence.
var (
	MethodAll                = MemberInfo{Declaring: QueryableType, Name: "All", Arity: 0}
	MethodWhere              = MemberInfo{Declaring: QueryableType, Name: "Where", Arity: 2}
	MethodSelect             = MemberInfo{Declaring: QueryableType, Name: "Select", Arity: 2}
	MethodGroupBy            = MemberInfo{Declaring: QueryableType, Name: "GroupBy", Arity: 2}
	MethodOrderBy            = MemberInfo{Declaring: QueryableType, Name: "OrderBy", Arity: 2}
	MethodOrderByDescending  = MemberInfo{Declaring: QueryableType, Name: "OrderByDescending", Arity: 2}
	MethodThenBy             = MemberInfo{Declaring: QueryableType, Name: "ThenBy", Arity: 2}
	MethodThenByDescending   = MemberInfo{Declaring: QueryableType, Name: "ThenByDescending", Arity: 2}
	MethodTake               = MemberInfo{Declaring: QueryableType, Name: "Take", Arity: 2}
	MethodDistinct           = MemberInfo{Declaring: QueryableType, Name: "Distinct", Arity: 1}
	MethodCachedExpression   = MemberInfo{Declaring: QueryableType, Name: "CachedExpression", Arity: 2}
	MethodExplain            = MemberInfo{Declaring: QueryableType, Name: "Explain", Arity: 2}
	MethodUpdate             = MemberInfo{Declaring: QueryableType, Name: "Update", Arity: 0}
	MethodSet                = MemberInfo{Declaring: QueryableType, Name: "Set", Arity: 2}
	MethodDelete             = MemberInfo{Declaring: QueryableType, Name: "Delete", Arity: 0}
)

// SQL helper descriptors.
var (
	FuncLike          = MemberInfo{Declaring: SQLType, Name: "Like", Arity: 2}
	FuncIsNull        = MemberInfo{Declaring: SQLType, Name: "IsNull", Arity: 1}
	FuncIsNotNull     = MemberInfo{Declaring: SQLType, Name: "IsNotNull", Arity: 1}
	FuncIn            = MemberInfo{Declaring: SQLType, Name: "In", Arity: 2}
	FuncAssign        = MemberInfo{Declaring: SQLType, Name: "Assign", Arity: 2}
	FuncJSONAttribute = MemberInfo{Declaring: SQLType, Name: "JSONAttribute", Arity: 2}
)

// All is the full sequence of entities of item type.
func All(item reflect.Type) *Call {
	return MakeCall(MethodAll, reflect.SliceOf(item))
}

// Where filters source by predicate.
func Where(source Node, predicate *Lambda) *Call {
	return MakeCall(MethodWhere, source.Type(), source, predicate)
}

// Select projects every item of source through selector.
func Select(source Node, selector *Lambda) *Call {
	return MakeCall(MethodSelect, reflect.SliceOf(selector.Body.Type()), source, selector)
}

// GroupBy groups source by key. grouping is the item type of the result.
func GroupBy(source Node, key *Lambda, grouping reflect.Type) *Call {
	return MakeCall(MethodGroupBy, reflect.SliceOf(grouping), source, key)
}

func OrderBy(source Node, key *Lambda) *Call {
	return MakeCall(MethodOrderBy, source.Type(), source, key)
}

func OrderByDescending(source Node, key *Lambda) *Call {
	return MakeCall(MethodOrderByDescending, source.Type(), source, key)
}

func ThenBy(source Node, key *Lambda) *Call {
	return MakeCall(MethodThenBy, source.Type(), source, key)
}

func ThenByDescending(source Node, key *Lambda) *Call {
	return MakeCall(MethodThenByDescending, source.Type(), source, key)
}

// Take limits source to n rows.
func Take(source Node, n int) *Call {
	return MakeCall(MethodTake, source.Type(), source, Const(n))
}

func Distinct(source Node) *Call {
	return MakeCall(MethodDistinct, source.Type(), source)
}

// CachedExpression tags source with a cache key.
func CachedExpression(source Node, key string) *Call {
	return MakeCall(MethodCachedExpression, source.Type(), source, Const(key))
}

// Explain requests the execution plan of source.
func Explain(source Node, analyze bool) *Call {
	return MakeCall(MethodExplain, reflect.TypeFor[string](), source, Const(analyze))
}

// Update starts an update command over entities of item type.
func Update(item reflect.Type) *Call {
	return MakeCall(MethodUpdate, reflect.SliceOf(item))
}

// Set adds an assignment to an update command. The lambda body must be an
// Assign call.
func Set(source Node, assignment *Lambda) *Call {
	return MakeCall(MethodSet, source.Type(), source, assignment)
}

// Delete starts a delete command over entities of item type.
func Delete(item reflect.Type) *Call {
	return MakeCall(MethodDelete, reflect.SliceOf(item))
}

// Like matches source against a SQL LIKE pattern.
func Like(source, pattern Node) *Call {
	return MakeCall(FuncLike, boolType, source, pattern)
}

func IsNull(operand Node) *Call {
	return MakeCall(FuncIsNull, boolType, operand)
}

func IsNotNull(operand Node) *Call {
	return MakeCall(FuncIsNotNull, boolType, operand)
}

// In tests membership of value in collection, a slice constant or a
// sequence query.
func In(value, collection Node) *Call {
	return MakeCall(FuncIn, boolType, value, collection)
}

// Assign sets member to value inside an update command.
func Assign(member, value Node) *Call {
	return MakeCall(FuncAssign, member.Type(), member, value)
}

// JSONAttribute reads attribute name of a JSON column as text. Nested
// calls address nested attributes.
func JSONAttribute(source Node, name string) *Call {
	return MakeCall(FuncJSONAttribute, reflect.TypeFor[string](), source, Const(name))
}
