package expr

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Customer struct {
	ID   int64
	Name string
}

type Order struct {
	ID         int64
	CustomerID int64
	Customer   *Customer
}

var orderType = reflect.TypeFor[*Order]()

func TestField_ResolvesThroughPointers(t *testing.T) {
	o := Param("o", orderType)

	m := Field(Field(o, "Customer"), "Name")

	require.True(t, m.Resolved())
	assert.Equal(t, reflect.TypeFor[string](), m.Type())
	assert.Equal(t, MemberInfo{Declaring: "Customer", Name: "Name"}, m.Info())
}

func TestField_Unknown(t *testing.T) {
	o := Param("o", orderType)

	m := Field(o, "Missing")

	assert.False(t, m.Resolved())
	assert.Nil(t, m.Type())
}

func TestQueryOperators_Types(t *testing.T) {
	all := All(orderType)
	assert.Equal(t, reflect.SliceOf(orderType), all.Type())
	assert.Equal(t, orderType, ItemType(all))

	where := Where(all, Func(orderType, func(o *Parameter) Node {
		return Equal(Field(o, "CustomerID"), Const(int64(5)))
	}))
	assert.Equal(t, orderType, ItemType(where))

	sel := Select(where, Func(orderType, func(o *Parameter) Node { return Field(o, "ID") }))
	assert.Equal(t, reflect.TypeFor[int64](), ItemType(sel))

	assert.Equal(t, reflect.TypeFor[string](), Explain(sel, true).Type())
}

func TestFunc_ParameterName(t *testing.T) {
	l := Func(orderType, func(p *Parameter) Node { return p })

	require.Len(t, l.Params, 1)
	assert.Equal(t, "o", l.Params[0].Name)
	assert.Same(t, l.Params[0], l.Body)
}

func TestString(t *testing.T) {
	q := CachedExpression(
		Where(All(orderType), Func(orderType, func(o *Parameter) Node {
			return And(
				Equal(Field(o, "CustomerID"), Const(int64(5))),
				Like(Field(Field(o, "Customer"), "Name"), Const("%a%")),
			)
		})),
		"x",
	)

	assert.Equal(t,
		`All[Order]().Where(o => ((o.CustomerID == 5) && Like(o.Customer.Name, "%a%"))).CachedExpression("x")`,
		String(q))
}

func TestSubstitute(t *testing.T) {
	o := Param("o", orderType)
	body := Equal(Field(o, "CustomerID"), Const(int64(5)))
	untouched := Const(int64(1))

	replacement := Param("x", orderType)
	out := Substitute(And(body, untouched), o, replacement)

	bin, ok := out.(*Binary)
	require.True(t, ok)
	assert.Same(t, untouched, bin.Right, "subtrees without the parameter are shared")
	assert.Equal(t, "((x.CustomerID == 5) && 1)", String(out))
	assert.Equal(t, "(o.CustomerID == 5)", String(body), "input is not mutated")
}

func TestMemberInfo_Matches(t *testing.T) {
	assert.True(t, MethodWhere.Matches(MemberInfo{Declaring: QueryableType, Name: "Where", Arity: 2}))
	assert.False(t, MethodWhere.Matches(MethodSelect))
	assert.False(t, FuncIsNull.Matches(MemberInfo{Declaring: SQLType, Name: "IsNull", Arity: 2}))
}
