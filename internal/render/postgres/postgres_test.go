package postgres

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/render"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
	"github.com/warning-explosive/Core-sub004/internal/testutil"
	"github.com/warning-explosive/Core-sub004/internal/translate"
)

type Customer struct {
	ID   int64 `orm:"Id,pk"`
	Name string
}

type Order struct {
	ID       int64 `orm:"Id,pk"`
	Customer *Customer
	Total    float64
	Version  int64 `orm:"Version,version"`
}

var (
	orderType    = reflect.TypeFor[*Order]()
	customerType = reflect.TypeFor[*Customer]()
)

func translateAndRender(t *testing.T, n expr.Node) *render.Command {
	t.Helper()

	cmd, err := translate.New(model.NewProvider("public")).Translate(n)
	require.NoError(t, err)

	out, err := New().Render(cmd.Expression)
	require.NoError(t, err)
	return out
}

func orderField(name string) *expr.Lambda {
	return expr.Func(orderType, func(o *expr.Parameter) expr.Node { return expr.Field(o, name) })
}

func totalAbove(v float64) *expr.Lambda {
	return expr.Func(orderType, func(o *expr.Parameter) expr.Node {
		return expr.GreaterThan(expr.Field(o, "Total"), expr.Const(v))
	})
}

func TestRegister_CoversEveryKind(t *testing.T) {
	c := New()
	assert.Empty(t, c.Missing())
	assert.NoError(t, c.Verify())
}

func TestRender_Golden(t *testing.T) {
	tests := []struct {
		name   string
		node   expr.Node
		params []any
	}{
		{
			name: "where_join",
			node: expr.Where(expr.All(orderType), expr.Func(orderType, func(o *expr.Parameter) expr.Node {
				return expr.And(
					expr.Equal(expr.Field(expr.Field(o, "Customer"), "Name"), expr.Const("bob")),
					expr.GreaterThan(expr.Field(o, "Total"), expr.Const(10.0)),
				)
			})),
			params: []any{"bob", 10.0},
		},
		{
			name: "order_take",
			node: expr.Take(
				expr.ThenBy(expr.OrderByDescending(expr.Where(expr.All(orderType), totalAbove(10)), orderField("Total")), orderField("ID")),
				5),
			params: []any{10.0},
		},
		{
			name:   "where_after_take",
			node:   expr.Where(expr.Take(expr.All(orderType), 10), totalAbove(1)),
			params: []any{1.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := translateAndRender(t, tt.node)
			testutil.AssertGoldenSQL(t, tt.name, out.Text)

			values := make([]any, len(out.Parameters))
			for i, p := range out.Parameters {
				values[i] = p.Value
			}
			assert.Equal(t, tt.params, values)
		})
	}
}

func TestRender_UpdateGolden(t *testing.T) {
	q := expr.Where(
		expr.Set(expr.Update(orderType), expr.Func(orderType, func(o *expr.Parameter) expr.Node {
			return expr.Assign(expr.Field(o, "Total"), expr.Const(99.5))
		})),
		expr.Func(orderType, func(o *expr.Parameter) expr.Node {
			return expr.Equal(expr.Field(o, "Customer"), expr.TypedConst(nil, customerType))
		}),
	)

	cmd, err := translate.New(model.NewProvider("public")).Translate(q)
	require.NoError(t, err)

	u := cmd.Expression.(*sqlexpr.Update)
	version := cmd.AddParameter(int64(4), reflect.TypeFor[int64]())
	u.Assignments = append(u.Assignments, &sqlexpr.Assign{
		Left:  &sqlexpr.SimpleBinding{Source: u.Source.Parameter, Name: "Version"},
		Right: version,
	})

	out, err := New().Render(u)
	require.NoError(t, err)
	testutil.AssertGoldenSQL(t, "update_set_version", out.Text)
	assert.Equal(t, map[string]any{"param_0": 99.5, "param_1": int64(4)}, out.Args())
}

func TestRender_InsertGolden(t *testing.T) {
	tr := translate.New(model.NewProvider("public"))
	cmds, err := tr.TranslateInsert(sqlexpr.InsertDoNothing,
		&Order{ID: 1, Customer: &Customer{ID: 7}, Total: 3.5, Version: 2},
		&Order{ID: 2, Total: 1, Version: 2},
	)
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	out, err := New().Render(cmds[0].Expression)
	require.NoError(t, err)
	testutil.AssertGoldenSQL(t, "insert_do_nothing", out.Text)
	assert.Len(t, out.Parameters, 7, "the nil relation renders as NULL")
}

func TestRender_Commands(t *testing.T) {
	q := expr.Where(expr.Delete(orderType), totalAbove(5))
	out := translateAndRender(t, q)
	assert.Equal(t, "DELETE FROM \"public\".\"Order\" AS a\nWHERE\n\ta.\"Total\" > @param_0", out.Text)
}

func TestRender_GroupBy(t *testing.T) {
	grouping := reflect.TypeFor[struct{ Key float64 }]()
	cmd, err := translate.New(model.NewProvider("public")).Translate(
		expr.GroupBy(expr.All(orderType), orderField("Total"), grouping))
	require.NoError(t, err)

	c := New()
	keys, err := c.Render(cmd.Expression)
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT\n\ta.\"Total\"\nFROM\n\t\"public\".\"Order\" a", keys.Text)

	values, err := cmd.Expression.(*sqlexpr.GroupBy).Values(10.5)
	require.NoError(t, err)
	out, err := c.Render(values)
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n\ta.\"Id\",\n\ta.\"Customer\",\n\ta.\"Total\",\n\ta.\"Version\"\nFROM\n\t\"public\".\"Order\" a\nWHERE\n\ta.\"Total\" = @param_0", out.Text)
	require.Len(t, out.Parameters, 1)
	assert.Equal(t, 10.5, out.Parameters[0].Value)
}

func TestRender_Explain(t *testing.T) {
	out := translateAndRender(t, expr.Explain(expr.Where(expr.All(orderType), totalAbove(1)), true))
	assert.True(t, strings.HasPrefix(out.Text, "EXPLAIN (ANALYZE, FORMAT json)\nSELECT\n"), out.Text)

	out = translateAndRender(t, expr.Explain(expr.All(orderType), false))
	assert.Contains(t, out.Text, "EXPLAIN (FORMAT json)\n")
}

func col(name string) *sqlexpr.SimpleBinding {
	return &sqlexpr.SimpleBinding{Source: &sqlexpr.Parameter{Name: "a"}, Name: name}
}

func param(name string, v any) *sqlexpr.QueryParameter {
	return &sqlexpr.QueryParameter{Name: name, Value: v}
}

func TestRender_OperatorMapping(t *testing.T) {
	want := map[sqlexpr.BinaryOperator]string{
		sqlexpr.Equal:              `a."L" = a."R"`,
		sqlexpr.NotEqual:           `a."L" != a."R"`,
		sqlexpr.GreaterThanOrEqual: `a."L" >= a."R"`,
		sqlexpr.GreaterThan:        `a."L" > a."R"`,
		sqlexpr.LessThan:           `a."L" < a."R"`,
		sqlexpr.LessThanOrEqual:    `a."L" <= a."R"`,
		sqlexpr.AndAlso:            `a."L" AND a."R"`,
		sqlexpr.OrElse:             `a."L" OR a."R"`,
		sqlexpr.ExclusiveOr:        `a."L" XOR a."R"`,
		sqlexpr.Contains:           `a."L" IN (a."R")`,
		sqlexpr.Like:               `a."L" LIKE a."R"`,
		sqlexpr.Add:                `a."L" + a."R"`,
		sqlexpr.Subtract:           `a."L" - a."R"`,
		sqlexpr.Divide:             `a."L" / a."R"`,
		sqlexpr.Multiply:           `a."L" * a."R"`,
		sqlexpr.Modulo:             `a."L" % a."R"`,
		sqlexpr.Coalesce:           `COALESCE(a."L", a."R")`,
	}

	c := New()
	for _, op := range sqlexpr.BinaryOperators() {
		t.Run(op.String(), func(t *testing.T) {
			out, err := c.Render(&sqlexpr.Binary{Operator: op, Left: col("L"), Right: col("R")})
			require.NoError(t, err)
			assert.Equal(t, want[op], out.Text)
		})
	}
	assert.Len(t, want, len(sqlexpr.BinaryOperators()))
}

func TestRender_Scalars(t *testing.T) {
	null := &sqlexpr.Constant{}

	tests := []struct {
		name string
		node sqlexpr.Expression
		want string
	}{
		{"is null", &sqlexpr.Binary{Operator: sqlexpr.Equal, Left: col("X"), Right: null}, `a."X" IS NULL`},
		{"is not null", &sqlexpr.Binary{Operator: sqlexpr.NotEqual, Left: col("X"), Right: null}, `a."X" IS NOT NULL`},
		{"null on the left", &sqlexpr.Binary{Operator: sqlexpr.Equal, Left: null, Right: col("X")}, `a."X" IS NULL`},
		{
			"or inside and",
			&sqlexpr.Binary{Operator: sqlexpr.AndAlso,
				Left:  &sqlexpr.Binary{Operator: sqlexpr.OrElse, Left: col("A"), Right: col("B")},
				Right: col("C")},
			`(a."A" OR a."B") AND a."C"`,
		},
		{
			"left associative chain",
			&sqlexpr.Binary{Operator: sqlexpr.Subtract,
				Left:  &sqlexpr.Binary{Operator: sqlexpr.Subtract, Left: col("A"), Right: col("B")},
				Right: &sqlexpr.Binary{Operator: sqlexpr.Subtract, Left: col("C"), Right: col("D")}},
			`a."A" - a."B" - (a."C" - a."D")`,
		},
		{
			"arithmetic inside comparison",
			&sqlexpr.Binary{Operator: sqlexpr.GreaterThan,
				Left:  &sqlexpr.Binary{Operator: sqlexpr.Multiply, Left: col("A"), Right: param("param_0", 2)},
				Right: col("B")},
			`a."A" * @param_0 > a."B"`,
		},
		{"not", &sqlexpr.Unary{Operator: sqlexpr.Not, Operand: col("Flag")}, `NOT (a."Flag")`},
		{"negate", &sqlexpr.Unary{Operator: sqlexpr.Negate, Operand: col("X")}, `-a."X"`},
		{
			"negate binary",
			&sqlexpr.Unary{Operator: sqlexpr.Negate, Operand: &sqlexpr.Binary{Operator: sqlexpr.Add, Left: col("X"), Right: col("Y")}},
			`-(a."X" + a."Y")`,
		},
		{
			"case",
			&sqlexpr.Conditional{When: col("Flag"), Then: &sqlexpr.Constant{Value: 1}, Else: &sqlexpr.Constant{Value: 0}},
			`CASE WHEN a."Flag" THEN 1 ELSE 0 END`,
		},
		{"string literal", &sqlexpr.Constant{Value: "it's"}, `'it''s'`},
		{"bool literal", &sqlexpr.Constant{Value: true}, `TRUE`},
		{"quoted identifier", col(`we"ird`), `a."we""ird"`},
		{"unqualified column", &sqlexpr.SimpleBinding{Name: "Id"}, `"Id"`},
		{"named binding", &sqlexpr.NamedBinding{Name: "Count", Expression: &sqlexpr.MethodCall{Name: "COUNT", Arguments: []sqlexpr.Expression{&sqlexpr.Special{Text: "*"}}}}, `COUNT(*) AS "Count"`},
		{"method with source", &sqlexpr.MethodCall{Name: "LOWER", Source: col("Name")}, `LOWER(a."Name")`},
		{"empty list", &sqlexpr.Binary{Operator: sqlexpr.Contains, Left: col("Id"), Right: &sqlexpr.List{}}, `a."Id" IN (NULL)`},
		{
			"list",
			&sqlexpr.Binary{Operator: sqlexpr.Contains, Left: col("Id"), Right: &sqlexpr.List{Items: []sqlexpr.Expression{param("param_0", 1), param("param_1", 2)}}},
			`a."Id" IN (@param_0, @param_1)`,
		},
		{"json", &sqlexpr.JSONAttribute{Source: col("Doc"), Path: []string{"address", "city"}}, `a."Doc" -> 'address' ->> 'city'`},
		{"json single", &sqlexpr.JSONAttribute{Source: col("Doc"), Path: []string{"city"}}, `a."Doc" ->> 'city'`},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Render(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Text)
		})
	}
}

func TestRender_InSubqueryKeepsDepth(t *testing.T) {
	sub := &sqlexpr.Projection{
		Source:   &sqlexpr.NamedSource{Source: &sqlexpr.QuerySource{Schema: "public", Table: "Order_Tags_Tag"}, Parameter: &sqlexpr.Parameter{Name: "b"}},
		Bindings: []sqlexpr.Expression{&sqlexpr.SimpleBinding{Source: &sqlexpr.Parameter{Name: "b"}, Name: "Right"}},
	}
	out, err := New().Render(&sqlexpr.Binary{Operator: sqlexpr.Contains, Left: col("Id"), Right: sub})
	require.NoError(t, err)
	assert.Equal(t, "a.\"Id\" IN (SELECT\n\tb.\"Right\"\nFROM\n\t\"public\".\"Order_Tags_Tag\" b)", out.Text)
}

func TestRender_ParametersInEmissionOrder(t *testing.T) {
	p0, p1 := param("param_0", 1), param("param_1", 2)
	node := &sqlexpr.Binary{Operator: sqlexpr.AndAlso,
		Left:  &sqlexpr.Binary{Operator: sqlexpr.Equal, Left: col("B"), Right: p1},
		Right: &sqlexpr.Binary{Operator: sqlexpr.OrElse,
			Left:  &sqlexpr.Binary{Operator: sqlexpr.Equal, Left: col("A"), Right: p0},
			Right: &sqlexpr.Binary{Operator: sqlexpr.Equal, Left: col("C"), Right: p1}},
	}

	out, err := New().Render(node)
	require.NoError(t, err)
	require.Len(t, out.Parameters, 2)
	assert.Same(t, p1, out.Parameters[0])
	assert.Same(t, p0, out.Parameters[1])
}
