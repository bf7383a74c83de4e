package compiler

import (
	"reflect"
	"testing"

	"cuelang.org/go/cue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/testutil"
)

func TestParseQuery(t *testing.T) {
	v := compileString(t, `query: cheap: {
		from: "Order"
		where: [
			{field: "Total", op: "<", value: 5.5},
			{field: "Id", op: "in", value: [1, 2]},
			{field: "Customer", op: "notnull"},
		]
		select: ["Id", "Total"]
		distinct: true
		orderBy: ["Total", {field: "Id", desc: true}]
		limit: 3
		cache: "cheap"
		analyze: true
	}`)

	spec, err := ParseQuery(v.LookupPath(cue.ParsePath("query.cheap")))
	require.NoError(t, err)

	assert.Equal(t, &QuerySpec{
		Name: "cheap",
		From: "Order",
		Where: []Condition{
			{Field: "Total", Op: "<", Value: 5.5},
			{Field: "Id", Op: "in", Value: []any{int64(1), int64(2)}},
			{Field: "Customer", Op: "notnull"},
		},
		Select:   []string{"Id", "Total"},
		Distinct: true,
		OrderBy:  []OrderKey{{Field: "Total"}, {Field: "Id", Desc: true}},
		Limit:    3,
		Cache:    "cheap",
		Analyze:  true,
	}, spec)
}

func TestParseQuery_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing from", `query: q: {limit: 1}`, "from"},
		{"from not a string", `query: q: {from: 1}`, "from"},
		{"where not a list", `query: q: {from: "Order", where: {field: "Id"}}`, "where"},
		{"condition without op", `query: q: {from: "Order", where: [{field: "Id"}]}`, "where[0]"},
		{"zero limit", `query: q: {from: "Order", limit: 0}`, "limit"},
		{"order key without field", `query: q: {from: "Order", orderBy: [{desc: true}]}`, "orderBy[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := compileString(t, tt.src)
			_, err := ParseQuery(v.LookupPath(cue.ParsePath("query.q")))

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestBuildQuery_Golden(t *testing.T) {
	spec, models := compileShop(t, "")

	q, ok := spec.Query("bigOrders")
	require.True(t, ok)

	order, _ := models.Lookup("Order")
	assert.Equal(t, order, q.Entity)
	assert.Equal(t, order, q.Item)
	assert.False(t, q.Explain)

	out := renderQuery(t, models, q)
	testutil.AssertGoldenSQL(t, "big_orders", out.Text)
	assert.Equal(t, map[string]any{"param_0": 10.0}, out.Args())
}

func TestBuildQuery_Where(t *testing.T) {
	_, models := compileShop(t, "")

	tests := []struct {
		name  string
		where []Condition
		want  string
		args  map[string]any
	}{
		{
			name:  "in list",
			where: []Condition{{Field: "Id", Op: OpIn, Value: []any{int64(1), int64(3)}}},
			want:  `a."Id" IN (@param_0, @param_1)`,
			args:  map[string]any{"param_0": int64(1), "param_1": int64(3)},
		},
		{
			name:  "relation compares primary key",
			where: []Condition{{Field: "Customer", Op: OpEqual, Value: int64(5)}},
			want:  `a."Customer" = @param_0`,
			args:  map[string]any{"param_0": int64(5)},
		},
		{
			name: "conditions are combined with and",
			where: []Condition{
				{Field: "Total", Op: OpGreaterOrEqual, Value: int64(1)},
				{Field: "Total", Op: OpLess, Value: 9.5},
			},
			want: `a."Total" >= @param_0 AND a."Total" < @param_1`,
			args: map[string]any{"param_0": 1.0, "param_1": 9.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := BuildQuery(&QuerySpec{Name: tt.name, From: "Order", Where: tt.where}, models)
			require.NoError(t, err)

			out := renderQuery(t, models, q)
			assert.Contains(t, out.Text, "WHERE\n\t"+tt.want)
			assert.Equal(t, tt.args, out.Args())
		})
	}
}

func TestBuildQuery_NullTests(t *testing.T) {
	_, models := compileShop(t, "")

	q, err := BuildQuery(&QuerySpec{From: "Order", Where: []Condition{{Field: "Customer", Op: OpNull}}}, models)
	require.NoError(t, err)

	where := q.Node.(*expr.Call)
	assert.True(t, where.Method.Matches(expr.MethodWhere))
	body := where.Args[1].(*expr.Lambda).Body.(*expr.Call)
	assert.True(t, body.Method.Matches(expr.FuncIsNull))
}

func TestBuildQuery_Select(t *testing.T) {
	_, models := compileShop(t, "")

	t.Run("single column is a scalar", func(t *testing.T) {
		q, err := BuildQuery(&QuerySpec{From: "Order", Select: []string{"Total"}, Distinct: true}, models)
		require.NoError(t, err)
		assert.Equal(t, reflect.TypeFor[float64](), q.Item)

		out := renderQuery(t, models, q)
		assert.Equal(t, "SELECT DISTINCT\n\ta.\"Total\"\nFROM\n\t\"public\".\"Order\" a", out.Text)
	})

	t.Run("several columns build a row type", func(t *testing.T) {
		q, err := BuildQuery(&QuerySpec{From: "Order", Select: []string{"Id", "Total"}}, models)
		require.NoError(t, err)

		require.Equal(t, reflect.Struct, q.Item.Kind())
		require.Equal(t, 2, q.Item.NumField())
		assert.Equal(t, "Id", model.ColumnName(q.Item.Field(0)))
		assert.Equal(t, "Total", model.ColumnName(q.Item.Field(1)))
		assert.Equal(t, "Total", q.Item.Field(1).Tag.Get("json"))
	})

	t.Run("cached", func(t *testing.T) {
		q, err := BuildQuery(&QuerySpec{From: "Order", Limit: 2, Cache: "two"}, models)
		require.NoError(t, err)
		call := q.Node.(*expr.Call)
		assert.True(t, call.Method.Matches(expr.MethodCachedExpression))
	})
}

func TestBuildQuery_Errors(t *testing.T) {
	_, models := compileShop(t, "")

	tests := []struct {
		name  string
		spec  QuerySpec
		field string
	}{
		{"unknown entity", QuerySpec{From: "Nope"}, "from"},
		{"unknown column", QuerySpec{From: "Order", Where: []Condition{{Field: "Nope", Op: OpEqual, Value: int64(1)}}}, "where[0].field"},
		{"unknown operator", QuerySpec{From: "Order", Where: []Condition{{Field: "Id", Op: "~", Value: int64(1)}}}, "where[0].op"},
		{"relation ordering comparison", QuerySpec{From: "Order", Where: []Condition{{Field: "Customer", Op: OpGreater, Value: int64(1)}}}, "where[0].op"},
		{"in without list", QuerySpec{From: "Order", Where: []Condition{{Field: "Id", Op: OpIn, Value: int64(1)}}}, "where[0].value"},
		{"comparison without value", QuerySpec{From: "Order", Where: []Condition{{Field: "Id", Op: OpEqual}}}, "where[0].value"},
		{"unconvertible value", QuerySpec{From: "Order", Where: []Condition{{Field: "Total", Op: OpEqual, Value: "lots"}}}, "where[0].value"},
		{"select relation", QuerySpec{From: "Order", Select: []string{"Customer"}}, "select[0]"},
		{"select twice", QuerySpec{From: "Order", Select: []string{"Id", "Id"}}, "select[1]"},
		{"order by unknown", QuerySpec{From: "Order", OrderBy: []OrderKey{{Field: "Nope"}}}, "orderBy[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildQuery(&tt.spec, models)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}
