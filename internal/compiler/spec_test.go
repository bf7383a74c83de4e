package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warning-explosive/Core-sub004/internal/model"
)

func TestCompile_DefinesReferencedEntitiesFirst(t *testing.T) {
	spec, models := compileShop(t, "")

	require.Len(t, spec.Entities, 2)
	customer, ok := models.Lookup("Customer")
	require.True(t, ok)
	order, ok := models.Lookup("Order")
	require.True(t, ok)
	assert.Equal(t, customer, spec.Entities[0])
	assert.Equal(t, order, spec.Entities[1])

	table, err := models.Table(order)
	require.NoError(t, err)
	assert.Equal(t, []string{"Id", "Customer", "Total", "Version"}, table.ColumnNames())
	require.Len(t, table.References(), 1)
	assert.Equal(t, customer, table.References()[0].Target)
	require.NotNil(t, table.Version)
	assert.Equal(t, "Version", table.Version.Name)
}

func TestCompile_Queries(t *testing.T) {
	spec, _ := compileShop(t, `
query: names: {
	from: "Customer"
	select: ["Name"]
	explain: true
}`)

	require.Len(t, spec.Queries, 2)
	q, ok := spec.Query("names")
	require.True(t, ok)
	assert.True(t, q.Explain)
	assert.False(t, q.Analyze)

	_, ok = spec.Query("missing")
	assert.False(t, ok)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{
			name:    "invalid entity",
			src:     `entity: Bad: {columns: Id: "money"}`,
			message: "E104",
		},
		{
			name: "reference cycle",
			src: `entity: A: {columns: {Id: {type: "int", pk: true}, B: {reference: "B"}}}
entity: B: {columns: {Id: {type: "int", pk: true}, A: {reference: "A"}}}`,
			message: "reference cycle",
		},
		{
			name:    "unknown reference",
			src:     `entity: A: {columns: {Id: {type: "int", pk: true}, B: {reference: "B"}}}`,
			message: "unknown entity",
		},
		{
			name:    "invalid query",
			src:     `query: q: {from: "", limit: 1}`,
			message: "E110",
		},
		{
			name:    "query over unknown entity",
			src:     `query: q: {from: "Nope"}`,
			message: "unknown entity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(compileString(t, tt.src), model.NewProvider("public"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
