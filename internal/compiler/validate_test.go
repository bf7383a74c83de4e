package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warning-explosive/Core-sub004/internal/model"
)

// =============================================================================
// Entity Validation Tests
// =============================================================================

func validOrder() model.Definition {
	return model.Definition{
		Name: "Order",
		Columns: []model.ColumnDefinition{
			{Name: "Id", Type: "int64", PrimaryKey: true},
			{Name: "Customer", Reference: "Customer"},
			{Name: "Tags", Type: "string[]"},
			{Name: "Version", Type: "bigint", Version: true},
		},
	}
}

func TestValidateDefinitionValid(t *testing.T) {
	assert.Empty(t, Validate(validOrder()))
	def := validOrder()
	assert.Empty(t, Validate(&def))
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateDefinitionErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Definition)
		want   []string
	}{
		{
			name:   "missing name",
			mutate: func(d *model.Definition) { d.Name = " " },
			want:   []string{ErrEntityNameEmpty},
		},
		{
			name:   "no columns",
			mutate: func(d *model.Definition) { d.Columns = nil },
			want:   []string{ErrEntityNoColumns},
		},
		{
			name:   "no primary key",
			mutate: func(d *model.Definition) { d.Columns[0].PrimaryKey = false },
			want:   []string{ErrPrimaryKey},
		},
		{
			name:   "two primary keys",
			mutate: func(d *model.Definition) { d.Columns[2].PrimaryKey = true },
			want:   []string{ErrPrimaryKey},
		},
		{
			name:   "unknown type",
			mutate: func(d *model.Definition) { d.Columns[2].Type = "money" },
			want:   []string{ErrInvalidColumnType},
		},
		{
			name:   "duplicate column",
			mutate: func(d *model.Definition) { d.Columns[2].Name = "Id" },
			want:   []string{ErrDuplicateColumn},
		},
		{
			name:   "string version",
			mutate: func(d *model.Definition) { d.Columns[3].Type = "string" },
			want:   []string{ErrInvalidVersion},
		},
		{
			name: "two version columns",
			mutate: func(d *model.Definition) {
				d.Columns = append(d.Columns, model.ColumnDefinition{Name: "Stamp", Type: "int", Version: true})
			},
			want: []string{ErrInvalidVersion},
		},
		{
			name:   "type and reference",
			mutate: func(d *model.Definition) { d.Columns[1].Type = "int64" },
			want:   []string{ErrAmbiguousReference},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validOrder()
			tt.mutate(&def)
			assert.Equal(t, tt.want, codes(Validate(def)))
		})
	}
}

// =============================================================================
// Query Validation Tests
// =============================================================================

func TestValidateQuerySpec(t *testing.T) {
	tests := []struct {
		name string
		spec QuerySpec
		want []string
	}{
		{
			name: "valid",
			spec: QuerySpec{From: "Order", Where: []Condition{
				{Field: "Total", Op: OpGreater, Value: int64(1)},
				{Field: "Name", Op: OpLike, Value: "a%"},
				{Field: "Id", Op: OpIn, Value: []any{int64(1)}},
				{Field: "Customer", Op: OpNull},
			}},
			want: []string{},
		},
		{
			name: "missing from",
			spec: QuerySpec{},
			want: []string{ErrQueryFromEmpty},
		},
		{
			name: "unknown operator",
			spec: QuerySpec{From: "Order", Where: []Condition{{Field: "Id", Op: "=~", Value: "x"}}},
			want: []string{ErrUnknownOperator},
		},
		{
			name: "null with value",
			spec: QuerySpec{From: "Order", Where: []Condition{{Field: "Id", Op: OpNull, Value: int64(1)}}},
			want: []string{ErrInvalidCondition},
		},
		{
			name: "comparison with list",
			spec: QuerySpec{From: "Order", Where: []Condition{{Field: "Id", Op: OpEqual, Value: []any{int64(1)}}}},
			want: []string{ErrInvalidCondition},
		},
		{
			name: "like without string",
			spec: QuerySpec{From: "Order", Where: []Condition{{Field: "Name", Op: OpLike, Value: int64(1)}}},
			want: []string{ErrInvalidCondition},
		},
		{
			name: "duplicate selection and negative limit",
			spec: QuerySpec{From: "Order", Select: []string{"Id", "Id"}, Limit: -1},
			want: []string{ErrDuplicateSelection, ErrInvalidLimit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate(&tt.spec)))
		})
	}
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate(42)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedType, errs[0].Code)
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "from", Message: "from is required", Code: ErrQueryFromEmpty}
	assert.Equal(t, "[E110] from: from is required", err.Error())

	err.Line = 4
	assert.Equal(t, "[E110] line 4: from: from is required", err.Error())
}
