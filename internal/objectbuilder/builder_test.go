package objectbuilder

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Row struct {
	ID      int64 `orm:"Id,pk"`
	Name    string
	Score   *float64
	Active  bool
	Tags    []string
	Ref     uuid.UUID
	Created time.Time
	Hidden  string `orm:"-"`
	Level   uint8
}

func TestBuild_Struct(t *testing.T) {
	ref := uuid.MustParse("018f2f7e-8c5e-7a4c-9d1e-3b2a1c0d9e8f")

	v, err := Build(reflect.TypeFor[*Row](), map[string]any{
		"Id":      int64(7),
		"Name":    []byte("bob"),
		"Score":   2.5,
		"Active":  int64(1),
		"Tags":    `{a,"b c"}`,
		"Ref":     ref.String(),
		"Created": "2024-05-01 10:30:00",
		"Level":   int64(3),
	})
	require.NoError(t, err)

	row := v.Interface().(*Row)
	assert.Equal(t, int64(7), row.ID)
	assert.Equal(t, "bob", row.Name)
	require.NotNil(t, row.Score)
	assert.Equal(t, 2.5, *row.Score)
	assert.True(t, row.Active)
	assert.Equal(t, []string{"a", "b c"}, row.Tags)
	assert.Equal(t, ref, row.Ref)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), row.Created)
	assert.Equal(t, uint8(3), row.Level)
}

func TestBuild_NullsAndValueTypes(t *testing.T) {
	v, err := Build(reflect.TypeFor[Row](), map[string]any{"Id": int64(1), "Score": nil})
	require.NoError(t, err)

	row := v.Interface().(Row)
	assert.Equal(t, int64(1), row.ID)
	assert.Nil(t, row.Score)
}

func TestBuild_Scalar(t *testing.T) {
	v, err := Build(reflect.TypeFor[int32](), map[string]any{"Value": int64(12)})
	require.NoError(t, err)
	assert.Equal(t, int32(12), v.Interface())

	_, err = Build(reflect.TypeFor[int32](), map[string]any{"a": 1, "b": 2})
	assert.True(t, IsBuildError(err))
}

func TestFill_KeepsUnlistedFields(t *testing.T) {
	row := &Row{ID: 3, Name: "old", Hidden: "kept"}
	require.NoError(t, Fill(reflect.ValueOf(row), map[string]any{"Name": "new"}))
	assert.Equal(t, "new", row.Name)
	assert.Equal(t, "kept", row.Hidden)
}

func TestFill_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		column string
	}{
		{"unknown column", map[string]any{"Missing": 1}, "Missing"},
		{"skipped field", map[string]any{"Hidden": "x"}, "Hidden"},
		{"overflow", map[string]any{"Level": int64(300)}, "Level"},
		{"bad type", map[string]any{"Active": 1.5}, "Active"},
		{"fractional int", map[string]any{"Id": 1.5}, "Id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Fill(reflect.ValueOf(&Row{}), tt.values)
			require.Error(t, err)
			var be *Error
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.column, be.Column)
			assert.Contains(t, err.Error(), "objectbuilder.Row")
		})
	}

	assert.Error(t, Fill(reflect.ValueOf(Row{}), nil))
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name  string
		value any
		typ   reflect.Type
		want  any
	}{
		{"int widening", int32(5), reflect.TypeFor[int64](), int64(5)},
		{"float from int", int64(2), reflect.TypeFor[float64](), 2.0},
		{"int from text", "42", reflect.TypeFor[int](), 42},
		{"string from bytes", []byte("x"), reflect.TypeFor[string](), "x"},
		{"bytes from string", "x", reflect.TypeFor[[]byte](), []byte("x")},
		{"bool from text", "true", reflect.TypeFor[bool](), true},
		{"int slice from literal", "{1,2,3}", reflect.TypeFor[[]int64](), []int64{1, 2, 3}},
		{"int slice from slice", []any{int64(1), int64(2)}, reflect.TypeFor[[]int](), []int{1, 2}},
		{"pointer", int64(9), reflect.TypeFor[*int64](), ptr(int64(9))},
		{"nil", nil, reflect.TypeFor[int](), 0},
		{"uuid bytes", [16]byte{1}, reflect.TypeFor[uuid.UUID](), uuid.UUID{1}},
		{"unix time", int64(0), reflect.TypeFor[time.Time](), time.Unix(0, 0).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.value, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Interface())
		})
	}
}

func TestArrayLiterals(t *testing.T) {
	items, err := ParseArray(`{1,NULL,"NULL","a\"b",""}`)
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, "1", *items[0])
	assert.Nil(t, items[1])
	assert.Equal(t, "NULL", *items[2])
	assert.Equal(t, `a"b`, *items[3])
	assert.Equal(t, "", *items[4])

	empty, err := ParseArray("{}")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseArray("1,2")
	assert.Error(t, err)
	_, err = ParseArray(`{"a}`)
	assert.Error(t, err)

	s, err := FormatArray([]int64{1, 4})
	require.NoError(t, err)
	assert.Equal(t, "{1,4}", s)

	s, err = FormatArray([]string{`a"b`, "c"})
	require.NoError(t, err)
	assert.Equal(t, `{"a\"b","c"}`, s)

	parsed, err := ParseArray(s)
	require.NoError(t, err)
	assert.Equal(t, `a"b`, *parsed[0])

	_, err = FormatArray(3)
	assert.Error(t, err)
}

func ptr[T any](v T) *T { return &v }
