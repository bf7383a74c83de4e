package objectbuilder

import (
	"fmt"
	"reflect"

	"github.com/warning-explosive/Core-sub004/internal/model"
)

// Build creates a value of type t from column values.
//
// Pointer-to-struct and struct types are filled field by field. Any other
// type must receive exactly one value, which is converted.
func Build(t reflect.Type, values map[string]any) (reflect.Value, error) {
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}

	if st.Kind() != reflect.Struct || model.IsPrimitive(t) {
		if len(values) != 1 {
			return reflect.Value{}, &Error{Type: t, Message: fmt.Sprintf("scalar expects one column, got %d", len(values))}
		}
		for column, v := range values {
			out, err := Convert(v, t)
			if err != nil {
				return reflect.Value{}, withColumn(err, t, column)
			}
			return out, nil
		}
	}

	ptr := reflect.New(st)
	if err := Fill(ptr, values); err != nil {
		return reflect.Value{}, err
	}
	if t.Kind() == reflect.Pointer {
		return ptr, nil
	}
	return ptr.Elem(), nil
}

// Fill assigns column values to the fields of the struct target points
// to. Columns without a matching field are an error; fields without a
// column are left untouched.
func Fill(target reflect.Value, values map[string]any) error {
	if target.Kind() != reflect.Pointer || target.IsNil() || target.Elem().Kind() != reflect.Struct {
		return &Error{Type: target.Type(), Message: "fill target must be a non-nil pointer to struct"}
	}
	v := target.Elem()
	fields := fieldIndex(v.Type())

	for column, raw := range values {
		index, ok := fields[column]
		if !ok {
			return &Error{Type: target.Type(), Column: column, Message: "no field binds this column"}
		}
		f := v.FieldByIndex(index)
		converted, err := Convert(raw, f.Type())
		if err != nil {
			return withColumn(err, target.Type(), column)
		}
		f.Set(converted)
	}
	return nil
}

// fieldIndex maps column names to field indexes of struct type st.
func fieldIndex(st reflect.Type) map[string][]int {
	out := map[string][]int{}
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() || f.Tag.Get("orm") == "-" {
			continue
		}
		out[model.ColumnName(f)] = f.Index
	}
	return out
}

func withColumn(err error, t reflect.Type, column string) error {
	if be, ok := err.(*Error); ok {
		return &Error{Type: t, Column: column, Message: be.Message}
	}
	return &Error{Type: t, Column: column, Message: err.Error()}
}
