package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/warning-explosive/Core-sub004/internal/model"
)

// CompileEntity parses a CUE value into a model.Definition.
//
// The value should be the entity struct itself, e.g.:
//
//	v := ctx.CompileString(`entity: Order: { columns: { Id: {type: "int64", pk: true} } }`)
//	def, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Order")))
//
// A column is either a type name ("string") or a struct with the fields
// type, pk, version, nullable and reference. Columns keep their
// declaration order.
func CompileEntity(v cue.Value) (model.Definition, error) {
	if err := v.Err(); err != nil {
		return model.Definition{}, formatCUEError(err)
	}

	def := model.Definition{Name: label(v)}

	table, err := optionalString(v, "table", "table")
	if err != nil {
		return model.Definition{}, err
	}
	def.Table = table

	columnsVal := v.LookupPath(cue.ParsePath("columns"))
	if !columnsVal.Exists() {
		return model.Definition{}, &CompileError{
			Field:   "columns",
			Message: "columns is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := columnsVal.Fields()
	if err != nil {
		return model.Definition{}, formatCUEError(err)
	}
	for iter.Next() {
		col, err := parseColumn(iter.Label(), iter.Value())
		if err != nil {
			return model.Definition{}, err
		}
		def.Columns = append(def.Columns, col)
	}

	if len(def.Columns) == 0 {
		return model.Definition{}, &CompileError{
			Field:   "columns",
			Message: "at least one column is required",
			Pos:     columnsVal.Pos(),
		}
	}
	return def, nil
}

func parseColumn(name string, v cue.Value) (model.ColumnDefinition, error) {
	field := "columns." + name
	col := model.ColumnDefinition{Name: name}

	// Shorthand: Name: "string"
	if v.Kind() == cue.StringKind {
		typ, err := v.String()
		if err != nil {
			return col, formatCUEError(err)
		}
		col.Type = typ
		return col, nil
	}
	if v.IncompleteKind() != cue.StructKind {
		return col, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("column must be a type name or a struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	var err error
	if col.Type, err = optionalString(v, "type", field+".type"); err != nil {
		return col, err
	}
	if col.Reference, err = optionalString(v, "reference", field+".reference"); err != nil {
		return col, err
	}
	if col.PrimaryKey, err = optionalBool(v, "pk", field+".pk"); err != nil {
		return col, err
	}
	if col.Version, err = optionalBool(v, "version", field+".version"); err != nil {
		return col, err
	}
	if col.Nullable, err = optionalBool(v, "nullable", field+".nullable"); err != nil {
		return col, err
	}

	if col.Type == "" && col.Reference == "" {
		return col, &CompileError{
			Field:   field,
			Message: "column needs a type or a reference",
			Pos:     v.Pos(),
		}
	}
	return col, nil
}
