package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
)

// label returns the last path selector of v, the declared name of an
// entity or query.
func label(v cue.Value) string {
	selectors := v.Path().Selectors()
	if len(selectors) == 0 {
		return ""
	}
	return strings.Trim(selectors[len(selectors)-1].String(), `"`)
}

func optionalString(v cue.Value, field, name string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", &CompileError{Field: name, Message: "must be a string", Pos: f.Pos()}
	}
	return s, nil
}

func optionalBool(v cue.Value, field, name string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, &CompileError{Field: name, Message: "must be a boolean", Pos: f.Pos()}
	}
	return b, nil
}

func optionalInt(v cue.Value, field, name string) (int, bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return 0, false, nil
	}
	n, err := f.Int64()
	if err != nil {
		return 0, false, &CompileError{Field: name, Message: "must be an integer", Pos: f.Pos()}
	}
	return int(n), true, nil
}

// literal decodes a concrete CUE scalar or list into a Go value: int64,
// float64, string, bool, nil or []any.
func literal(v cue.Value, name string) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		items := []any{}
		for i := 0; iter.Next(); i++ {
			item, err := literal(iter.Value(), fmt.Sprintf("%s[%d]", name, i))
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	}
	return nil, &CompileError{
		Field:   name,
		Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
		Pos:     v.Pos(),
	}
}
