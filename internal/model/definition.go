package model

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Definition describes an entity declared at runtime, for example by a
// CUE spec, instead of by a Go struct.
type Definition struct {
	Name    string             // entity name, also the table name unless Table is set
	Table   string             // optional table name override
	Columns []ColumnDefinition // in declaration order
}

// ColumnDefinition describes one column of a Definition.
type ColumnDefinition struct {
	Name       string
	Type       string // see ColumnTypes; a "[]" suffix declares an array
	PrimaryKey bool
	Version    bool
	Nullable   bool

	// Reference names a previously defined entity; the column then holds
	// its primary key and navigates to it.
	Reference string
}

var columnTypes = map[string]reflect.Type{
	"int":       reflect.TypeFor[int64](),
	"int64":     reflect.TypeFor[int64](),
	"bigint":    reflect.TypeFor[int64](),
	"int32":     reflect.TypeFor[int32](),
	"integer":   reflect.TypeFor[int32](),
	"string":    reflect.TypeFor[string](),
	"text":      reflect.TypeFor[string](),
	"bool":      reflect.TypeFor[bool](),
	"boolean":   reflect.TypeFor[bool](),
	"float":     reflect.TypeFor[float64](),
	"float64":   reflect.TypeFor[float64](),
	"double":    reflect.TypeFor[float64](),
	"time":      reflect.TypeFor[time.Time](),
	"timestamp": reflect.TypeFor[time.Time](),
	"uuid":      reflect.TypeFor[uuid.UUID](),
	"bytes":     reflect.TypeFor[[]byte](),
	"bytea":     reflect.TypeFor[[]byte](),
	"json":      reflect.TypeFor[map[string]any](),
}

// ColumnTypes lists the type names accepted in a ColumnDefinition.
func ColumnTypes() []string {
	names := make([]string, 0, len(columnTypes))
	for name := range columnTypes {
		names = append(names, name)
	}
	return names
}

// Define builds a struct type for def and registers it under its table
// name. The returned type is the entity pointer type.
func (p *Provider) Define(def Definition) (reflect.Type, error) {
	if def.Name == "" {
		return nil, &Error{Code: ErrCodeInvalidDefinition, Message: "entity name is required"}
	}

	fields := make([]reflect.StructField, 0, len(def.Columns))
	seen := map[string]bool{}
	for _, col := range def.Columns {
		fieldName := exportedName(col.Name)
		if fieldName == "" {
			return nil, &Error{Code: ErrCodeInvalidDefinition, Field: col.Name,
				Message: fmt.Sprintf("entity %s: column name %q is not a valid identifier", def.Name, col.Name)}
		}
		if seen[fieldName] {
			return nil, &Error{Code: ErrCodeDuplicateColumn, Field: col.Name,
				Message: fmt.Sprintf("entity %s declares column %q twice", def.Name, col.Name)}
		}
		seen[fieldName] = true

		typ, opts, err := p.columnType(def.Name, col)
		if err != nil {
			return nil, err
		}

		tag := col.Name
		if col.PrimaryKey {
			tag += ",pk"
		}
		if col.Version {
			tag += ",version"
		}
		tag += opts

		fields = append(fields, reflect.StructField{
			Name: fieldName,
			Type: typ,
			Tag:  reflect.StructTag(fmt.Sprintf(`orm:%q json:%q entity:%q`, tag, col.Name, def.Name)),
		})
	}

	t := reflect.PointerTo(reflect.StructOf(fields))

	name := def.Table
	if name == "" {
		name = def.Name
	}

	p.mu.Lock()
	p.names[t] = name
	p.byName[def.Name] = t
	p.mu.Unlock()

	if _, err := p.Table(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *Provider) columnType(entity string, col ColumnDefinition) (reflect.Type, string, error) {
	if col.Reference != "" {
		target, ok := p.Lookup(col.Reference)
		if !ok {
			return nil, "", &Error{Code: ErrCodeInvalidDefinition, Field: col.Name,
				Message: fmt.Sprintf("entity %s references unknown entity %q", entity, col.Reference)}
		}
		return target, "", nil
	}

	name := strings.ToLower(strings.TrimSpace(col.Type))
	array := strings.HasSuffix(name, "[]")
	name = strings.TrimSuffix(name, "[]")

	typ, ok := columnTypes[name]
	if !ok {
		return nil, "", &Error{Code: ErrCodeUnsupportedType, Field: col.Name,
			Message: fmt.Sprintf("entity %s: unknown column type %q", entity, col.Type)}
	}

	opts := ""
	switch {
	case name == "json":
		opts = ",json"
	case array:
		typ = reflect.SliceOf(typ)
	case col.Nullable:
		typ = reflect.PointerTo(typ)
	}
	return typ, opts, nil
}

// exportedName converts a column name such as customer_id or customerId to
// an exported Go identifier (CustomerId).
func exportedName(column string) string {
	var b strings.Builder
	upper := true
	for _, r := range column {
		switch {
		case r == '_' || r == '-' || r == ' ':
			upper = true
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if b.Len() == 0 && unicode.IsDigit(r) {
				return ""
			}
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		default:
			return ""
		}
	}
	return b.String()
}
