package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	timeType  = reflect.TypeFor[time.Time]()
	uuidType  = reflect.TypeFor[uuid.UUID]()
	bytesType = reflect.TypeFor[[]byte]()
)

// Provider resolves and caches table metadata for entity types.
//
// Thread-safety: Provider is safe for concurrent use.
type Provider struct {
	schema string

	mu     sync.RWMutex
	tables map[reflect.Type]*Table
	names  map[reflect.Type]string
	byName map[string]reflect.Type
}

// NewProvider creates a provider placing every table in schema.
func NewProvider(schema string) *Provider {
	return &Provider{
		schema: schema,
		tables: map[reflect.Type]*Table{},
		names:  map[reflect.Type]string{},
		byName: map[string]reflect.Type{},
	}
}

// Schema returns the schema tables are placed in.
func (p *Provider) Schema() string { return p.schema }

// Table returns the metadata of entity type t. Struct types are accepted
// and normalized to their pointer type.
func (p *Provider) Table(t reflect.Type) (*Table, error) {
	requested := t
	t = entityPointer(t)
	if t == nil {
		return nil, &Error{Code: ErrCodeNotEntity, Type: requested, Message: "not a struct type"}
	}

	p.mu.RLock()
	table, ok := p.tables[t]
	p.mu.RUnlock()
	if ok {
		return table, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if table, ok := p.tables[t]; ok {
		return table, nil
	}
	table, err := p.build(t)
	if err != nil {
		return nil, err
	}
	p.tables[t] = table
	return table, nil
}

// IsEntity reports whether t is a pointer to a struct with a primary key.
func (p *Provider) IsEntity(t reflect.Type) bool {
	return isEntity(t)
}

// Lookup returns an entity type registered by Define or seen by Table,
// keyed by table name.
func (p *Provider) Lookup(name string) (reflect.Type, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.byName[name]
	return t, ok
}

// build parses t. Caller holds p.mu.
func (p *Provider) build(t reflect.Type) (*Table, error) {
	st := t.Elem()
	table := &Table{
		Schema:  p.schema,
		Name:    p.tableName(t),
		Type:    t,
		byName:  map[string]*Column{},
		byField: map[string]*Column{},
		rels:    map[string]*Relation{},
	}

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := parseTag(f)
		if tag.skip {
			continue
		}

		if tag.mtm || (f.Type.Kind() == reflect.Slice && isEntity(f.Type.Elem())) {
			if f.Type.Kind() != reflect.Slice || !isEntity(f.Type.Elem()) {
				return nil, &Error{Code: ErrCodeUnsupportedType, Type: t, Field: f.Name,
					Message: "mtm field must be a slice of entities"}
			}
			rel := &Relation{Field: f.Name, Index: f.Index, Owner: t, Target: f.Type.Elem(), Multiple: true}
			join, err := p.joinTable(t, f)
			if err != nil {
				return nil, err
			}
			rel.Join = join
			table.Relations = append(table.Relations, rel)
			table.rels[f.Name] = rel
			continue
		}

		col := &Column{Name: tag.name, Field: f.Name, Index: f.Index, Type: f.Type}
		switch {
		case isEntity(f.Type):
			col.Kind = ColumnRelation
			col.Relation = &Relation{Field: f.Name, Index: f.Index, Owner: t, Target: f.Type, Column: col.Name}
			table.Relations = append(table.Relations, col.Relation)
			table.rels[f.Name] = col.Relation
		case tag.flags:
			if !isInteger(f.Type) {
				return nil, &Error{Code: ErrCodeUnsupportedType, Type: t, Field: f.Name,
					Message: "flags field must have an integer type"}
			}
			col.Kind = ColumnFlags
		case tag.json:
			col.Kind = ColumnJSON
		case isPrimitive(f.Type):
			col.Kind = ColumnPrimitive
		case f.Type.Kind() == reflect.Slice && isPrimitive(f.Type.Elem()):
			col.Kind = ColumnArray
		case isDocument(f.Type):
			col.Kind = ColumnJSON
		default:
			return nil, &Error{Code: ErrCodeUnsupportedType, Type: t, Field: f.Name,
				Message: fmt.Sprintf("unsupported column type %v", f.Type)}
		}

		if _, dup := table.byName[col.Name]; dup {
			return nil, &Error{Code: ErrCodeDuplicateColumn, Type: t, Field: f.Name,
				Message: fmt.Sprintf("column %q declared twice", col.Name)}
		}

		if tag.pk {
			col.PrimaryKey = true
			table.PrimaryKey = col
		}
		if tag.version {
			if f.Type.Kind() != reflect.Int64 {
				return nil, &Error{Code: ErrCodeUnsupportedType, Type: t, Field: f.Name,
					Message: "version field must be int64"}
			}
			col.Version = true
			table.Version = col
		}

		table.Columns = append(table.Columns, col)
		table.byName[col.Name] = col
		table.byField[f.Name] = col
	}

	if table.PrimaryKey == nil {
		return nil, &Error{Code: ErrCodeNoPrimaryKey, Type: t, Message: "entity has no primary key column"}
	}

	p.byName[table.Name] = t
	return table, nil
}

// joinTable synthesizes the many-to-many table of collection field f.
// Caller holds p.mu.
func (p *Provider) joinTable(owner reflect.Type, f reflect.StructField) (*Table, error) {
	target := f.Type.Elem()
	leftKey, ok := primaryKeyField(owner.Elem())
	if !ok {
		return nil, &Error{Code: ErrCodeNoPrimaryKey, Type: owner, Message: "entity has no primary key column"}
	}
	rightKey, _ := primaryKeyField(target.Elem())

	name := fmt.Sprintf("%s_%s_%s", p.tableName(owner), f.Name, p.tableName(target))
	st := reflect.StructOf([]reflect.StructField{
		{Name: "Left", Type: leftKey.Type, Tag: reflect.StructTag(fmt.Sprintf(`orm:"Left" mtm:%q`, name))},
		{Name: "Right", Type: rightKey.Type, Tag: `orm:"Right"`},
	})
	t := reflect.PointerTo(st)
	if existing, ok := p.tables[t]; ok {
		return existing, nil
	}

	table := &Table{
		Schema:  p.schema,
		Name:    name,
		Type:    t,
		Mtm:     true,
		byName:  map[string]*Column{},
		byField: map[string]*Column{},
		rels:    map[string]*Relation{},
	}
	for i, side := range []string{"Left", "Right"} {
		field := st.Field(i)
		col := &Column{Name: side, Field: side, Index: field.Index, Type: field.Type, Kind: ColumnPrimitive}
		table.Columns = append(table.Columns, col)
		table.byName[side] = col
		table.byField[side] = col
	}
	p.tables[t] = table
	p.byName[name] = t
	return table, nil
}

func (p *Provider) tableName(t reflect.Type) string {
	if name, ok := p.names[t]; ok {
		return name
	}
	if namer, ok := reflect.New(t.Elem()).Interface().(TableNamer); ok {
		return namer.TableName()
	}
	return t.Elem().Name()
}

type tagOptions struct {
	name    string
	skip    bool
	pk      bool
	version bool
	json    bool
	flags   bool
	mtm     bool
}

func parseTag(f reflect.StructField) tagOptions {
	opts := tagOptions{name: f.Name}
	raw, ok := f.Tag.Lookup("orm")
	if !ok {
		return opts
	}
	if raw == "-" {
		opts.skip = true
		return opts
	}
	parts := strings.Split(raw, ",")
	if parts[0] != "" {
		opts.name = parts[0]
	}
	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "pk":
			opts.pk = true
		case "version":
			opts.version = true
		case "json":
			opts.json = true
		case "flags":
			opts.flags = true
		case "mtm":
			opts.mtm = true
		}
	}
	return opts
}

// ColumnName returns the column name a struct field binds to, honoring
// the `orm` tag. It applies to projection types as well as entities.
func ColumnName(f reflect.StructField) string {
	return parseTag(f).name
}

func entityPointer(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Struct {
		return reflect.PointerTo(t)
	}
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		return t
	}
	return nil
}

func isEntity(t reflect.Type) bool {
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return false
	}
	_, ok := primaryKeyField(t.Elem())
	return ok
}

func primaryKeyField(st reflect.Type) (reflect.StructField, bool) {
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.IsExported() && parseTag(f).pk {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// IsPrimitive reports whether t maps to a single scalar SQL value.
// Pointers to primitives are nullable primitives.
func IsPrimitive(t reflect.Type) bool { return isPrimitive(t) }

func isPrimitive(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType, uuidType, bytesType:
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isDocument(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Interface:
		return true
	}
	return false
}
