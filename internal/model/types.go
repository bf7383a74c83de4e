package model

import (
	"reflect"
)

// ColumnKind classifies how a column value is stored.
type ColumnKind int

const (
	ColumnPrimitive ColumnKind = iota
	ColumnArray
	ColumnFlags
	ColumnJSON
	ColumnRelation
)

func (k ColumnKind) String() string {
	switch k {
	case ColumnPrimitive:
		return "primitive"
	case ColumnArray:
		return "array"
	case ColumnFlags:
		return "flags"
	case ColumnJSON:
		return "json"
	case ColumnRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// Column is a stored column of a table.
type Column struct {
	Name       string       // column name in the database
	Field      string       // Go field name
	Index      []int        // field index for reflect.Value.FieldByIndex
	Type       reflect.Type // Go field type
	Kind       ColumnKind
	PrimaryKey bool
	Version    bool

	// Relation is set for ColumnRelation columns.
	Relation *Relation
}

// Relation is a navigation property between two entities.
type Relation struct {
	Field    string       // Go field name on the owner
	Index    []int        // field index on the owner
	Owner    reflect.Type // owning entity type (*Owner)
	Target   reflect.Type // referenced entity type (*Target)
	Column   string       // foreign key column, empty for collections
	Multiple bool

	// Join is the many-to-many join table for collections.
	Join *Table
}

// Table describes the storage of one entity type.
type Table struct {
	Schema string
	Name   string

	// Type is the entity type, a pointer to struct.
	Type reflect.Type

	// Columns are the stored columns in field order. Relation columns hold
	// foreign keys; collections have no column.
	Columns   []*Column
	Relations []*Relation

	PrimaryKey *Column
	Version    *Column

	// Mtm marks synthesized many-to-many join tables.
	Mtm bool

	byName  map[string]*Column
	byField map[string]*Column
	rels    map[string]*Relation
}

// Column returns the column with the given database name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// ColumnByField returns the column stored for a Go field.
func (t *Table) ColumnByField(field string) (*Column, bool) {
	c, ok := t.byField[field]
	return c, ok
}

// Relation returns the relation declared by a Go field.
func (t *Table) Relation(field string) (*Relation, bool) {
	r, ok := t.rels[field]
	return r, ok
}

// ColumnNames returns the stored column names in field order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Collections returns the many-to-many relations.
func (t *Table) Collections() []*Relation {
	var out []*Relation
	for _, r := range t.Relations {
		if r.Multiple {
			out = append(out, r)
		}
	}
	return out
}

// References returns the to-one relations.
func (t *Table) References() []*Relation {
	var out []*Relation
	for _, r := range t.Relations {
		if !r.Multiple {
			out = append(out, r)
		}
	}
	return out
}

// TableNamer overrides the table name of an entity type.
type TableNamer interface {
	TableName() string
}
