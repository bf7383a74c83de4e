// Package model maps Go entity types to relational table metadata.
//
// Entities are pointers to structs described with `orm` tags:
//
//	type Order struct {
//	    ID         int64     `orm:"Id,pk"`
//	    CustomerID int64     `orm:"CustomerId"`
//	    Customer   *Customer `orm:"Customer"`
//	    Tags       []*Tag    `orm:"Tags,mtm"`
//	    Version    int64     `orm:"Version,version"`
//	}
//
// Tag options:
//   - pk: primary key column (required for entities)
//   - version: optimistic concurrency stamp
//   - json: store the field as a JSON document
//   - flags: integer enum flags stored as an integer array
//   - mtm: many-to-many collection backed by a join table
//
// A pointer field to another entity is a to-one relation whose column holds
// the referenced primary key. Fields tagged `orm:"-"` are ignored.
//
// The table name is the struct name unless the type implements TableNamer.
// Many-to-many join tables are synthesized with reflect.StructOf and are
// named <Owner>_<Field>_<Target>.
package model
