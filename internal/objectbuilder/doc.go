// Package objectbuilder creates and fills Go values from column values.
//
// Struct fields bind to columns by name, honoring the `orm` tag. Values
// coming from database drivers are converted to the field type: integer
// and float widening, text and byte slices, booleans stored as integers,
// timestamps stored as text, UUIDs and anything implementing sql.Scanner.
//
// The builder knows nothing about relations; callers decide which
// columns to pass.
package objectbuilder
