// Package database executes rendered commands over database/sql.
//
// Two drivers are supported: PostgreSQL through pgx (named parameters
// bound with pgx.NamedArgs) and SQLite through go-sqlite3 (sql.Named,
// arrays encoded as literals). Every statement runs under the configured
// query timeout; the timeout of a query covers reading its rows and ends
// when the rows are closed.
//
// The package also owns the Clock that stamps entity versions. Version
// numbers must keep increasing across process restarts, so Open seeds the
// clock from the wall clock in microseconds.
package database
