// Package query executes host expressions against the database and
// materializes typed results.
//
// A Provider owns the pipeline shared by every transaction: the
// translator, the registered SQL translators and a cache of rendered
// commands keyed by cache key. A Session binds the provider to one
// transaction; queries and commands always run inside it.
//
// # Materialization
//
// Entity rows go through the transaction's identity map. An instance is
// looked up by primary key before it is allocated; a known instance is
// filled in place, a new one is stored before its relations are followed.
// To-one relations are resolved before many-to-many collections, and the
// collections of an entity are loaded once, when it is first built. When
// the item type has relations, the result set is read to the end before
// the first relation round trip so the connection is free for it.
//
// Flags columns arrive as arrays of set bits and JSON columns as
// documents; both are decoded before the row reaches the object builder.
// A row that still does not fit its type fails the whole sequence.
package query
