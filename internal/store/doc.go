// Package store is the per-transaction identity map.
//
// A Store holds at most one live instance per (entity type, primary key).
// Materialization consults it before allocating an entity and stores the
// new instance before following its relations, which is what lets cyclic
// and shared references resolve to the same object instead of recursing
// forever.
//
// # Remembered Versions
//
// Next to each instance the store keeps the Version column value that was
// last read for it. Change tracking compares these against the database
// when the transaction writes.
//
// # Thread Safety
//
// A Store belongs to exactly one transaction and is not safe for
// concurrent use. Materialization mutates it inline while reading rows.
package store
