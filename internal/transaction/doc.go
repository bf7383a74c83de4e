// Package transaction wraps a database transaction with the state the
// ORM keeps per transaction: the identity map, the version stamped on
// every write and the list of changes made so far.
//
// # Optimistic Concurrency
//
// Before an update or delete runs, the caller reads how many matching
// rows exist per Version value. The mutation's affected-row count is
// recorded next to that pre-image. Commit reconciles the two: when a
// change affected a different number of rows than were captured, a
// concurrent writer moved rows in or out of the predicate, so Commit rolls
// back and returns a ConcurrencyError. Nothing is retried; the caller
// decides whether to run the unit of work again.
package transaction
