package transaction

import (
	"fmt"
	"reflect"

	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// ChangeKind identifies the statement that made a change.
type ChangeKind int

const (
	ChangeInsert ChangeKind = iota
	ChangeUpdate
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change is one write of a transaction.
type Change struct {
	Kind ChangeKind

	// Type is the entity type written.
	Type reflect.Type

	// Versions maps each Version value found among the matching rows
	// before the write to the number of rows carrying it. Nil for inserts.
	Versions map[int64]int64

	// NewVersion is the version stamped by inserts and updates.
	NewVersion int64

	// Affected is the row count reported by the statement.
	Affected int64

	// Predicate is the translated filter of updates and deletes.
	Predicate sqlexpr.Expression

	CacheKey string
}

// Expected returns the number of rows the captured versions account for.
func (c *Change) Expected() int64 {
	var n int64
	for _, count := range c.Versions {
		n += count
	}
	return n
}

// Reconciled reports whether the statement affected exactly the captured
// rows. Inserts always reconcile.
func (c *Change) Reconciled() bool {
	if c.Kind == ChangeInsert {
		return true
	}
	return c.Affected == c.Expected()
}
