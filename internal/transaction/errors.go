package transaction

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrCodeConcurrencyConflict marks a failed commit-time reconciliation.
const ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"

// ConcurrencyError reports a change whose affected-row count does not
// match the versions captured before it ran. The transaction has been
// rolled back when this error is returned.
type ConcurrencyError struct {
	Transaction uuid.UUID
	Change      *Change
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("%s: %s of %v affected %d rows, expected %d (versions=%v, transaction=%s)",
		ErrCodeConcurrencyConflict,
		e.Change.Kind, e.Change.Type,
		e.Change.Affected, e.Change.Expected(),
		e.Change.Versions, e.Transaction)
}

// IsConcurrencyError reports whether err is or wraps a ConcurrencyError.
func IsConcurrencyError(err error) bool {
	var ce *ConcurrencyError
	return errors.As(err, &ce)
}

// ErrFinished is returned when a committed or rolled back transaction is
// used again.
var ErrFinished = errors.New("transaction already finished")
