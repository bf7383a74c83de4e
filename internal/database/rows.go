package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Rows is a result set holding its statement context open.
type Rows struct {
	*sql.Rows
	cancel  context.CancelFunc
	columns []string
}

// Close closes the result set and releases its statement context.
func (r *Rows) Close() error {
	err := r.Rows.Close()
	r.cancel()
	return err
}

// ScanMap reads the current row into a map keyed by column name.
func (r *Rows) ScanMap() (map[string]any, error) {
	if r.columns == nil {
		cols, err := r.Columns()
		if err != nil {
			return nil, fmt.Errorf("read columns: %w", err)
		}
		r.columns = cols
	}

	values := make([]any, len(r.columns))
	dest := make([]any, len(r.columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	row := make(map[string]any, len(r.columns))
	for i, name := range r.columns {
		row[name] = values[i]
	}
	return row, nil
}

// Drain reads every remaining row and closes the result set.
func (r *Rows) Drain() ([]map[string]any, error) {
	defer r.Close()

	var out []map[string]any
	for r.Next() {
		row, err := r.ScanMap()
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return out, nil
}
