package database

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"

	"github.com/warning-explosive/Core-sub004/internal/objectbuilder"
	"github.com/warning-explosive/Core-sub004/internal/render"
)

// Args binds the parameters of cmd for the driver of d.
//
// PostgreSQL receives a single pgx.NamedArgs, which pgx rewrites into
// positional placeholders. SQLite receives one sql.Named per parameter;
// slices other than []byte are passed as array literals since SQLite has
// no array type.
func (d *DB) Args(cmd *render.Command) ([]any, error) {
	if len(cmd.Parameters) == 0 {
		return nil, nil
	}

	switch d.driver {
	case Postgres:
		named := make(pgx.NamedArgs, len(cmd.Parameters))
		for _, p := range cmd.Parameters {
			named[p.Name] = p.Value
		}
		return []any{named}, nil

	case SQLite:
		args := make([]any, 0, len(cmd.Parameters))
		for _, p := range cmd.Parameters {
			v, err := sqliteValue(p.Value)
			if err != nil {
				return nil, fmt.Errorf("bind parameter %s: %w", p.Name, err)
			}
			args = append(args, sql.Named(p.Name, v))
		}
		return args, nil
	}
	return nil, fmt.Errorf("bind parameters: unsupported driver %q", d.driver)
}

func sqliteValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(driver.Valuer); ok {
		return v, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		return objectbuilder.FormatArray(v)
	}
	return v, nil
}
