package cli

import (
	"context"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/warning-explosive/Core-sub004/internal/model"
)

// QueryResult is the structured output of the query command.
type QueryResult struct {
	Query   string           `json:"query" yaml:"query"`
	Columns []string         `json:"columns" yaml:"columns"`
	Rows    []map[string]any `json:"rows" yaml:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <specs-dir> <name>",
		Short: "Run a compiled query and print its rows",
		Long: `Compile CUE specs, run the named query against the configured
database and print the materialized rows.

The query runs in its own transaction, which is rolled back afterwards.

Example:
  orm query ./specs bigOrders
  orm query ./specs bigOrders --format json --config ./orm.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runQuery(ctx context.Context, opts *RootOptions, specsDir, name string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := prepare(opts, specsDir, cmd)
	if err != nil {
		return err
	}
	q, err := env.lookup(name)
	if err != nil {
		return err
	}

	p, closeDB, err := env.connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	s, err := p.Begin(ctx)
	if err != nil {
		return outputError(env.formatter, ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer s.Rollback(ctx)

	values, err := s.Query(ctx, q.Node)
	if err != nil {
		return outputError(env.formatter, ExitFailure, ErrCodeDatabase, fmt.Sprintf("query %s: %v", name, err))
	}
	env.formatter.VerboseLog("Query %s returned %d row(s)", name, len(values))

	columns, rows, err := tabulate(env.models, q.Item, values)
	if err != nil {
		return outputError(env.formatter, ExitFailure, ErrCodeGeneric, err.Error())
	}

	if env.formatter.structured() {
		result := QueryResult{Query: name, Columns: columns, Rows: make([]map[string]any, len(rows))}
		for i, row := range rows {
			result.Rows[i] = make(map[string]any, len(columns))
			for j, col := range columns {
				result.Rows[i][col] = row[j]
			}
		}
		return env.formatter.Success(result)
	}

	env.formatter.Table(columns, rows)
	return nil
}

// tabulate flattens materialized values into named columns. Entities
// list their columns with relations shown as the referenced key; row
// structs list their fields; anything else is a single value column.
func tabulate(models *model.Provider, item reflect.Type, values []reflect.Value) ([]string, [][]any, error) {
	rows := make([][]any, 0, len(values))

	if models.IsEntity(item) {
		table, err := models.Table(item)
		if err != nil {
			return nil, nil, err
		}
		columns := table.ColumnNames()
		for _, v := range values {
			row := make([]any, 0, len(table.Columns))
			for _, col := range table.Columns {
				cell, err := columnValue(models, col, v.Elem().FieldByIndex(col.Index))
				if err != nil {
					return nil, nil, err
				}
				row = append(row, cell)
			}
			rows = append(rows, row)
		}
		return columns, rows, nil
	}

	if item.Kind() == reflect.Struct {
		columns := make([]string, item.NumField())
		for i := range columns {
			columns[i] = model.ColumnName(item.Field(i))
		}
		for _, v := range values {
			row := make([]any, item.NumField())
			for i := range row {
				row[i] = plain(v.Field(i))
			}
			rows = append(rows, row)
		}
		return columns, rows, nil
	}

	for _, v := range values {
		rows = append(rows, []any{plain(v)})
	}
	return []string{"value"}, rows, nil
}

func columnValue(models *model.Provider, col *model.Column, v reflect.Value) (any, error) {
	if col.Relation == nil {
		return plain(v), nil
	}
	if v.IsNil() {
		return nil, nil
	}
	target, err := models.Table(col.Relation.Target)
	if err != nil {
		return nil, err
	}
	return plain(v.Elem().FieldByIndex(target.PrimaryKey.Index)), nil
}

// plain dereferences pointers so nullable columns print their value.
func plain(v reflect.Value) any {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}
