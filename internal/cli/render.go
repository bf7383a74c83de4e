package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/warning-explosive/Core-sub004/internal/compiler"
	"github.com/warning-explosive/Core-sub004/internal/expr"
)

// RenderedQuery is the SQL of one compiled query.
type RenderedQuery struct {
	Name       string         `json:"name" yaml:"name"`
	SQL        string         `json:"sql" yaml:"sql"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <specs-dir> [query]",
		Short: "Print the SQL of compiled queries",
		Long: `Compile CUE specs and print the parameterized SQL and the parameter
values of every query, or of the named one. Nothing is executed and no
database connection is opened.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return runRender(rootOpts, args[0], name, cmd)
		},
	}

	return cmd
}

func runRender(opts *RootOptions, specsDir, name string, cmd *cobra.Command) error {
	env, err := prepare(opts, specsDir, cmd)
	if err != nil {
		return err
	}

	queries := env.spec.Queries
	if name != "" {
		q, err := env.lookup(name)
		if err != nil {
			return err
		}
		queries = []*compiler.Query{q}
	}

	p, err := env.renderer()
	if err != nil {
		return err
	}

	rendered := make([]RenderedQuery, 0, len(queries))
	for _, q := range queries {
		n := q.Node
		if q.Explain {
			n = expr.Explain(n, q.Analyze)
		}
		out, err := p.Render(n)
		if err != nil {
			return outputError(env.formatter, ExitFailure, ErrCodeGeneric, fmt.Sprintf("render query %s: %v", q.Name, err))
		}
		env.formatter.VerboseLog("Rendered query: %s", q.Name)
		rendered = append(rendered, RenderedQuery{Name: q.Name, SQL: out.Text, Parameters: out.Args()})
	}

	if env.formatter.structured() {
		return env.formatter.Success(rendered)
	}

	w := env.formatter.Writer
	for i, r := range rendered {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "-- %s\n%s;\n", r.Name, r.SQL)

		names := make([]string, 0, len(r.Parameters))
		for name := range r.Parameters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "-- @%s = %s\n", name, formatValue(r.Parameters[name]))
		}
	}
	return nil
}
