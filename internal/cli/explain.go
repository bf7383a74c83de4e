package cli

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Analyze bool
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <specs-dir> <name>",
		Short: "Print the PostgreSQL plan of a compiled query",
		Long: `Compile CUE specs and print the JSON execution plan of the named
query. With --analyze the query is executed to collect actual timings.

Queries declared with analyze: true are always analyzed.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Analyze, "analyze", false, "execute the query and include actual timings")

	return cmd
}

func runExplain(ctx context.Context, opts *ExplainOptions, specsDir, name string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := prepare(opts.RootOptions, specsDir, cmd)
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
	// ANALYZE executes the statement, so never commit.
	defer s.Rollback(ctx)

	plan, err := s.Explain(ctx, q.Node, opts.Analyze || q.Analyze)
	if err != nil {
		return outputError(env.formatter, ExitFailure, ErrCodeDatabase, fmt.Sprintf("explain %s: %v", name, err))
	}

	if env.formatter.structured() {
		// The plan is already JSON; decode it so it nests as data
		// instead of a quoted string.
		var doc any
		if err := json.Unmarshal([]byte(plan), &doc); err != nil {
			return env.formatter.Success(plan)
		}
		return env.formatter.Success(doc)
	}

	fmt.Fprintln(env.formatter.Writer, plan)
	return nil
}
