package main

import (
	"github.com/Konsultn-Engineering/gsql"
	"github.com/spf13/cobra"
)

type ExecOptions struct {
	*RootOptions
	Args []string
}

func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <sql>",
		Short: "Prepare a statement and execute it with positional arguments",
		Long: `Prepare a statement, bind each --arg in order and execute it once.
An argument of null, true or false, or one that parses as a number, is
bound with that type; anything else is bound as text.

Example:
  gsql exec --arg 42 --arg bob "INSERT INTO users (id, name) VALUES (?, ?)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Args, "arg", "a", nil, "positional argument (repeatable)")

	return cmd
}

func runExec(cmd *cobra.Command, opts *ExecOptions, sql string) error {
	values, err := parseArgs(opts.Args)
	if err != nil {
		return err
	}

	client, err := opts.connect(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := contextOf(cmd)
	index, err := client.PrepareContext(ctx, sql)
	if err != nil {
		return err
	}
	defer client.Delete(index)

	p, err := client.ExecuteContext(ctx, index, nil, values...)
	if err != nil {
		return err
	}
	return report(cmd.OutOrStdout(), opts.Format, p.Wait())
}

func parseArgs(raw []string) ([]gsql.Value, error) {
	args := make([]any, len(raw))
	for i, s := range raw {
		args[i] = parseScalar(s)
	}
	return gsql.Values(args...)
}
