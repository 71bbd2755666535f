package main

import (
	"github.com/Konsultn-Engineering/gsql"
	"github.com/spf13/cobra"
)

type QueryOptions struct {
	*RootOptions
	Params []string
}

func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <template>",
		Short: "Substitute parameters into a template and run it",
		Long: `Substitute --param values into the {{name}} placeholders of a template
and run the result. Values are substituted as text: escaped for the
driver but neither quoted nor converted.

Example:
  gsql query -d app.db --driver sqlite3 \
    --param name=bob "SELECT * FROM users WHERE name = '{{name}}'"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "template parameter as name=value (repeatable)")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions, template string) error {
	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}

	client, err := opts.connect(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	p, err := client.QueryContext(contextOf(cmd), template, nil, params)
	if err != nil {
		return err
	}
	return report(cmd.OutOrStdout(), opts.Format, p.Wait())
}

func parseParams(raw []string) (gsql.Params, error) {
	params := make(gsql.Params, len(raw))
	for _, kv := range raw {
		name, value, err := splitParam(kv)
		if err != nil {
			return nil, err
		}
		params[name] = value
	}
	return params, nil
}
