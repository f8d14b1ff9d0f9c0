package main

import (
	"fmt"
	"path/filepath"

	"github.com/acksell/ddbsdl/dynamodb/ddbgen"
	"github.com/spf13/cobra"
)

func newGenCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:     "gen",
		Aliases: []string{"generate"},
		Short:   "Generate the data layer, CDC mains, schema dump and template",
		Long: `Generate writes into output.dir:
  - tables_gen.go, <model>_gen.go, enums_gen.go and cdc_gen.go
  - cmd/<unit>/main.go for every dispatcher, trigger and enricher
  - schema_dynamodb.yaml
  - the CloudFormation template at infra.template

Nothing is written when the schema has errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, cfg, err := a.generator(cmd)
			if err != nil {
				return err
			}
			var out *ddbgen.Output
			if dryRun {
				out, err = g.Build()
			} else {
				out, err = g.Generate()
			}
			if err != nil {
				return err
			}
			for _, p := range out.Paths() {
				if rel, err := filepath.Rel(cfg.Dir, p); err == nil {
					p = rel
				}
				fmt.Fprintln(cmd.OutOrStdout(), filepath.ToSlash(p))
			}
			return nil
		},
	}
	ddbgen.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the files without writing them")
	return cmd
}
