package main

import (
	"errors"
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/ddbgen"
	"github.com/acksell/ddbsdl/dynamodb/sdl"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the schema and list every error",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, _, err := a.generator(cmd)
			if err != nil {
				return err
			}
			tables, err := g.Extract()
			var errs sdl.SchemaErrors
			if errors.As(err, &errs) {
				for _, e := range errs {
					fmt.Fprintln(cmd.ErrOrStderr(), e.Error())
				}
				return fmt.Errorf("%d schema errors", len(errs))
			}
			if err != nil {
				return err
			}
			models := 0
			for _, t := range tables {
				models += len(t.Models)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d tables, %d models\n", len(tables), models)
			return nil
		},
	}
	ddbgen.RegisterFlags(cmd.Flags())
	return cmd
}
