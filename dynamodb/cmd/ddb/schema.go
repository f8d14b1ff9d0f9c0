package main

import (
	"encoding/json"
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/ddbgen"
	"github.com/spf13/cobra"
)

func newSchemaCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the extracted tables as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, _, err := a.generator(cmd)
			if err != nil {
				return err
			}
			doc, err := g.Document()
			if err != nil {
				return err
			}
			var out []byte
			switch format {
			case "yaml":
				out, err = ddbgen.MarshalDocument(doc)
			case "json":
				out, err = json.MarshalIndent(doc, "", "  ")
				out = append(out, '\n')
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	ddbgen.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}
