package main

import (
	"fmt"
	"os"

	"github.com/acksell/ddbsdl/dynamodb/ddbgen"
	"github.com/acksell/ddbsdl/dynamodb/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// app holds the persistent flags shared by every command.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	log        *logrus.Logger
}

func execute() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ddb: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ddb",
		Short:         "SDL to DynamoDB data layer compiler",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.logFormat != "text" && a.logFormat != "json" {
				return fmt.Errorf("unknown log format %q", a.logFormat)
			}
			a.log = logging.New(a.logLevel, a.logFormat, cmd.ErrOrStderr())
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to "+ddbgen.ConfigFile+" (default: nearest one above the working directory)")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&a.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		newGenCmd(a),
		newValidateCmd(a),
		newSchemaCmd(a),
		newVersionCmd(),
	)
	return root
}

// generator loads the configuration with the flags of cmd applied.
func (a *app) generator(cmd *cobra.Command) (*ddbgen.Generator, *ddbgen.Config, error) {
	cfg, err := ddbgen.LoadConfig(a.configPath, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	a.log.WithField("dir", cfg.Dir).Debug("loaded config")
	return ddbgen.New(cfg, a.log), cfg, nil
}
