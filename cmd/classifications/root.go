package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath    string
	verbose       bool
	humanReadable bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	a := &app{}

	cmd := &cobra.Command{
		Use:           "classifications",
		Short:         "Inspect and produce stored descriptor classifications",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(flags, cmd.Name(), cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.humanReadable, "pretty", false, "Write human readable logs")

	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newSetCmd(a))
	cmd.AddCommand(newUnsetCmd(a))
	cmd.AddCommand(newCountCmd(a))
	cmd.AddCommand(newImplsCmd())
	cmd.AddCommand(newVectorsCmd(a))
	cmd.AddCommand(newClassifyCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
