package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
)

func newImplsCmd() *cobra.Command {
	var showDefaults bool

	cmd := &cobra.Command{
		Use:   "impls",
		Short: "List the available classification store implementations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := classification.Implementations()
			if !showDefaults {
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			// Rendered as a `classification:` block ready for a config file
			configs := make(map[string]classification.FactoryConfig, len(names))
			for _, name := range names {
				defaults, err := classification.DefaultConfig(name)
				if err != nil {
					return err
				}
				configs[name] = classification.FactoryConfig{Type: name, Config: defaults}
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(configs); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&showDefaults, "defaults", false, "Show each implementation's default configuration")

	return cmd
}
