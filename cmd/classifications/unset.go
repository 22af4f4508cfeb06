package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUnsetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <type> <uid>",
		Short: "Remove the stored classification of a descriptor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnset(a, args[0], args[1])
		},
	}
}

func runUnset(a *app, typeName, uid string) error {
	f, err := a.Factory()
	if err != nil {
		return err
	}
	if err := f.Delete(typeName, uid); err != nil {
		return fmt.Errorf("%s/%s: %w", typeName, uid, err)
	}

	a.log.Info().Str("type_name", typeName).Str("uuid", uid).Msg("removed classification")
	return nil
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored classifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.Factory()
			if err != nil {
				return err
			}
			n, err := f.Count()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
}
