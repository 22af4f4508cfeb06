package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/vector"
)

type vectorsOptions struct {
	put string
}

func newVectorsCmd(a *app) *cobra.Command {
	opts := &vectorsOptions{}

	cmd := &cobra.Command{
		Use:   "vectors <uid>...",
		Short: "Show or store descriptor vectors in the vector index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.put != "" {
				return runPutVector(cmd, a, args, opts.put)
			}
			return runShowVectors(cmd, a, args)
		},
	}

	cmd.Flags().StringVar(&opts.put, "put", "", "Store the comma separated values as the vector of the single given uid")

	return cmd
}

func runShowVectors(cmd *cobra.Command, a *app, uids []string) error {
	return a.withIndex(func(ix vectorIndex) error {
		vectors, err := ix.GetManyVectors(cmd.Context(), ix.Elements(uids...))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, v := range vectors {
			if v == nil {
				fmt.Fprintf(out, "%s\t<missing>\n", uids[i])
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", uids[i], v)
		}
		return nil
	})
}

func runPutVector(cmd *cobra.Command, a *app, uids []string, raw string) error {
	if len(uids) != 1 {
		return fmt.Errorf("--put takes exactly one uid, got %d", len(uids))
	}

	v, err := parseVector(raw)
	if err != nil {
		return err
	}

	return a.withIndex(func(ix vectorIndex) error {
		if err := ix.SetVector(cmd.Context(), uids[0], v); err != nil {
			return err
		}
		a.log.Info().Str("uuid", uids[0]).Int("dim", v.Len()).Msg("stored vector")
		return nil
	})
}

// parseVector parses comma separated floats
func parseVector(raw string) (vector.Array, error) {
	fields := strings.Split(raw, ",")
	values := make([]float64, 0, len(fields))
	for _, field := range fields {
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return vector.Array{}, fmt.Errorf("invalid vector value %q: %w", field, err)
		}
		values = append(values, f)
	}
	return vector.New(values...), nil
}
