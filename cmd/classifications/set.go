package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
)

type setOptions struct {
	merge      bool
	jsonOutput bool
}

func newSetCmd(a *app) *cobra.Command {
	opts := &setOptions{}

	cmd := &cobra.Command{
		Use:   "set <type> <uid> <label=confidence>...",
		Short: "Store a classification for a descriptor",
		Long: "Store a classification for a descriptor. The given labels replace the stored\n" +
			"classification unless --merge is set, in which case they update it.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, a, args[0], args[1], args[2:], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.merge, "merge", false, "Update the stored classification instead of replacing it")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the stored classification as JSON")

	return cmd
}

func runSet(cmd *cobra.Command, a *app, typeName, uid string, rawPairs []string, opts *setOptions) error {
	pairs, err := parsePairs(rawPairs)
	if err != nil {
		return err
	}

	f, err := a.Factory()
	if err != nil {
		return err
	}

	res, err := f.NewClassification(typeName, uid)
	if err != nil {
		return err
	}

	var base *classification.Map
	if opts.merge {
		base, err = res.GetClassification()
		if err != nil && !errors.Is(err, classification.ErrNoClassification) {
			return err
		}
	}

	stored, err := res.SetClassification(base, pairs...)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", typeName, uid, err)
	}

	a.log.Info().
		Str("type_name", typeName).
		Str("uuid", uid).
		Int("labels", stored.Len()).
		Msg("stored classification")

	return printClassification(cmd.OutOrStdout(), typeName, uid, stored, opts.jsonOutput)
}

// parsePairs parses label=confidence arguments
func parsePairs(args []string) ([]classification.Pair, error) {
	pairs := make([]classification.Pair, 0, len(args))
	for _, arg := range args {
		label, raw, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("invalid pair %q: expected label=confidence", arg)
		}
		conf, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid confidence in %q: %w", arg, err)
		}
		if conf < 0 || conf > 1 {
			return nil, fmt.Errorf("invalid confidence in %q: must be within [0, 1]", arg)
		}
		pairs = append(pairs, classification.Pair{Label: strings.TrimSpace(label), Confidence: conf})
	}
	return pairs, nil
}
