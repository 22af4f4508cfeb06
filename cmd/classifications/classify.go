package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
	"github.com/FrenchMajesty/descriptor-classifier/pkg/classifier"
)

type classifyOptions struct {
	centroidsPath string
	typeName      string
	overwrite     bool
	batchSize     int
}

func newClassifyCmd(a *app) *cobra.Command {
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify <uid>...",
		Short: "Classify descriptors from the vector index against labelled centroids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, a, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.centroidsPath, "centroids", "", "CSV file of label,v1,v2,... reference vectors")
	cmd.Flags().StringVar(&opts.typeName, "type", "", "Type name results are stored under (default: Centroid)")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Reclassify descriptors that already have a classification")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Descriptors per vector fetch (default: from config)")
	_ = cmd.MarkFlagRequired("centroids")

	return cmd
}

func runClassify(cmd *cobra.Command, a *app, uids []string, opts *classifyOptions) error {
	routine, err := loadCentroids(opts.centroidsPath)
	if err != nil {
		return err
	}

	factory, err := a.Factory()
	if err != nil {
		return err
	}

	err = a.withIndex(func(ix vectorIndex) error {
		return classifyFromIndex(cmd, a, ix, factory, routine, uids, opts)
	})
	if err != nil {
		a.log.Error().Err(err).Int("descriptors", len(uids)).Msg("classification failed")
	}
	return err
}

func classifyFromIndex(cmd *cobra.Command, a *app, ix vectorIndex, factory *classification.Factory, routine *centroidClassifier, uids []string, opts *classifyOptions) error {
	clf, err := classifier.New(routine, classifier.Config{
		TypeName:  opts.typeName,
		Factory:   factory,
		Fetcher:   ix,
		BatchSize: a.cfg.BatchSize,
		Logger:    &a.log,
	})
	if err != nil {
		return err
	}

	runOpts := []classifier.Option{classifier.WithOverwrite(opts.overwrite)}
	if opts.batchSize > 0 {
		runOpts = append(runOpts, classifier.WithBatchSize(opts.batchSize))
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tLABEL\tCONFIDENCE")
	for res, err := range clf.ClassifyElements(cmd.Context(), slices.Values(ix.Elements(uids...)), runOpts...) {
		if err != nil {
			_ = tw.Flush()
			return err
		}
		label, err := classification.MaxLabel(res)
		if err != nil {
			return err
		}
		conf, err := classification.Confidence(res, label)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%.4f\n", res.UID(), label, conf)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	m := clf.GetMetrics()
	a.log.Info().
		Str("type_name", clf.TypeName()).
		Int("classified", m.Classified).
		Int("skipped", m.Skipped).
		Int("fetches", m.VectorFetches).
		Msg("classification complete")
	return nil
}
