package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FrenchMajesty/descriptor-classifier/pkg/classification"
)

type showOptions struct {
	jsonOutput bool
}

// classificationView is the JSON shape of a stored classification
type classificationView struct {
	TypeName       string              `json:"type_name"`
	UID            string              `json:"uuid"`
	MaxLabel       string              `json:"max_label"`
	Classification *classification.Map `json:"classification"`
}

func newShowCmd(a *app) *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show <type> <uid>",
		Short: "Show the stored classification of a descriptor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, a, args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the classification as JSON")

	return cmd
}

func runShow(cmd *cobra.Command, a *app, typeName, uid string, opts *showOptions) error {
	f, err := a.Factory()
	if err != nil {
		return err
	}

	res, err := f.NewClassification(typeName, uid)
	if err != nil {
		return err
	}

	m, err := res.GetClassification()
	if err != nil {
		return fmt.Errorf("%s/%s: %w", typeName, uid, err)
	}

	return printClassification(cmd.OutOrStdout(), typeName, uid, m, opts.jsonOutput)
}

func printClassification(w io.Writer, typeName, uid string, m *classification.Map, jsonOutput bool) error {
	maxLabel, _ := m.Max()

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(classificationView{
			TypeName:       typeName,
			UID:            uid,
			MaxLabel:       maxLabel,
			Classification: m,
		})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s/%s\n", typeName, uid)
	fmt.Fprintln(tw, "LABEL\tCONFIDENCE\t")
	for label, conf := range m.All() {
		marker := ""
		if label == maxLabel {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%s\n", label, conf, marker)
	}
	return tw.Flush()
}
