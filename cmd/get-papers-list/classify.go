// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pharma-extractor/internal/affiliation"
)

var classifyCmd = &cobra.Command{
	Use:   "classify AFFILIATION...",
	Short: "Show how affiliation strings are classified",
	Long: `Classify runs each argument through the affiliation classifier with the
configured keyword lists and prints whether it counts as academic or
non-academic, together with the extracted company name and e-mail.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	classifier, err := newClassifier()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, a := range args {
		v := classifier.Classify(a)
		kind := "academic"
		if v.NonAcademic {
			kind = "non-academic"
		}
		fmt.Fprintf(out, "%-12s  %q", kind, a)
		if v.Company != "" {
			fmt.Fprintf(out, "  company=%q", v.Company)
		}
		if email := affiliation.ExtractEmail(a); email != "" {
			fmt.Fprintf(out, "  email=%s", email)
		}
		fmt.Fprintln(out)
	}
	return nil
}
