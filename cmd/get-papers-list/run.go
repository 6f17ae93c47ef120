// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/pharma-extractor/internal/affiliation"
	"github.com/pdiddy/pharma-extractor/internal/errs"
	"github.com/pdiddy/pharma-extractor/internal/logger"
	"github.com/pdiddy/pharma-extractor/internal/pipeline"
	"github.com/pdiddy/pharma-extractor/internal/pubmed"
	"github.com/pdiddy/pharma-extractor/internal/validate"
	"github.com/pdiddy/pharma-extractor/pkg/types"
)

func runExtract(cmd *cobra.Command, args []string) error {
	log, err := logger.New(logConfig(cmd))
	if err != nil {
		return errs.Wrap(errs.KindValidation, "cli", err, "configuring logging")
	}
	defer func() { _ = log.Sync() }()

	classifier, err := newClassifier()
	if err != nil {
		return err
	}

	cfg := pubmedConfig()
	if cmd.Flags().Changed("max-results") {
		n, _ := cmd.Flags().GetInt("max-results")
		if err := validate.MaxResults(n); err != nil {
			return err
		}
		cfg.MaxResults = n
	}
	client := pubmed.NewClient(cfg, classifier, log)
	maxResults := client.Config().MaxResults

	file, _ := cmd.Flags().GetString("file")
	format, _ := cmd.Flags().GetString("format")
	if format == "" && strings.EqualFold(filepath.Ext(file), ".json") {
		format = string(types.OutputJSON)
	}
	summary, _ := cmd.Flags().GetString("summary")

	report, err := pipeline.Run(cmd.Context(), client, pipeline.Request{
		Query:       strings.Join(args, " "),
		OutputPath:  file,
		Stdout:      cmd.OutOrStdout(),
		Format:      format,
		MaxResults:  maxResults,
		SummaryPath: summary,
	}, log)
	if err != nil {
		log.Debug("run failed", zap.String("run_id", report.RunID), zap.Error(err))
		return err
	}

	if file != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d of %d fetched papers to %s\n",
			len(report.Records), report.Fetched, file)
	}
	if len(report.Dropped) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d PubMed entries could not be parsed (run with --debug or --summary for details)\n",
			len(report.Dropped))
	}
	return nil
}

func newClassifier() (*affiliation.Classifier, error) {
	kw, err := affiliation.KeywordsFromConfig(classifierConfig())
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, "cli", err, "loading classifier keywords")
	}
	return affiliation.NewClassifier(kw), nil
}
