// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one extraction: validate the request, search
// PubMed, fetch and classify the matching articles, keep the ones with
// industry authors and write them out.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/pharma-extractor/internal/errs"
	"github.com/pdiddy/pharma-extractor/internal/output"
	"github.com/pdiddy/pharma-extractor/internal/pubmed"
	"github.com/pdiddy/pharma-extractor/internal/validate"
	"github.com/pdiddy/pharma-extractor/pkg/types"
)

// Source is the remote side of a run. *pubmed.Client implements it.
type Source interface {
	Search(ctx context.Context, query string) (types.SearchResult, error)
	FetchDetails(ctx context.Context, result types.SearchResult, maxResults int) (pubmed.FetchOutput, error)
}

// Request describes one run.
type Request struct {
	Query string

	// OutputPath is the result file. When empty the records are written
	// to Stdout instead.
	OutputPath string
	Stdout     io.Writer

	// Format is "csv" or "json", case-insensitive; empty means csv.
	Format string

	// MaxResults bounds the fetch; zero means pubmed.DefaultMaxResults.
	MaxResults int

	// SummaryPath, when set, receives a YAML run summary.
	SummaryPath string
}

// Report describes a completed run.
type Report struct {
	RunID   string
	Query   string
	Format  types.OutputFormat
	Matched int
	Fetched int
	Parsed  int
	Records []types.ArticleRecord
	Dropped []types.DroppedRecord
}

// Run executes req against src. Every returned error is an *errs.Error;
// validation failures are reported before any network call.
func Run(ctx context.Context, src Source, req Request, log *zap.Logger) (Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	report := Report{RunID: uuid.NewString()}
	log = log.With(zap.String("run_id", report.RunID))

	query, format, maxResults, err := check(req)
	if err != nil {
		return report, err
	}
	report.Query = query
	report.Format = format

	start := time.Now()
	log.Info("starting run",
		zap.String("query", query),
		zap.Int("max_results", maxResults),
		zap.String("format", string(format)))

	result, err := src.Search(ctx, query)
	if err != nil {
		return report, errs.Ensure("pipeline.search", err)
	}
	report.Matched = result.Count
	report.Fetched = min(len(result.IDs), maxResults)

	var fetched pubmed.FetchOutput
	if !result.IsEmpty() {
		fetched, err = src.FetchDetails(ctx, result, maxResults)
		if err != nil {
			return report, errs.Ensure("pipeline.fetch", err)
		}
	} else {
		log.Info("query matched no articles", zap.String("query", query))
	}
	report.Parsed = len(fetched.Records)
	report.Dropped = fetched.Dropped
	report.Records = Assemble(fetched.Records)

	if err := emit(req, format, report.Records); err != nil {
		return report, err
	}

	if req.SummaryPath != "" {
		if err := output.WriteSummary(req.SummaryPath, summarize(req, report, maxResults)); err != nil {
			return report, err
		}
	}

	log.Info("run complete",
		zap.Int("matched", report.Matched),
		zap.Int("fetched", report.Fetched),
		zap.Int("parsed", report.Parsed),
		zap.Int("dropped", len(report.Dropped)),
		zap.Int("industry", len(report.Records)),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

func check(req Request) (string, types.OutputFormat, int, error) {
	query, err := validate.Query(req.Query)
	if err != nil {
		return "", "", 0, err
	}

	format := types.OutputCSV
	if req.Format != "" {
		if format, err = validate.Format(req.Format); err != nil {
			return "", "", 0, err
		}
	}

	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = pubmed.DefaultMaxResults
	}
	if err := validate.MaxResults(maxResults); err != nil {
		return "", "", 0, err
	}

	if req.OutputPath != "" {
		if err := validate.Filename(req.OutputPath); err != nil {
			return "", "", 0, err
		}
	} else if req.Stdout == nil {
		return "", "", 0, errs.New(errs.KindValidation, "pipeline.check", "no output file and no output stream")
	}
	if req.SummaryPath != "" {
		if err := validate.Filename(req.SummaryPath); err != nil {
			return "", "", 0, err
		}
	}
	return query, format, maxResults, nil
}

func emit(req Request, format types.OutputFormat, records []types.ArticleRecord) error {
	const op = "pipeline.output"

	if req.OutputPath != "" {
		return output.Write(records, req.OutputPath, format)
	}

	var err error
	if format == types.OutputJSON {
		err = output.EncodeJSON(req.Stdout, records)
	} else {
		err = output.EncodeCSV(req.Stdout, records)
	}
	if err != nil {
		return errs.Wrap(errs.KindOutput, op, err, "writing results")
	}
	return nil
}

func summarize(req Request, r Report, maxResults int) output.Summary {
	dest := req.OutputPath
	if dest == "" {
		dest = "-"
	}
	return output.Summary{
		RunID: r.RunID,
		Query: output.SummaryQuery{
			Term:       r.Query,
			MaxResults: maxResults,
			Format:     string(r.Format),
		},
		Counts: output.SummaryCounts{
			Matched:  r.Matched,
			Fetched:  r.Fetched,
			Parsed:   r.Parsed,
			Dropped:  len(r.Dropped),
			Industry: len(r.Records),
		},
		Dropped:   r.Dropped,
		Output:    dest,
		Timestamp: time.Now().UTC(),
	}
}
