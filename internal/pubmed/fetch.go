// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/pharma-extractor/internal/errs"
	"github.com/pdiddy/pharma-extractor/pkg/types"
)

// FetchOutput holds the parsed records in response order and every entry
// that could not become a record.
type FetchOutput struct {
	Records []types.ArticleRecord
	Dropped []types.DroppedRecord
}

// Drop reasons.
const (
	ReasonMissingPMID  = "missing PMID"
	ReasonMissingTitle = "missing title"
	ReasonDuplicate    = "duplicate identifier"
	ReasonBook         = "book record not supported"
)

// FetchDetails retrieves article records for the first maxResults
// identifiers of result (DefaultMaxResults when maxResults <= 0). The
// identifiers go out in sequential efetch batches together with the
// WebEnv/QueryKey from the search, and records come back in the order the
// server returned them. Records are not filtered here: authors are
// classified but articles without industry authors are kept.
func (c *Client) FetchDetails(ctx context.Context, result types.SearchResult, maxResults int) (FetchOutput, error) {
	const op = "pubmed.fetch"

	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	ids := result.IDs
	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	if len(ids) == 0 {
		return FetchOutput{}, nil
	}
	if result.WebEnv == "" || result.QueryKey == "" {
		return FetchOutput{}, errs.New(errs.KindPubMedAPI, op, "search result has identifiers but no WebEnv/QueryKey")
	}

	var (
		out     FetchOutput
		seen    = make(map[string]bool, len(ids))
		entries int
		invalid int
	)
	for start := 0; start < len(ids); start += c.cfg.FetchBatchSize {
		end := min(start+c.cfg.FetchBatchSize, len(ids))

		body, err := c.fetchBatch(ctx, result, ids[start:end], start)
		if err != nil {
			return FetchOutput{}, err
		}

		set, err := parseArticleSet(body)
		if err != nil {
			return FetchOutput{}, err
		}

		for _, e := range set {
			index := entries
			entries++

			if e.book != nil {
				out.Dropped = append(out.Dropped, c.drop(strings.TrimSpace(e.book.PMID), index, ReasonBook))
				continue
			}

			rec, reason := c.buildRecord(e.article)
			if reason != "" {
				invalid++
				out.Dropped = append(out.Dropped, c.drop(rec.PMID, index, reason))
				continue
			}
			if seen[rec.PMID] {
				out.Dropped = append(out.Dropped, c.drop(rec.PMID, index, ReasonDuplicate))
				continue
			}
			seen[rec.PMID] = true
			out.Records = append(out.Records, rec)
		}

		c.log.Debug("fetched batch",
			zap.Int("start", start),
			zap.Int("requested", end-start),
			zap.Int("entries", len(set)))
	}

	if entries > 0 && invalid == entries {
		return FetchOutput{}, errs.New(errs.KindDataProcessing, op,
			"none of the %d fetched entries had the required PMID and title", entries)
	}

	c.log.Info("fetch complete",
		zap.Int("requested", len(ids)),
		zap.Int("records", len(out.Records)),
		zap.Int("dropped", len(out.Dropped)))
	return out, nil
}

func (c *Client) fetchBatch(ctx context.Context, result types.SearchResult, ids []string, start int) ([]byte, error) {
	const op = "pubmed.fetch"

	form := url.Values{
		"db":        {"pubmed"},
		"retmode":   {"xml"},
		"rettype":   {"abstract"},
		"id":        {strings.Join(ids, ",")},
		"WebEnv":    {result.WebEnv},
		"query_key": {result.QueryKey},
		"retstart":  {strconv.Itoa(start)},
		"retmax":    {strconv.Itoa(len(ids))},
	}
	c.identify(form)

	req, err := newRequest(ctx, op, http.MethodPost, c.fetchURL(), form)
	if err != nil {
		return nil, err
	}
	return c.roundTrip(ctx, op, req)
}

func (c *Client) drop(pmid string, index int, reason string) types.DroppedRecord {
	c.log.Warn("dropping PubMed entry",
		zap.String("pmid", pmid),
		zap.Int("index", index),
		zap.String("reason", reason))
	return types.DroppedRecord{PMID: pmid, Index: index, Reason: reason}
}
