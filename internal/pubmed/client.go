// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed talks to the NCBI E-utilities. A query runs in two
// sequential phases: Search (esearch with usehistory=y) returns the
// matching PubMed IDs plus a history-server handle, and FetchDetails
// (efetch) retrieves the article records for those IDs, classifying every
// author affiliation along the way.
//
// Every error returned by this package is an *errs.Error: transport
// failures are KindNetwork, bad statuses and contract violations are
// KindPubMedAPI, and unparseable article payloads are KindDataProcessing.
package pubmed

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/pharma-extractor/internal/affiliation"
	"github.com/pdiddy/pharma-extractor/internal/errs"
	"github.com/pdiddy/pharma-extractor/internal/httputil"
	"github.com/pdiddy/pharma-extractor/pkg/types"
)

// E-utilities endpoints. Declared as vars so tests can substitute an
// httptest server; PubMedConfig.SearchURL/FetchURL take precedence.
var (
	esearchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	efetchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

const (
	// DefaultMaxResults bounds both the esearch retmax and the number of
	// identifiers fetched when the caller gives no limit.
	DefaultMaxResults = 50

	defaultBatchSize = 200
	defaultTimeout   = 30 * time.Second
	defaultTool      = "pharma-extractor"
	defaultUserAgent = "pharma-extractor/0.1"
)

// Client runs esearch/efetch round trips. It holds no per-query state, so
// one Client can serve any number of independent queries.
type Client struct {
	http       *http.Client
	cfg        types.PubMedConfig
	classifier *affiliation.Classifier
	log        *zap.Logger
}

// NewClient fills unset configuration with defaults. A nil classifier
// uses affiliation.Default and a nil logger discards output.
func NewClient(cfg types.PubMedConfig, classifier *affiliation.Classifier, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Tool == "" {
		cfg.Tool = defaultTool
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.FetchBatchSize <= 0 {
		cfg.FetchBatchSize = defaultBatchSize
	}
	if classifier == nil {
		classifier = affiliation.Default
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		classifier: classifier,
		log:        log.Named("pubmed"),
	}
}

// Config returns the effective configuration after defaults.
func (c *Client) Config() types.PubMedConfig { return c.cfg }

func (c *Client) searchURL() string {
	if c.cfg.SearchURL != "" {
		return c.cfg.SearchURL
	}
	return esearchURL
}

func (c *Client) fetchURL() string {
	if c.cfg.FetchURL != "" {
		return c.cfg.FetchURL
	}
	return efetchURL
}

// identify adds the tool/email pair NCBI asks every client to send.
func (c *Client) identify(params url.Values) {
	params.Set("tool", c.cfg.Tool)
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}
}

func (c *Client) policy(op string) httputil.Policy {
	return httputil.Policy{
		MaxAttempts: c.cfg.Retry.MaxAttempts,
		BaseDelay:   c.cfg.Retry.BaseDelay,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			c.log.Warn("retrying PubMed request",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(err))
		},
	}
}

// roundTrip sends req under the retry policy and maps failures onto the
// error taxonomy.
func (c *Client) roundTrip(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	body, err := httputil.DoWithRetry(ctx, c.http, req, c.policy(op))
	if err == nil {
		return body, nil
	}

	var se *httputil.StatusError
	switch {
	case errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests:
		return nil, errs.Wrap(errs.KindPubMedAPI, op, err, "rate limit exceeded after retries")
	case errors.As(err, &se):
		return nil, errs.Wrap(errs.KindPubMedAPI, op, err, "PubMed returned an error status")
	case errors.Is(err, context.Canceled):
		return nil, errs.Wrap(errs.KindNetwork, op, err, "request cancelled")
	case httputil.IsTimeout(err):
		return nil, errs.Wrap(errs.KindNetwork, op, err, "request timed out")
	default:
		return nil, errs.Wrap(errs.KindNetwork, op, err, "PubMed request failed")
	}
}

func newRequest(ctx context.Context, op, method, target string, form url.Values) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, target+"?"+form.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindUnexpected, op, err, "creating request")
	}
	return req, nil
}
