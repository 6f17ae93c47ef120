// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/pharma-extractor/internal/errs"
	"github.com/pdiddy/pharma-extractor/pkg/types"
)

// Search runs esearch for query and returns the matching identifiers with
// the WebEnv/QueryKey pair needed by FetchDetails. A query with no matches
// is not an error: the result simply has no IDs.
func (c *Client) Search(ctx context.Context, query string) (types.SearchResult, error) {
	const op = "pubmed.search"

	params := url.Values{
		"db":         {"pubmed"},
		"term":       {query},
		"retmode":    {"xml"},
		"usehistory": {"y"},
		"retmax":     {strconv.Itoa(c.cfg.MaxResults)},
	}
	c.identify(params)

	req, err := newRequest(ctx, op, http.MethodGet, c.searchURL(), params)
	if err != nil {
		return types.SearchResult{}, err
	}

	body, err := c.roundTrip(ctx, op, req)
	if err != nil {
		return types.SearchResult{}, err
	}

	parsed, err := parseSearch(body)
	if err != nil {
		return types.SearchResult{}, err
	}
	for _, w := range parsed.notices() {
		c.log.Warn("esearch notice", zap.String("query", query), zap.String("notice", w))
	}

	result, err := parsed.result()
	if err != nil {
		return types.SearchResult{}, err
	}

	c.log.Info("search complete",
		zap.String("query", query),
		zap.Int("total", result.Count),
		zap.Int("ids", len(result.IDs)))
	return result, nil
}

// esearch XML structures.
type eSearchResult struct {
	XMLName  xml.Name `xml:"eSearchResult"`
	Count    string   `xml:"Count"`
	RetMax   string   `xml:"RetMax"`
	QueryKey string   `xml:"QueryKey"`
	WebEnv   string   `xml:"WebEnv"`
	IDs      []string `xml:"IdList>Id"`
	Error    string   `xml:"ERROR"`

	ErrorList struct {
		PhraseNotFound []string `xml:"PhraseNotFound"`
		FieldNotFound  []string `xml:"FieldNotFound"`
	} `xml:"ErrorList"`

	WarningList struct {
		PhraseIgnored        []string `xml:"PhraseIgnored"`
		QuotedPhraseNotFound []string `xml:"QuotedPhraseNotFound"`
		OutputMessage        []string `xml:"OutputMessage"`
	} `xml:"WarningList"`
}

// parseSearch decodes an esearch envelope. Empty bodies, malformed XML,
// a foreign root element, and top-level <ERROR> are API contract
// violations.
func parseSearch(body []byte) (*eSearchResult, error) {
	const op = "pubmed.search"

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errs.New(errs.KindPubMedAPI, op, "empty response from PubMed")
	}

	var r eSearchResult
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Entity = xml.HTMLEntity
	if err := dec.Decode(&r); err != nil {
		return nil, errs.Wrap(errs.KindPubMedAPI, op, err, "malformed esearch response")
	}
	if msg := strings.TrimSpace(r.Error); msg != "" {
		return nil, errs.New(errs.KindPubMedAPI, op, "PubMed rejected the query: %s", msg)
	}
	return &r, nil
}

// notices lists the phrase-level problems PubMed reported without failing
// the search.
func (r *eSearchResult) notices() []string {
	var out []string
	add := func(label string, items []string) {
		for _, it := range items {
			out = append(out, label+": "+strings.TrimSpace(it))
		}
	}
	add("phrase not found", r.ErrorList.PhraseNotFound)
	add("field not found", r.ErrorList.FieldNotFound)
	add("phrase ignored", r.WarningList.PhraseIgnored)
	add("quoted phrase not found", r.WarningList.QuotedPhraseNotFound)
	add("output message", r.WarningList.OutputMessage)
	return out
}

// result converts the envelope into a SearchResult, enforcing that a
// non-empty ID list comes with a history handle.
func (r *eSearchResult) result() (types.SearchResult, error) {
	const op = "pubmed.search"

	ids := make([]string, 0, len(r.IDs))
	for _, id := range r.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	count := len(ids)
	if s := strings.TrimSpace(r.Count); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return types.SearchResult{}, errs.Wrap(errs.KindPubMedAPI, op, err, "invalid Count %q", s)
		}
		count = n
	}

	out := types.SearchResult{
		IDs:      ids,
		WebEnv:   strings.TrimSpace(r.WebEnv),
		QueryKey: strings.TrimSpace(r.QueryKey),
		Count:    count,
	}
	if len(out.IDs) > 0 && (out.WebEnv == "" || out.QueryKey == "") {
		return types.SearchResult{}, errs.New(errs.KindPubMedAPI, op, "missing QueryKey or WebEnv in esearch response")
	}
	return out, nil
}
