// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pharma-extractor/internal/errs"
	"github.com/pdiddy/pharma-extractor/internal/httputil"
	"github.com/pdiddy/pharma-extractor/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const sampleSearchXML = `<?xml version="1.0" encoding="UTF-8" ?>
<!DOCTYPE eSearchResult PUBLIC "-//NLM//DTD esearch 20060628//EN" "https://eutils.ncbi.nlm.nih.gov/eutils/dtd/20060628/esearch.dtd">
<eSearchResult>
  <Count>2</Count><RetMax>2</RetMax><RetStart>0</RetStart>
  <QueryKey>1</QueryKey>
  <WebEnv>MCID_6543</WebEnv>
  <IdList><Id>111</Id><Id>222</Id></IdList>
  <TranslationSet/>
  <TranslationStack><TermSet><Term>acne</Term><Field>All Fields</Field><Count>99</Count></TermSet></TranslationStack>
</eSearchResult>`

const emptySearchXML = `<eSearchResult>
  <Count>0</Count><RetMax>0</RetMax><RetStart>0</RetStart>
  <IdList/>
  <ErrorList><PhraseNotFound>zzqxv</PhraseNotFound></ErrorList>
</eSearchResult>`

const sampleFetchXML = `<?xml version="1.0" ?>
<!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2024//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_240101.dtd">
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation Status="MEDLINE" Owner="NLM">
      <PMID Version="1">111</PMID>
      <Article PubModel="Print">
        <Journal>
          <JournalIssue CitedMedium="Internet">
            <PubDate><Year>2023</Year><Month>Mar</Month><Day>7</Day></PubDate>
          </JournalIssue>
        </Journal>
        <ArticleTitle>Topical <i>retinoid</i> trial in acne.</ArticleTitle>
        <AuthorList CompleteYN="Y">
          <Author ValidYN="Y">
            <LastName>Smith</LastName><ForeName>A</ForeName>
            <AffiliationInfo><Affiliation>Pharma Corp, NY. a.smith@pharmacorp.com</Affiliation></AffiliationInfo>
          </Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation Status="MEDLINE" Owner="NLM">
      <PMID Version="1">222</PMID>
      <Article PubModel="Print">
        <Journal>
          <JournalIssue><PubDate><MedlineDate>2022 Nov-Dec</MedlineDate></PubDate></JournalIssue>
        </Journal>
        <ArticleTitle>Acne in adolescents.</ArticleTitle>
        <AuthorList>
          <Author>
            <LastName>Lee</LastName><ForeName>B</ForeName>
            <AffiliationInfo><Affiliation>State University</Affiliation></AffiliationInfo>
          </Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

type eutilsServer struct {
	*httptest.Server

	mu          sync.Mutex
	searchCalls int32
	fetchForms  []map[string]string
}

// newEutilsServer serves esearch at /esearch and efetch at /efetch.
func newEutilsServer(t *testing.T, search, fetch http.HandlerFunc) *eutilsServer {
	t.Helper()
	s := &eutilsServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.searchCalls, 1)
		search(w, r)
	})
	mux.HandleFunc("/efetch", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		s.mu.Lock()
		s.fetchForms = append(s.fetchForms, form)
		s.mu.Unlock()
		fetch(w, r)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *eutilsServer) forms() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.fetchForms...)
}

func (s *eutilsServer) client(cfg types.PubMedConfig) *Client {
	cfg.SearchURL = s.URL + "/esearch"
	cfg.FetchURL = s.URL + "/efetch"
	return NewClient(cfg, nil, nil)
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, body)
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

// --- Search ---

func TestSearch(t *testing.T) {
	var gotQuery map[string]string
	srv := newEutilsServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"db": q.Get("db"), "term": q.Get("term"), "usehistory": q.Get("usehistory"),
			"retmax": q.Get("retmax"), "tool": q.Get("tool"), "email": q.Get("email"),
		}
		respond(sampleSearchXML)(w, r)
	}, nil)

	c := srv.client(types.PubMedConfig{Email: "dev@example.com", MaxResults: 25})
	res, err := c.Search(context.Background(), "acne AND pharmaceutical")
	require.NoError(t, err)

	assert.Equal(t, []string{"111", "222"}, res.IDs)
	assert.Equal(t, "MCID_6543", res.WebEnv)
	assert.Equal(t, "1", res.QueryKey)
	assert.Equal(t, 2, res.Count)

	assert.Equal(t, map[string]string{
		"db": "pubmed", "term": "acne AND pharmaceutical", "usehistory": "y",
		"retmax": "25", "tool": "pharma-extractor", "email": "dev@example.com",
	}, gotQuery)
}

func TestSearchNoMatchesIsNotAnError(t *testing.T) {
	srv := newEutilsServer(t, respond(emptySearchXML), nil)

	res, err := srv.client(types.PubMedConfig{}).Search(context.Background(), "zzqxv")
	require.NoError(t, err)
	assert.Empty(t, res.IDs)
	assert.True(t, res.IsEmpty())
	assert.Equal(t, 0, res.Count)
}

func TestSearchContractViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", "   "},
		{"malformed xml", "<eSearchResult><Count>2</Count>"},
		{"wrong root", "<html><body>maintenance</body></html>"},
		{"server error element", "<eSearchResult><ERROR>Invalid db name specified: pubmedx</ERROR></eSearchResult>"},
		{"missing webenv", "<eSearchResult><Count>1</Count><QueryKey>1</QueryKey><IdList><Id>1</Id></IdList></eSearchResult>"},
		{"missing query key", "<eSearchResult><Count>1</Count><WebEnv>X</WebEnv><IdList><Id>1</Id></IdList></eSearchResult>"},
		{"bad count", "<eSearchResult><Count>many</Count></eSearchResult>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newEutilsServer(t, respond(tt.body), nil)
			_, err := srv.client(types.PubMedConfig{}).Search(context.Background(), "acne")
			require.Error(t, err)
			assert.Equal(t, errs.KindPubMedAPI, errs.KindOf(err), err.Error())
		})
	}
}

func TestSearchClientErrorStatusNotRetried(t *testing.T) {
	srv := newEutilsServer(t, status(http.StatusBadRequest), nil)

	_, err := srv.client(types.PubMedConfig{}).Search(context.Background(), "acne")
	assert.ErrorIs(t, err, errs.PubMedAPI)
	assert.Equal(t, int32(1), atomic.LoadInt32(&srv.searchCalls))
}

func TestSearchServerErrorRetriedThenAPIError(t *testing.T) {
	srv := newEutilsServer(t, status(http.StatusServiceUnavailable), nil)

	_, err := srv.client(types.PubMedConfig{Retry: types.RetryConfig{MaxAttempts: 3}}).Search(context.Background(), "acne")
	assert.ErrorIs(t, err, errs.PubMedAPI)
	assert.Equal(t, int32(3), atomic.LoadInt32(&srv.searchCalls))
}

func TestSearchRateLimitedThenSucceeds(t *testing.T) {
	var calls int32
	srv := newEutilsServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		respond(sampleSearchXML)(w, r)
	}, nil)

	res, err := srv.client(types.PubMedConfig{}).Search(context.Background(), "acne")
	require.NoError(t, err)
	assert.Len(t, res.IDs, 2)
}

// hang blocks until the client gives up on the request.
func hang(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(5 * time.Second):
	}
}

func TestSearchTimesOutTwiceThenSucceeds(t *testing.T) {
	var calls int32
	srv := newEutilsServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			hang(w, r)
			return
		}
		respond(sampleSearchXML)(w, r)
	}, nil)

	c := srv.client(types.PubMedConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 50 * time.Millisecond},
		Retry:      types.RetryConfig{MaxAttempts: 3},
	})
	res, err := c.Search(context.Background(), "acne")
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, res.IDs)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSearchTimesOutEveryAttempt(t *testing.T) {
	srv := newEutilsServer(t, hang, nil)

	c := srv.client(types.PubMedConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 50 * time.Millisecond},
		Retry:      types.RetryConfig{MaxAttempts: 3},
	})
	_, err := c.Search(context.Background(), "acne")
	require.Error(t, err)
	assert.Equal(t, errs.KindNetwork, errs.KindOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&srv.searchCalls))
}

func TestSearchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := NewClient(types.PubMedConfig{SearchURL: addr + "/esearch", Retry: types.RetryConfig{MaxAttempts: 2}}, nil, nil)
	_, err := c.Search(context.Background(), "acne")
	assert.ErrorIs(t, err, errs.Network)
}

// --- FetchDetails ---

func TestFetchDetails(t *testing.T) {
	srv := newEutilsServer(t, nil, respond(sampleFetchXML))
	c := srv.client(types.PubMedConfig{})

	out, err := c.FetchDetails(context.Background(), types.SearchResult{
		IDs: []string{"111", "222"}, WebEnv: "MCID_6543", QueryKey: "1",
	}, 10)
	require.NoError(t, err)
	require.Len(t, out.Records, 2)
	assert.Empty(t, out.Dropped)

	first := out.Records[0]
	assert.Equal(t, "111", first.PMID)
	assert.Equal(t, "Topical retinoid trial in acne.", first.Title)
	assert.Equal(t, "2023-03-07", first.PublicationDate)
	assert.Equal(t, []string{"A Smith"}, first.NonAcademicAuthors)
	assert.Equal(t, []string{"Pharma Corp"}, first.CompanyAffiliations)
	assert.Equal(t, "a.smith@pharmacorp.com", first.CorrespondingEmail)

	second := out.Records[1]
	assert.Equal(t, "222", second.PMID)
	assert.Equal(t, "2022", second.PublicationDate)
	assert.Empty(t, second.NonAcademicAuthors)
	assert.Empty(t, second.CompanyAffiliations)
	assert.Empty(t, second.CorrespondingEmail)

	forms := srv.forms()
	require.Len(t, forms, 1)
	assert.Equal(t, "111,222", forms[0]["id"])
	assert.Equal(t, "MCID_6543", forms[0]["WebEnv"])
	assert.Equal(t, "1", forms[0]["query_key"])
	assert.Equal(t, "0", forms[0]["retstart"])
	assert.Equal(t, "2", forms[0]["retmax"])
	assert.Equal(t, "pubmed", forms[0]["db"])
}

func TestFetchDetailsTruncatesToMaxResults(t *testing.T) {
	srv := newEutilsServer(t, nil, respond(sampleFetchXML))
	c := srv.client(types.PubMedConfig{})

	ids := []string{"111", "222", "333", "444", "555"}
	_, err := c.FetchDetails(context.Background(), types.SearchResult{IDs: ids, WebEnv: "W", QueryKey: "1"}, 3)
	require.NoError(t, err)

	forms := srv.forms()
	require.Len(t, forms, 1)
	assert.Equal(t, "111,222,333", forms[0]["id"])
	assert.Equal(t, "3", forms[0]["retmax"])
}

func TestFetchDetailsBatchesSequentially(t *testing.T) {
	srv := newEutilsServer(t, nil, respond(sampleFetchXML))
	c := srv.client(types.PubMedConfig{FetchBatchSize: 2})

	ids := []string{"1", "2", "3", "4", "5"}
	out, err := c.FetchDetails(context.Background(), types.SearchResult{IDs: ids, WebEnv: "W", QueryKey: "1"}, 5)
	require.NoError(t, err)

	forms := srv.forms()
	require.Len(t, forms, 3)
	assert.Equal(t, []string{"1,2", "3,4", "5"}, []string{forms[0]["id"], forms[1]["id"], forms[2]["id"]})
	assert.Equal(t, []string{"0", "2", "4"}, []string{forms[0]["retstart"], forms[1]["retstart"], forms[2]["retstart"]})

	// Every batch answered with the same two articles: later copies are
	// reported as duplicates rather than silently merged.
	assert.Len(t, out.Records, 2)
	assert.Len(t, out.Dropped, 4)
	for _, d := range out.Dropped {
		assert.Equal(t, ReasonDuplicate, d.Reason)
	}
}

func TestFetchDetailsDefaultLimit(t *testing.T) {
	srv := newEutilsServer(t, nil, respond(sampleFetchXML))
	c := srv.client(types.PubMedConfig{})

	ids := make([]string, DefaultMaxResults+10)
	for i := range ids {
		ids[i] = fmt.Sprint(i + 1)
	}
	_, err := c.FetchDetails(context.Background(), types.SearchResult{IDs: ids, WebEnv: "W", QueryKey: "1"}, 0)
	require.NoError(t, err)

	forms := srv.forms()
	require.Len(t, forms, 1)
	assert.Len(t, strings.Split(forms[0]["id"], ","), DefaultMaxResults)
}

func TestFetchDetailsEmptySearchMakesNoCall(t *testing.T) {
	srv := newEutilsServer(t, nil, respond(sampleFetchXML))

	out, err := srv.client(types.PubMedConfig{}).FetchDetails(context.Background(), types.SearchResult{}, 10)
	require.NoError(t, err)
	assert.Empty(t, out.Records)
	assert.Empty(t, srv.forms())
}

func TestFetchDetailsMissingHistoryHandle(t *testing.T) {
	srv := newEutilsServer(t, nil, respond(sampleFetchXML))

	_, err := srv.client(types.PubMedConfig{}).FetchDetails(context.Background(), types.SearchResult{IDs: []string{"1"}}, 10)
	assert.ErrorIs(t, err, errs.PubMedAPI)
	assert.Empty(t, srv.forms())
}

func TestFetchDetailsPayloadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind errs.Kind
	}{
		{"not xml", "this is not xml", errs.KindDataProcessing},
		{"truncated", "<PubmedArticleSet><PubmedArticle><MedlineCitation>", errs.KindDataProcessing},
		{"wrong root", "<html></html>", errs.KindDataProcessing},
		{"empty", "", errs.KindDataProcessing},
		{"server error", "<eFetchResult><ERROR>Cannot retrieve query from history</ERROR></eFetchResult>", errs.KindPubMedAPI},
		{"all entries missing title", `<PubmedArticleSet><PubmedArticle><MedlineCitation><PMID>9</PMID><Article></Article></MedlineCitation></PubmedArticle></PubmedArticleSet>`, errs.KindDataProcessing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newEutilsServer(t, nil, respond(tt.body))
			_, err := srv.client(types.PubMedConfig{}).FetchDetails(context.Background(),
				types.SearchResult{IDs: []string{"9"}, WebEnv: "W", QueryKey: "1"}, 10)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.KindOf(err), err.Error())
		})
	}
}

func TestFetchDetailsDropsIncompleteEntries(t *testing.T) {
	body := `<PubmedArticleSet>
  <PubmedArticle><MedlineCitation><Article><ArticleTitle>No id</ArticleTitle></Article></MedlineCitation></PubmedArticle>
  <PubmedArticle><MedlineCitation><PMID>2</PMID><Article><ArticleTitle>  </ArticleTitle></Article></MedlineCitation></PubmedArticle>
  <PubmedBookArticle><BookDocument><PMID>3</PMID></BookDocument></PubmedBookArticle>
  <PubmedArticle><MedlineCitation><PMID>4</PMID><Article><ArticleTitle>Kept</ArticleTitle></Article></MedlineCitation></PubmedArticle>
</PubmedArticleSet>`
	srv := newEutilsServer(t, nil, respond(body))

	out, err := srv.client(types.PubMedConfig{}).FetchDetails(context.Background(),
		types.SearchResult{IDs: []string{"1", "2", "3", "4"}, WebEnv: "W", QueryKey: "1"}, 10)
	require.NoError(t, err)

	require.Len(t, out.Records, 1)
	assert.Equal(t, "4", out.Records[0].PMID)
	assert.Empty(t, out.Records[0].PublicationDate)
	assert.Equal(t, []types.DroppedRecord{
		{PMID: "", Index: 0, Reason: ReasonMissingPMID},
		{PMID: "2", Index: 1, Reason: ReasonMissingTitle},
		{PMID: "3", Index: 2, Reason: ReasonBook},
	}, out.Dropped)
}

func TestFetchDetailsMultipleAuthorsAndAffiliations(t *testing.T) {
	body := `<PubmedArticleSet><PubmedArticle><MedlineCitation><PMID>7</PMID><Article>
  <ArticleTitle>Combined</ArticleTitle>
  <AuthorList>
    <Author><LastName>One</LastName><ForeName>Ann</ForeName>
      <AffiliationInfo><Affiliation>Harvard University, Boston</Affiliation></AffiliationInfo>
      <AffiliationInfo><Affiliation>Novartis Pharma AG, Basel</Affiliation></AffiliationInfo>
    </Author>
    <Author><LastName>Two</LastName><ForeName>Bob</ForeName>
      <AffiliationInfo><Affiliation>Novartis Pharma AG, Basel</Affiliation></AffiliationInfo>
    </Author>
    <Author><LastName>Three</LastName>
      <AffiliationInfo><Affiliation>Genmab A/S, Biotech Unit, Copenhagen. three@genmab.com</Affiliation></AffiliationInfo>
    </Author>
    <Author><CollectiveName>ACNE Study Group</CollectiveName>
      <AffiliationInfo><Affiliation>Contract research organization Ltd, London</Affiliation></AffiliationInfo>
    </Author>
    <Author><LastName>Four</LastName><ForeName>Dee</ForeName></Author>
  </AuthorList>
</Article></MedlineCitation></PubmedArticle></PubmedArticleSet>`
	srv := newEutilsServer(t, nil, respond(body))

	out, err := srv.client(types.PubMedConfig{}).FetchDetails(context.Background(),
		types.SearchResult{IDs: []string{"7"}, WebEnv: "W", QueryKey: "1"}, 10)
	require.NoError(t, err)
	require.Len(t, out.Records, 1)

	rec := out.Records[0]
	assert.Equal(t, []string{"Ann One", "Bob Two", "Three", "ACNE Study Group"}, rec.NonAcademicAuthors)
	assert.Equal(t, []string{"Novartis Pharma AG", "Genmab A/S", "Contract research organization Ltd"}, rec.CompanyAffiliations)
	assert.Equal(t, "three@genmab.com", rec.CorrespondingEmail)
}

func TestFetchDetailsNetworkFailure(t *testing.T) {
	srv := newEutilsServer(t, nil, hang)
	c := srv.client(types.PubMedConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 30 * time.Millisecond},
		Retry:      types.RetryConfig{MaxAttempts: 2},
	})

	_, err := c.FetchDetails(context.Background(), types.SearchResult{IDs: []string{"1"}, WebEnv: "W", QueryKey: "1"}, 10)
	assert.ErrorIs(t, err, errs.Network)
	assert.Len(t, srv.forms(), 2)
}

// --- date handling ---

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name       string
		pub        pubDate
		electronic []articleDate
		want       string
	}{
		{"full numeric", pubDate{Year: "2021", Month: "4", Day: "9"}, nil, "2021-04-09"},
		{"month name", pubDate{Year: "2021", Month: "Sep", Day: "30"}, nil, "2021-09-30"},
		{"long month name", pubDate{Year: "2021", Month: "December"}, nil, "2021-12"},
		{"year only", pubDate{Year: "2019"}, nil, "2019"},
		{"day without month", pubDate{Year: "2019", Day: "3"}, nil, "2019"},
		{"unknown month", pubDate{Year: "2019", Month: "Spring"}, nil, "2019"},
		{"medline date", pubDate{MedlineDate: "1998 Dec-1999 Jan"}, nil, "1998"},
		{"electronic fallback", pubDate{}, []articleDate{{Year: "2024", Month: "02", Day: "29"}}, "2024-02-29"},
		{"nothing", pubDate{}, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDate(tt.pub, tt.electronic))
		})
	}
}
