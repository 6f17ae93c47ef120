// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/pharma-extractor/internal/affiliation"
	"github.com/pdiddy/pharma-extractor/internal/errs"
	"github.com/pdiddy/pharma-extractor/pkg/types"
)

// efetch XML structures (PubmedArticleSet DTD, the parts we read).
type pubmedArticle struct {
	PMID    string         `xml:"MedlineCitation>PMID"`
	Article medlineArticle `xml:"MedlineCitation>Article"`
}

type medlineArticle struct {
	Title        text          `xml:"ArticleTitle"`
	PubDate      pubDate       `xml:"Journal>JournalIssue>PubDate"`
	ArticleDates []articleDate `xml:"ArticleDate"`
	Authors      []author      `xml:"AuthorList>Author"`
}

type pubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

type articleDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

type author struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	CollectiveName text   `xml:"CollectiveName"`
	Affiliations   []text `xml:"AffiliationInfo>Affiliation"`
}

type pubmedBookArticle struct {
	PMID string `xml:"BookDocument>PMID"`
}

type eFetchError struct {
	Error string `xml:"ERROR"`
}

// text collects all character data inside an element, including text
// nested in inline markup such as <i> or <sup>, with whitespace collapsed.
type text string

func (t *text) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.CharData:
			b.Write(v)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = text(strings.Join(strings.Fields(b.String()), " "))
				return nil
			}
			depth--
		}
	}
}

// entry is one child of PubmedArticleSet, in document order.
type entry struct {
	article pubmedArticle
	book    *pubmedBookArticle
}

// parseArticleSet streams an efetch payload. The root must be
// PubmedArticleSet; an eFetchResult root carries a server-side error.
func parseArticleSet(body []byte) ([]entry, error) {
	const op = "pubmed.fetch"

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errs.New(errs.KindDataProcessing, op, "empty efetch response")
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Entity = xml.HTMLEntity

	root, err := nextStart(dec)
	if err != nil {
		return nil, errs.Wrap(errs.KindDataProcessing, op, err, "parsing efetch response")
	}
	switch root.Name.Local {
	case "PubmedArticleSet":
	case "eFetchResult":
		var fe eFetchError
		if err := dec.DecodeElement(&fe, &root); err != nil {
			return nil, errs.Wrap(errs.KindDataProcessing, op, err, "parsing efetch error envelope")
		}
		return nil, errs.New(errs.KindPubMedAPI, op, "PubMed rejected the fetch: %s", strings.TrimSpace(fe.Error))
	default:
		return nil, errs.New(errs.KindDataProcessing, op, "unexpected root element <%s> in efetch response", root.Name.Local)
	}

	var out []entry
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errs.Wrap(errs.KindDataProcessing, op, err, "parsing efetch response")
		}
		switch v := tok.(type) {
		case xml.StartElement:
			switch v.Name.Local {
			case "PubmedArticle":
				var a pubmedArticle
				if err := dec.DecodeElement(&a, &v); err != nil {
					return nil, errs.Wrap(errs.KindDataProcessing, op, err, "parsing PubmedArticle %d", len(out))
				}
				out = append(out, entry{article: a})
			case "PubmedBookArticle":
				var b pubmedBookArticle
				if err := dec.DecodeElement(&b, &v); err != nil {
					return nil, errs.Wrap(errs.KindDataProcessing, op, err, "parsing PubmedBookArticle %d", len(out))
				}
				out = append(out, entry{book: &b})
			default:
				if err := dec.Skip(); err != nil {
					return nil, errs.Wrap(errs.KindDataProcessing, op, err, "parsing efetch response")
				}
			}
		case xml.EndElement:
			// End of PubmedArticleSet.
			return out, nil
		}
	}
}

func nextStart(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return xml.StartElement{}, fmt.Errorf("no root element")
		}
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// buildRecord reduces one article to an ArticleRecord. A non-empty reason
// means the article lacks a required field; rec.PMID is still set when
// known so the drop can be attributed.
func (c *Client) buildRecord(a pubmedArticle) (rec types.ArticleRecord, reason string) {
	rec.PMID = strings.TrimSpace(a.PMID)
	if rec.PMID == "" {
		return rec, ReasonMissingPMID
	}
	rec.Title = string(a.Article.Title)
	if rec.Title == "" {
		return rec, ReasonMissingTitle
	}
	rec.PublicationDate = formatDate(a.Article.PubDate, a.Article.ArticleDates)

	companies := make(map[string]bool)
	for _, au := range a.Article.Authors {
		name := au.fullName()
		nonAcademic := false

		for _, aff := range au.Affiliations {
			affText := string(aff)
			if rec.CorrespondingEmail == "" {
				rec.CorrespondingEmail = affiliation.ExtractEmail(affText)
			}
			verdict := c.classifier.Classify(affText)
			if !verdict.NonAcademic {
				continue
			}
			nonAcademic = true
			if verdict.Company != "" && !companies[verdict.Company] {
				companies[verdict.Company] = true
				rec.CompanyAffiliations = append(rec.CompanyAffiliations, verdict.Company)
			}
		}

		if !nonAcademic {
			continue
		}
		if name == "" {
			c.log.Debug("non-academic affiliation on unnamed author", zap.String("pmid", rec.PMID))
			continue
		}
		rec.NonAcademicAuthors = append(rec.NonAcademicAuthors, name)
	}
	return rec, ""
}

// fullName returns "ForeName LastName", falling back to the last name
// alone and then to a collective (group) name.
func (a author) fullName() string {
	fore := strings.TrimSpace(a.ForeName)
	last := strings.TrimSpace(a.LastName)
	switch {
	case fore != "" && last != "":
		return fore + " " + last
	case last != "":
		return last
	default:
		return string(a.CollectiveName)
	}
}

var yearPattern = regexp.MustCompile(`\b(1[89]|20)\d{2}\b`)

var monthNames = map[string]string{
	"jan": "01", "feb": "02", "mar": "03", "apr": "04", "may": "05", "jun": "06",
	"jul": "07", "aug": "08", "sep": "09", "oct": "10", "nov": "11", "dec": "12",
}

// formatDate renders the journal issue date as YYYY-MM-DD, dropping
// trailing parts that are missing. MedlineDate ("2023 Jan-Feb") yields the
// year only; with no issue date the electronic ArticleDate is used.
func formatDate(p pubDate, electronic []articleDate) string {
	if y := strings.TrimSpace(p.Year); y != "" {
		return joinDate(y, p.Month, p.Day)
	}
	if y := yearPattern.FindString(p.MedlineDate); y != "" {
		return y
	}
	for _, d := range electronic {
		if y := strings.TrimSpace(d.Year); y != "" {
			return joinDate(y, d.Month, d.Day)
		}
	}
	return ""
}

func joinDate(year, month, day string) string {
	m := normalizeMonth(month)
	if m == "" {
		return year
	}
	d := normalizeDay(day)
	if d == "" {
		return year + "-" + m
	}
	return year + "-" + m + "-" + d
}

func normalizeMonth(s string) string {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return fmt.Sprintf("%02d", n)
		}
		return ""
	}
	if len(s) < 3 {
		return ""
	}
	return monthNames[strings.ToLower(s[:3])]
}

func normalizeDay(s string) string {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 31 {
		return ""
	}
	return fmt.Sprintf("%02d", n)
}
