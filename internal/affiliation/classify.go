// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package affiliation decides whether an author affiliation names an
// academic institution or a company, using two keyword lists evaluated in
// order: academic terms first, then industry terms. Anything that matches
// neither list counts as academic, so unknown affiliations are excluded
// rather than reported as industry.
package affiliation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Classification is the verdict for one affiliation string.
type Classification struct {
	NonAcademic bool
	// Company is the extracted company name; empty for academic verdicts.
	Company string
}

// Classifier evaluates affiliations against compiled keyword lists. A
// Classifier is immutable and safe for concurrent use.
type Classifier struct {
	academic    *regexp.Regexp
	nonAcademic *regexp.Regexp
}

// NewClassifier compiles kw into a Classifier. Empty lists never match.
func NewClassifier(kw Keywords) *Classifier {
	return &Classifier{
		academic:    compileKeywords(kw.Academic),
		nonAcademic: compileKeywords(kw.NonAcademic),
	}
}

// Default uses the built-in keyword lists.
var Default = NewClassifier(DefaultKeywords())

// Classify returns the verdict for affiliation. Empty input is academic.
func (c *Classifier) Classify(affiliation string) Classification {
	cleaned := stripEmails(affiliation)
	text := normalize(cleaned)
	if text == "" {
		return Classification{}
	}
	if matches(c.academic, text) {
		return Classification{}
	}
	if !matches(c.nonAcademic, text) {
		return Classification{}
	}
	return Classification{NonAcademic: true, Company: CompanyName(cleaned)}
}

// CompanyName returns the part of affiliation before the first comma, or
// the whole string when there is no comma or the leading part is blank.
func CompanyName(affiliation string) string {
	full := strings.Join(strings.Fields(affiliation), " ")
	if i := strings.IndexByte(full, ','); i >= 0 {
		if head := strings.TrimSpace(full[:i]); head != "" {
			return head
		}
	}
	return strings.Trim(full, " ;,")
}

var (
	electronicAddress = regexp.MustCompile(`(?i)electronic address:\s*`)
	emailToken        = regexp.MustCompile(`[^\s@,;()<>]+@[^\s@,;()<>]+`)
)

// stripEmails removes e-mail addresses and the "Electronic address:" label
// PubMed appends to affiliations.
func stripEmails(s string) string {
	s = electronicAddress.ReplaceAllString(s, " ")
	return emailToken.ReplaceAllString(s, " ")
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func matches(re *regexp.Regexp, text string) bool {
	return re != nil && re.MatchString(text)
}

// compileKeywords builds one alternation that matches any keyword as a
// whole word. Multi-word keywords accept any run of whitespace between
// words. Boundaries are only enforced on edges that are letters or digits,
// so "co." matches "Co., Ltd" but not "Mexico".
func compileKeywords(words []string) *regexp.Regexp {
	const boundary = `[^\p{L}\p{N}]`

	var alts []string
	for _, w := range words {
		w = normalize(w)
		if w == "" {
			continue
		}
		parts := strings.Fields(w)
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		pat := strings.Join(parts, `\s+`)

		first, _ := utf8.DecodeRuneInString(w)
		last, _ := utf8.DecodeLastRuneInString(w)
		if isWordRune(first) {
			pat = `(?:^|` + boundary + `)` + pat
		}
		if isWordRune(last) {
			pat = pat + `(?:$|` + boundary + `)`
		}
		alts = append(alts, `(?:`+pat+`)`)
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(strings.Join(alts, "|"))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
