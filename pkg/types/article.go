// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the extractor pipeline:
// the session handle returned by a PubMed search, the per-article records
// produced by the detail fetch, and stage configuration.
package types

// SearchResult is the outcome of a PubMed esearch call. It carries the
// ordered identifiers and the history-server handle (WebEnv, QueryKey)
// that the fetch step must send back unchanged.
type SearchResult struct {
	// IDs lists PubMed identifiers in server-assigned order.
	IDs []string `json:"ids" yaml:"ids"`

	// WebEnv is the opaque session token issued by the history server.
	WebEnv string `json:"web_env,omitempty" yaml:"web_env,omitempty"`

	// QueryKey identifies the stored query within WebEnv.
	QueryKey string `json:"query_key,omitempty" yaml:"query_key,omitempty"`

	// Count is the total number of server-side matches, which may exceed len(IDs).
	Count int `json:"count" yaml:"count"`
}

// IsEmpty reports whether the search matched nothing.
func (r SearchResult) IsEmpty() bool {
	return len(r.IDs) == 0
}

// ArticleRecord is one PubMed article reduced to the fields the extractor
// reports. NonAcademicAuthors keeps document order; CompanyAffiliations is
// deduplicated and keeps first-seen order.
type ArticleRecord struct {
	PMID                string   `json:"pmid" yaml:"pmid"`
	Title               string   `json:"title" yaml:"title"`
	PublicationDate     string   `json:"publication_date" yaml:"publication_date"`
	NonAcademicAuthors  []string `json:"non_academic_authors" yaml:"non_academic_authors"`
	CompanyAffiliations []string `json:"company_affiliations" yaml:"company_affiliations"`
	CorrespondingEmail  string   `json:"corresponding_author_email" yaml:"corresponding_author_email"`
}

// HasIndustryAuthor reports whether at least one author was classified
// as non-academic.
func (a ArticleRecord) HasIndustryAuthor() bool {
	return len(a.NonAcademicAuthors) > 0
}

// DroppedRecord describes a detail entry that could not be turned into an
// ArticleRecord. Drops are reported, never silently discarded.
type DroppedRecord struct {
	// PMID is empty when the identifier itself was missing.
	PMID string `json:"pmid,omitempty" yaml:"pmid,omitempty"`

	// Index is the zero-based position of the entry in the fetched set.
	Index int `json:"index" yaml:"index"`

	Reason string `json:"reason" yaml:"reason"`
}
