// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "github.com/pdiddy/pharma-extractor/pkg/types"

// Assemble keeps the records that have at least one non-academic author,
// in their original order. Records are not modified and are not
// deduplicated against each other.
func Assemble(records []types.ArticleRecord) []types.ArticleRecord {
	out := make([]types.ArticleRecord, 0, len(records))
	for _, r := range records {
		if r.HasIndustryAuthor() {
			out = append(out, r)
		}
	}
	return out
}
