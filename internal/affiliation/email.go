// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ExtractEmail returns the first e-mail address found in text, or "" when
// there is none. Surrounding punctuation is stripped and the candidate must
// look like a real address.
func ExtractEmail(text string) string {
	for _, word := range strings.Fields(text) {
		if !strings.Contains(word, "@") || !strings.Contains(word, ".") {
			continue
		}
		candidate := strings.Trim(word, ";.,()<>[]")
		if emailPattern.MatchString(candidate) {
			return candidate
		}
	}
	return ""
}
