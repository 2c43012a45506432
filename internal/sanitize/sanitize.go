// Package sanitize strips markup from member-supplied free text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxPasses bounds how many layers of entity encoding are peeled off.
const maxPasses = 8

var strict = bluemonday.StrictPolicy()

// Text removes all HTML from s and trims surrounding whitespace. The
// stored value is plain text, so entities are decoded after the policy
// runs and the result is sanitized again until it stops changing. Markup
// smuggled in as entities is removed the same way as literal markup.
func Text(s string) string {
	out := strings.TrimSpace(s)
	for range maxPasses {
		if out == "" {
			return ""
		}
		next := strings.TrimSpace(html.UnescapeString(strict.Sanitize(out)))
		if next == out {
			return out
		}
		out = next
	}
	// Still changing after maxPasses: keep the escaped form.
	return strings.TrimSpace(strict.Sanitize(out))
}
