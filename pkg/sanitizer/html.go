// Package sanitizer cleans user-supplied text and HTML with bluemonday.
package sanitizer

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy  *bluemonday.Policy
	contentPolicy *bluemonday.Policy
	initOnce      sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// Post bodies come from a rich text editor: keep headings, lists,
		// links and images, drop scripts, styles and event handlers.
		contentPolicy = bluemonday.UGCPolicy()
		contentPolicy.RequireNoFollowOnLinks(true)
		contentPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	})
}

// StripHTML removes every tag and returns trimmed plain text.
// Entities produced by the policy are unescaped so names round-trip.
func StripHTML(s string) string {
	initPolicies()
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// SanitizeHTML keeps safe formatting markup for user-generated content.
func SanitizeHTML(s string) string {
	initPolicies()
	return strings.TrimSpace(contentPolicy.Sanitize(s))
}

// SanitizeHTMLCustom applies policy, or returns s unchanged when policy is nil.
func SanitizeHTMLCustom(s string, policy *bluemonday.Policy) string {
	if policy == nil {
		return s
	}
	return policy.Sanitize(s)
}
