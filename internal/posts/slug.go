package posts

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Slugify builds a post slug: the trimmed title with every whitespace rune
// replaced by "-", followed by "-" and a random UUID.
func Slugify(title string) string {
	return slugify(title, uuid.NewString)
}

func slugify(title string, suffix func() string) string {
	base := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	return base + "-" + suffix()
}
