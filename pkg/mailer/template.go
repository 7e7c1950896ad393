package mailer

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

var frontmatterDelim = []byte("---")

// splitFrontmatter separates YAML frontmatter from the markdown body.
// Content without a leading "---" is all body.
func splitFrontmatter(content []byte) (map[string]any, []byte, error) {
	meta := map[string]any{}

	rest, ok := bytes.CutPrefix(content, frontmatterDelim)
	if !ok {
		return meta, content, nil
	}

	head, body, found := bytes.Cut(rest, frontmatterDelim)
	if !found {
		return nil, nil, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}
	body = bytes.TrimPrefix(bytes.TrimPrefix(body, []byte("\r")), []byte("\n"))

	if len(bytes.TrimSpace(head)) > 0 {
		if err := yaml.Unmarshal(head, &meta); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}
	return meta, body, nil
}
