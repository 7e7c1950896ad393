// Package emails embeds the markdown email templates and their layouts.
package emails

import "embed"

// FS holds templates at its root and layouts under layouts/.
//
//go:embed *.md layouts/*.html
var FS embed.FS

// Template names.
const (
	ResetPassword = "reset_password.md"
)
