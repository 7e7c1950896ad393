// Package mailer renders markdown email templates into HTML and hands them to
// a Sender.
//
// Templates are markdown files with optional YAML frontmatter. The body is a
// text/template executed with the send data, converted with goldmark and
// wrapped in an html/template layout that receives .Content and .Metadata.
// A "Subject" key in the frontmatter is used when the caller gives none, and
// is itself executed as a template.
//
// Buttons use a small markdown extension:
//
//	[!button|Reset password]({{.ResetURL}})
//
// renders as <a href="..." class="button">Reset password</a>.
package mailer
