// Package handlers declares the HTTP routes of the blog: post management,
// the public blog, accounts and password reset.
//
// Mutating endpoints accept form posts and answer with 303 redirects. Read
// endpoints answer with JSON. Pending notifications are included in the
// JSON of the page a redirect lands on.
package handlers
