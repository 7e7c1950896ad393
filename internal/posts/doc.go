// Package posts implements blog post management with role and ownership
// based access.
//
// Admins may act on any post. Authors may act only on posts they own:
//
//	CanModify(actor, post) = actor.Role == Admin || actor.ID == post.OwnerID
package posts
