// Package cookie manages plain and AES-GCM encrypted cookies plus one-shot
// flash values.
//
// Encrypted operations need a secret of at least 32 bytes and return
// ErrNoSecret without one. Flash values are JSON encoded into an encrypted
// cookie named "flash_<key>" and deleted when read:
//
//	_ = m.SetFlash(w, "toast", Toast{Kind: "success", Message: "Saved"})
//	...
//	var t Toast
//	if err := m.Flash(w, r, "toast", &t); errors.Is(err, cookie.ErrNotFound) {
//		// nothing pending
//	}
package cookie
