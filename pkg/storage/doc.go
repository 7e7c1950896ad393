// Package storage stores uploaded files behind a small Storage interface with
// a local filesystem backend and an S3-compatible backend.
//
// Content types are sniffed from magic bytes rather than trusted from the
// client, and uploads can be checked with validation rules before anything
// is written:
//
//	info, err := storage.PutFile(ctx, store, fh,
//		storage.WithPrefix("thumbnails"),
//		storage.WithKey(uuid.NewString()+"_"+filepath.Base(fh.Filename)),
//		storage.WithValidation(storage.ImageOnly(), storage.MaxSize(5<<20)),
//	)
package storage
