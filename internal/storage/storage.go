// Package storage holds the blob-store contract the pipeline writes image
// bytes and export archives through, with Supabase Storage and local-disk
// implementations.
package storage

import "errors"

var ErrNotExist = errors.New("object does not exist")

type BlobStore interface {
	Put(key string, data []byte) error
	Get(key string) ([]byte, error)
	Exists(key string) (bool, error)
	Delete(key string) error
	// PublicURL returns a URL a browser can fetch the object from.
	PublicURL(key string) string
}
