// Package filestore provides storage drivers for uploaded documents
// and images.
package filestore

// Driver stores uploaded files and returns a URL clients can use to
// retrieve them.
type Driver interface {
	// Store writes data under the given key and returns the file URL.
	Store(key string, data []byte, contentType string) (string, error)
	// Delete removes the file with the given key.
	Delete(key string) error
}
