// Package datastore provides the durable string-valued key/value storage that
// bookmarks, search history and reading progress are persisted to.
package datastore

import "errors"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("datastore: store is closed")

// KV defines the interface for durable key/value storage.
// Values are opaque strings; callers own their encoding.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases the underlying resources.
	Close() error
}
