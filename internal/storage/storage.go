// Package storage abstracts where uploaded binaries live. The local-disk
// and remote-object-store variants implement the same Store interface and
// are selected by configuration, so the asset lifecycle code has a single
// path regardless of vendor.
package storage

import (
	"context"
	"errors"
)

// ErrStoreUnavailable is returned when the backing store cannot be
// reached or rejects the write.
var ErrStoreUnavailable = errors.New("object store unavailable")

// Object is the stable reference returned for a stored blob. URL is what
// clients fetch; DeletionKey is what the store needs to delete the blob
// ("" means the URL path itself suffices, as with local files).
type Object struct {
	URL         string
	DeletionKey string
}

// Store uploads and deletes binary blobs. Upload must either store the
// blob fully or leave nothing behind. Delete is best-effort from the
// caller's perspective: lifecycle code logs failures and queues a retry
// instead of failing the request.
type Store interface {
	Upload(ctx context.Context, data []byte, nameHint string) (Object, error)
	Delete(ctx context.Context, deletionKey string) error
}
