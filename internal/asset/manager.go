// Package asset orchestrates the lifecycle of uploaded images: store
// binary, persist the metadata record, link to the owner entity, and the
// reverse teardown. Its one job is that a crash or failure at any point
// leaves the owner pointing at a valid asset and no orphan survives a
// failed business write.
package asset

import (
	"context"
	"errors"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zinlatt/courseware/internal/model"
	"github.com/zinlatt/courseware/internal/storage"
)

// Validation and pipeline failures. Handlers translate these into the
// API error taxonomy.
var (
	ErrUploadRequired     = errors.New("upload required")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrTooLarge           = errors.New("file too large")
	ErrOptimizationFailed = errors.New("image optimization failed")
)

// ImageStore is the slice of the image repository the manager needs.
type ImageStore interface {
	Create(ctx context.Context, url string, deletionKey *string) (model.Image, error)
	Delete(ctx context.Context, id uint64) error
}

// CleanupPublisher queues a blob deletion for retry when the immediate
// best-effort delete fails. May be nil, in which case failures are only
// logged and the orphan is accepted.
type CleanupPublisher interface {
	PublishCleanup(ctx context.Context, deletionKey, url string) error
}

// Manager wires the object store, the image record store and the retry
// queue together.
type Manager struct {
	store  storage.Store
	images ImageStore
	pub    CleanupPublisher
	log    zerolog.Logger
}

func NewManager(store storage.Store, images ImageStore, pub CleanupPublisher, log zerolog.Logger) *Manager {
	return &Manager{store: store, images: images, pub: pub, log: log}
}

// AttachNew validates, optimizes and stores a binary, then persists its
// image record. On a record-insert failure the stored blob is removed
// before the error surfaces, so a failed attach leaves nothing behind.
// The returned image is ready to be linked as a foreign key; nil is
// returned (without error) when no data was sent and the constraints
// don't require it.
func (m *Manager) AttachNew(ctx context.Context, data []byte, cons Constraints) (*model.Image, error) {
	if len(data) == 0 {
		if cons.Required {
			return nil, ErrUploadRequired
		}
		return nil, nil
	}

	optimized, err := optimize(data, cons)
	if err != nil {
		return nil, err
	}

	obj, err := m.store.Upload(ctx, optimized, uuid.NewString()+".jpg")
	if err != nil {
		return nil, err
	}

	img, err := m.images.Create(ctx, obj.URL, deletionKey(obj))
	if err != nil {
		// The blob exists but its record never did; take it back out.
		m.deleteBlob(ctx, obj.DeletionKey, obj.URL)
		return nil, err
	}
	return &img, nil
}

// Rollback is the compensating cleanup after the owner-entity write
// failed: the just-attached image record and blob are removed before the
// business error propagates. Safe to call with nil.
func (m *Manager) Rollback(ctx context.Context, img *model.Image) {
	if img == nil {
		return
	}
	if err := m.images.Delete(ctx, img.ID); err != nil {
		m.log.Error().Err(err).Uint64("image_id", img.ID).Msg("rollback: record delete failed")
	}
	key := ""
	if img.DeletionKey != nil {
		key = *img.DeletionKey
	}
	m.deleteBlob(ctx, key, img.URL)
}

// Discard tears down an asset whose owner row has already been deleted
// or durably re-pointed elsewhere: blob first, then record. Errors are
// logged and the blob delete is queued for retry; the primary response
// must never fail because cleanup did.
func (m *Manager) Discard(ctx context.Context, img *model.Image) {
	if img == nil {
		return
	}
	key := ""
	if img.DeletionKey != nil {
		key = *img.DeletionKey
	}
	m.deleteBlob(ctx, key, img.URL)
	if err := m.images.Delete(ctx, img.ID); err != nil {
		m.log.Error().Err(err).Uint64("image_id", img.ID).Msg("discard: record delete failed")
	}
}

// DiscardObject is Discard for blobs without their own image row, such
// as course secondary images whose rows were replaced in bulk.
func (m *Manager) DiscardObject(ctx context.Context, deletionKey *string, url string) {
	key := ""
	if deletionKey != nil {
		key = *deletionKey
	}
	m.deleteBlob(ctx, key, url)
}

// AttachBatch stores a set of binaries all-or-nothing: any validation or
// store failure removes the members already stored and aborts the whole
// batch. The returned values carry URL and deletion key for the caller
// to link; no image rows are created here because course secondary
// images live in their own table.
func (m *Manager) AttachBatch(ctx context.Context, batch [][]byte, cons Constraints) ([]model.CourseImage, error) {
	stored := make([]storage.Object, 0, len(batch))
	abort := func() {
		for _, obj := range stored {
			m.deleteBlob(ctx, obj.DeletionKey, obj.URL)
		}
	}

	for _, data := range batch {
		if len(data) == 0 {
			abort()
			return nil, ErrUploadRequired
		}
		optimized, err := optimize(data, cons)
		if err != nil {
			abort()
			return nil, err
		}
		obj, err := m.store.Upload(ctx, optimized, uuid.NewString()+".jpg")
		if err != nil {
			abort()
			return nil, err
		}
		stored = append(stored, obj)
	}

	out := make([]model.CourseImage, 0, len(stored))
	for _, obj := range stored {
		out = append(out, model.CourseImage{URL: obj.URL, DeletionKey: deletionKey(obj)})
	}
	return out, nil
}

// deleteBlob removes a stored binary best-effort. A failure is logged
// and handed to the cleanup queue so the orphan stays boundable.
func (m *Manager) deleteBlob(ctx context.Context, key, url string) {
	if key == "" {
		// Local files carry no deletion key; the URL basename is the file.
		key = path.Base(url)
	}
	if err := m.store.Delete(ctx, key); err != nil {
		m.log.Warn().Err(err).Str("key", key).Str("url", url).Msg("blob delete failed")
		if m.pub != nil {
			if perr := m.pub.PublishCleanup(ctx, key, url); perr != nil {
				m.log.Error().Err(perr).Str("key", key).Msg("cleanup enqueue failed; orphan remains")
			}
		}
	}
}

// deletionKey converts a store reference into the nullable column value:
// local objects store NULL and are addressed by URL.
func deletionKey(obj storage.Object) *string {
	if obj.DeletionKey == "" {
		return nil
	}
	k := obj.DeletionKey
	return &k
}
