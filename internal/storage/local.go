package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes blobs under a directory served as static files. The
// deletion key is the bare file name, kept relative so a leaked database
// row cannot be used to delete arbitrary paths.
type LocalStore struct {
	Dir     string // filesystem directory for uploads
	BaseURL string // public URL prefix mapped to Dir
}

// NewLocalStore ensures the upload directory exists.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload writes the blob to a temp file and renames it into place so a
// crash mid-write never leaves a half-written file at the final name.
func (s *LocalStore) Upload(ctx context.Context, data []byte, nameHint string) (Object, error) {
	name := filepath.Base(nameHint)
	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return Object{}, ErrStoreUnavailable
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return Object{}, ErrStoreUnavailable
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return Object{}, ErrStoreUnavailable
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return Object{}, ErrStoreUnavailable
	}
	// No deletion key: local blobs are addressed by the URL basename.
	return Object{URL: s.BaseURL + "/" + name}, nil
}

// Delete removes the named file. A file that is already gone is not an
// error; the goal is only that the blob no longer exists.
func (s *LocalStore) Delete(ctx context.Context, deletionKey string) error {
	err := os.Remove(filepath.Join(s.Dir, filepath.Base(deletionKey)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
