package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zinlatt/courseware/internal/model"
)

// ImageRepo persists image metadata rows independently of which entity
// references them. Rows are created only as a side effect of a
// successful upload and deleted only by the asset lifecycle manager.
type ImageRepo struct{ DB *sql.DB }

func NewImageRepo(db *sql.DB) *ImageRepo { return &ImageRepo{DB: db} }

// Create inserts an image row and returns the populated model.
func (r *ImageRepo) Create(ctx context.Context, url string, deletionKey *string) (model.Image, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO images (url, deletion_key) VALUES (?,?)", url, deletionKey)
	if err != nil {
		return model.Image{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Image{}, err
	}
	return model.Image{ID: uint64(id), URL: url, DeletionKey: deletionKey}, nil
}

// GetByID fetches an image row.
func (r *ImageRepo) GetByID(ctx context.Context, id uint64) (model.Image, error) {
	var img model.Image
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,url,deletion_key,created_at FROM images WHERE id=? LIMIT 1", id).
		Scan(&img.ID, &img.URL, &img.DeletionKey, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Image{}, ErrNotFound
	}
	return img, err
}

// Delete removes an image row. Deleting a row that is already gone is
// not an error so compensating cleanup stays idempotent.
func (r *ImageRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM images WHERE id=?", id)
	return err
}
