package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zinlatt/courseware/internal/model"
)

// ProviderRepo persists providers, the top of the catalog hierarchy.
type ProviderRepo struct{ DB *sql.DB }

func NewProviderRepo(db *sql.DB) *ProviderRepo { return &ProviderRepo{DB: db} }

const providerCols = "id,name,description,image_id,created_at,updated_at"

// Create inserts a provider and returns its ID.
func (r *ProviderRepo) Create(ctx context.Context, name, description string, imageID *uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO providers (name, description, image_id) VALUES (?,?,?)",
		name, description, imageID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a provider or ErrNotFound.
func (r *ProviderRepo) GetByID(ctx context.Context, id uint64) (model.Provider, error) {
	var p model.Provider
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+providerCols+" FROM providers WHERE id=? LIMIT 1", id).
		Scan(&p.ID, &p.Name, &p.Description, &p.ImageID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Provider{}, ErrNotFound
	}
	return p, err
}

// Update rewrites the mutable provider fields, including the image
// foreign key. The image pointer update must be durable before the old
// image asset is discarded.
func (r *ProviderRepo) Update(ctx context.Context, id uint64, name, description string, imageID *uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE providers SET name=?, description=?, image_id=? WHERE id=?",
		name, description, imageID, id)
	return err
}

// Delete removes a provider row.
func (r *ProviderRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM providers WHERE id=?", id)
	return err
}

// List returns providers ordered by name.
func (r *ProviderRepo) List(ctx context.Context) ([]model.Provider, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+providerCols+" FROM providers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Provider
	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImageID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
