package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zinlatt/courseware/internal/model"
)

// SeriesRepo persists series rows. Category resolution happens in
// CategoryRepo first; this repo only ever writes a resolved category id.
type SeriesRepo struct{ DB *sql.DB }

func NewSeriesRepo(db *sql.DB) *SeriesRepo { return &SeriesRepo{DB: db} }

const seriesCols = "id,name,description,provider_id,category_id,image_id,created_at,updated_at"

func scanSeries(scan func(...any) error) (model.Series, error) {
	var s model.Series
	err := scan(&s.ID, &s.Name, &s.Description, &s.ProviderID, &s.CategoryID,
		&s.ImageID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a series and returns its ID.
func (r *SeriesRepo) Create(ctx context.Context, s model.Series) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO series (name, description, provider_id, category_id, image_id) VALUES (?,?,?,?,?)",
		s.Name, s.Description, s.ProviderID, s.CategoryID, s.ImageID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a series or ErrNotFound.
func (r *SeriesRepo) GetByID(ctx context.Context, id uint64) (model.Series, error) {
	s, err := scanSeries(r.DB.QueryRowContext(ctx,
		"SELECT "+seriesCols+" FROM series WHERE id=? LIMIT 1", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Series{}, ErrNotFound
	}
	return s, err
}

// Update rewrites the mutable series fields.
func (r *SeriesRepo) Update(ctx context.Context, s model.Series) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE series SET name=?, description=?, provider_id=?, category_id=?, image_id=? WHERE id=?",
		s.Name, s.Description, s.ProviderID, s.CategoryID, s.ImageID, s.ID)
	return err
}

// Delete removes a series row.
func (r *SeriesRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM series WHERE id=?", id)
	return err
}

// ListByProvider returns the series belonging to one provider.
func (r *SeriesRepo) ListByProvider(ctx context.Context, providerID uint64) ([]model.Series, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+seriesCols+" FROM series WHERE provider_id=? ORDER BY name", providerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Series
	for rows.Next() {
		s, err := scanSeries(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
