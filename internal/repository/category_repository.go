package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/zinlatt/courseware/internal/model"
)

// CategoryRepo persists series categories.
type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

// GetOrCreate looks a category up by name and creates it when missing.
// This is the explicit two-step replacement for a declarative upsert:
// SELECT, then INSERT, then re-SELECT if a concurrent insert won the
// unique-key race.
func (r *CategoryRepo) GetOrCreate(ctx context.Context, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	var cat model.Category
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name FROM categories WHERE name=? LIMIT 1", name).
		Scan(&cat.ID, &cat.Name)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, err
	}

	res, err := r.DB.ExecContext(ctx, "INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			err = r.DB.QueryRowContext(ctx,
				"SELECT id,name FROM categories WHERE name=? LIMIT 1", name).
				Scan(&cat.ID, &cat.Name)
			return cat, err
		}
		return model.Category{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Category{}, err
	}
	return model.Category{ID: uint64(id), Name: name}, nil
}

// GetByID fetches a category row.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (model.Category, error) {
	var cat model.Category
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name FROM categories WHERE id=? LIMIT 1", id).
		Scan(&cat.ID, &cat.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, ErrNotFound
	}
	return cat, err
}
