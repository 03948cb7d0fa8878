package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zinlatt/courseware/internal/model"
)

// CourseRepo persists courses and their secondary image rows. The
// secondary set is replaced wholesale inside one transaction, never
// merged.
type CourseRepo struct{ DB *sql.DB }

func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{DB: db} }

const courseCols = "id,name,description,requirements,price,format,edition,authors,video_preview,series_id,image_id,created_at,updated_at"

func scanCourse(scan func(...any) error) (model.Course, error) {
	var c model.Course
	err := scan(&c.ID, &c.Name, &c.Description, &c.Requirements, &c.Price,
		&c.Format, &c.Edition, &c.Authors, &c.VideoPreview, &c.SeriesID,
		&c.ImageID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a course plus its secondary image rows in one
// transaction, so a failed image insert leaves no half-created course.
func (r *CourseRepo) Create(ctx context.Context, c model.Course, images []model.CourseImage) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO courses (name, description, requirements, price, format, edition, authors, video_preview, series_id, image_id) VALUES (?,?,?,?,?,?,?,?,?,?)",
		c.Name, c.Description, c.Requirements, c.Price, c.Format, c.Edition,
		c.Authors, c.VideoPreview, c.SeriesID, c.ImageID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, img := range images {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO course_images (course_id, url, deletion_key) VALUES (?,?,?)",
			uint64(id), img.URL, img.DeletionKey); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a course or ErrNotFound.
func (r *CourseRepo) GetByID(ctx context.Context, id uint64) (model.Course, error) {
	c, err := scanCourse(r.DB.QueryRowContext(ctx,
		"SELECT "+courseCols+" FROM courses WHERE id=? LIMIT 1", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Course{}, ErrNotFound
	}
	return c, err
}

// Update rewrites the mutable course fields.
func (r *CourseRepo) Update(ctx context.Context, c model.Course) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE courses SET name=?, description=?, requirements=?, price=?, format=?, edition=?, authors=?, video_preview=?, series_id=?, image_id=? WHERE id=?",
		c.Name, c.Description, c.Requirements, c.Price, c.Format, c.Edition,
		c.Authors, c.VideoPreview, c.SeriesID, c.ImageID, c.ID)
	return err
}

// Delete removes a course row; course_images rows cascade at the
// database level but the blobs behind them are the caller's problem.
func (r *CourseRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM courses WHERE id=?", id)
	return err
}

// ListBySeries returns the courses of one series.
func (r *CourseRepo) ListBySeries(ctx context.Context, seriesID uint64) ([]model.Course, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+courseCols+" FROM courses WHERE series_id=? ORDER BY name", seriesID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Course
	for rows.Next() {
		c, err := scanCourse(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListImages returns the current secondary image rows of a course.
func (r *CourseRepo) ListImages(ctx context.Context, courseID uint64) ([]model.CourseImage, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,course_id,url,deletion_key FROM course_images WHERE course_id=? ORDER BY id", courseID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.CourseImage
	for rows.Next() {
		var img model.CourseImage
		if err := rows.Scan(&img.ID, &img.CourseID, &img.URL, &img.DeletionKey); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// ReplaceImages swaps the whole secondary image set of a course in one
// transaction. Once this commits, the new set is linked and the old
// blobs are safe to discard.
func (r *CourseRepo) ReplaceImages(ctx context.Context, courseID uint64, images []model.CourseImage) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM course_images WHERE course_id=?", courseID); err != nil {
		return err
	}
	for _, img := range images {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO course_images (course_id, url, deletion_key) VALUES (?,?,?)",
			courseID, img.URL, img.DeletionKey); err != nil {
			return err
		}
	}
	return tx.Commit()
}
