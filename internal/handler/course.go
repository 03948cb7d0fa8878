package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/zinlatt/courseware/internal/apperr"
	"github.com/zinlatt/courseware/internal/asset"
	"github.com/zinlatt/courseware/internal/model"
	"github.com/zinlatt/courseware/internal/repository"
)

type CourseStore interface {
	Create(ctx context.Context, c model.Course, images []model.CourseImage) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Course, error)
	Update(ctx context.Context, c model.Course) error
	Delete(ctx context.Context, id uint64) error
	ListBySeries(ctx context.Context, seriesID uint64) ([]model.Course, error)
	ListImages(ctx context.Context, courseID uint64) ([]model.CourseImage, error)
	ReplaceImages(ctx context.Context, courseID uint64, images []model.CourseImage) error
}

var (
	coursePreviewCons = asset.Constraints{
		Required: true,
		MaxBytes: 5 << 20,
		Width:    900,
		Height:   500,
		Quality:  90,
	}
	// Gallery images keep their source dimensions; only re-encoded.
	courseGalleryCons = asset.Constraints{
		MaxBytes: 10 << 20,
		Quality:  80,
	}
)

// CourseHandler implements the admin CRUD for courses: a preview image
// plus a gallery of secondary images with full-replace semantics.
type CourseHandler struct {
	Courses CourseStore
	Series  SeriesStore
	Images  ImageStore
	Assets  *asset.Manager
}

func NewCourseHandler(courses CourseStore, series SeriesStore, images ImageStore, assets *asset.Manager) *CourseHandler {
	return &CourseHandler{Courses: courses, Series: series, Images: images, Assets: assets}
}

type courseForm struct {
	Name         string
	Description  string
	Requirements string
	Price        uint32
	Format       string
	Edition      string
	Authors      string
	VideoPreview string
	SeriesID     uint64
}

func bindCourseForm(c echo.Context) (courseForm, error) {
	f := courseForm{
		Name:         c.FormValue("name"),
		Description:  c.FormValue("description"),
		Requirements: c.FormValue("requirements"),
		Format:       c.FormValue("format"),
		Edition:      c.FormValue("edition"),
		Authors:      c.FormValue("authors"),
		VideoPreview: c.FormValue("video_preview"),
	}
	var errs []FieldError
	errs = requireField(errs, "name", f.Name)
	errs = requireField(errs, "description", f.Description)
	if len(errs) > 0 {
		return f, apperr.Invalid(errs[0].Message)
	}
	if v := c.FormValue("price"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return f, apperr.Invalid("Invalid price.")
		}
		f.Price = uint32(n)
	}
	if v := c.FormValue("seriesId"); v != "" {
		id, err := parseID(v)
		if err != nil {
			return f, apperr.Invalid("Invalid seriesId.")
		}
		f.SeriesID = id
	}
	return f, nil
}

// Create handles POST /v1/admin/courses (multipart: fields, previewImage,
// repeated images). Upload order: preview, then the whole gallery batch;
// any failure unwinds everything stored so far, and a failed course
// insert unwinds both.
func (h *CourseHandler) Create(c echo.Context) error {
	f, err := bindCourseForm(c)
	if err != nil {
		return err
	}
	if f.SeriesID == 0 {
		return apperr.Invalid("seriesId is required.")
	}

	preview, err := formFile(c, "previewImage")
	if err != nil {
		return err
	}
	gallery, err := formFiles(c, "images")
	if err != nil {
		return err
	}
	if len(gallery) == 0 {
		return apperr.UploadRequired()
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if _, err := h.Series.GetByID(ctx, f.SeriesID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}

	previewImg, err := h.Assets.AttachNew(ctx, preview, coursePreviewCons)
	if err != nil {
		return assetError(err)
	}
	galleryImgs, err := h.Assets.AttachBatch(ctx, gallery, courseGalleryCons)
	if err != nil {
		h.Assets.Rollback(ctx, previewImg)
		return assetError(err)
	}

	id, err := h.Courses.Create(ctx, model.Course{
		Name:         f.Name,
		Description:  f.Description,
		Requirements: f.Requirements,
		Price:        f.Price,
		Format:       f.Format,
		Edition:      f.Edition,
		Authors:      f.Authors,
		VideoPreview: f.VideoPreview,
		SeriesID:     f.SeriesID,
		ImageID:      &previewImg.ID,
	}, galleryImgs)
	if err != nil {
		h.Assets.Rollback(ctx, previewImg)
		for _, img := range galleryImgs {
			h.Assets.DiscardObject(ctx, img.DeletionKey, img.URL)
		}
		return apperr.Server("Failed to create course.")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Course created successfully.",
		"courseId": id,
	})
}

// Update handles PATCH /v1/admin/courses/:id. Preview and gallery are
// both optional; a new gallery fully replaces the old one. Old assets
// are discarded only after the rows durably reference the new ones.
func (h *CourseHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	f, err := bindCourseForm(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}

	seriesID := course.SeriesID
	if f.SeriesID != 0 {
		if _, err := h.Series.GetByID(ctx, f.SeriesID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.ModelNotFound()
			}
			return apperr.Server("Query failed.")
		}
		seriesID = f.SeriesID
	}

	preview, err := formFile(c, "previewImage")
	if err != nil {
		return err
	}
	optional := coursePreviewCons
	optional.Required = false
	newPreview, err := h.Assets.AttachNew(ctx, preview, optional)
	if err != nil {
		return assetError(err)
	}

	gallery, err := formFiles(c, "images")
	if err != nil {
		h.Assets.Rollback(ctx, newPreview)
		return err
	}
	var newGallery []model.CourseImage
	if len(gallery) > 0 {
		newGallery, err = h.Assets.AttachBatch(ctx, gallery, courseGalleryCons)
		if err != nil {
			h.Assets.Rollback(ctx, newPreview)
			return assetError(err)
		}
	}

	rollbackAll := func() {
		h.Assets.Rollback(ctx, newPreview)
		for _, img := range newGallery {
			h.Assets.DiscardObject(ctx, img.DeletionKey, img.URL)
		}
	}

	imageID := course.ImageID
	if newPreview != nil {
		imageID = &newPreview.ID
	}
	if err := h.Courses.Update(ctx, model.Course{
		ID:           id,
		Name:         f.Name,
		Description:  f.Description,
		Requirements: f.Requirements,
		Price:        f.Price,
		Format:       f.Format,
		Edition:      f.Edition,
		Authors:      f.Authors,
		VideoPreview: f.VideoPreview,
		SeriesID:     seriesID,
		ImageID:      imageID,
	}); err != nil {
		rollbackAll()
		return apperr.Server("Failed to update course.")
	}

	if newGallery != nil {
		oldGallery, lerr := h.Courses.ListImages(ctx, id)
		if err := h.Courses.ReplaceImages(ctx, id, newGallery); err != nil {
			// Course fields already updated; the old gallery stays
			// linked, so only the unlinked new blobs are unwound.
			for _, img := range newGallery {
				h.Assets.DiscardObject(ctx, img.DeletionKey, img.URL)
			}
			return apperr.Server("Failed to update course images.")
		}
		if lerr == nil {
			for _, img := range oldGallery {
				h.Assets.DiscardObject(ctx, img.DeletionKey, img.URL)
			}
		}
	}

	if newPreview != nil && course.ImageID != nil {
		if old, err := h.Images.GetByID(ctx, *course.ImageID); err == nil {
			h.Assets.Discard(ctx, &old)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Course updated successfully.",
		"courseId": id,
	})
}

// Delete handles DELETE /v1/admin/courses/:id. Row first, assets second.
func (h *CourseHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	course, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}

	var oldPreview *model.Image
	if course.ImageID != nil {
		if img, err := h.Images.GetByID(ctx, *course.ImageID); err == nil {
			oldPreview = &img
		}
	}
	oldGallery, _ := h.Courses.ListImages(ctx, id)

	if err := h.Courses.Delete(ctx, id); err != nil {
		return apperr.Server("Failed to delete course.")
	}

	h.Assets.Discard(ctx, oldPreview)
	for _, img := range oldGallery {
		h.Assets.DiscardObject(ctx, img.DeletionKey, img.URL)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Course deleted successfully.",
		"courseId": id,
	})
}
