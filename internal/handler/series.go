package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zinlatt/courseware/internal/apperr"
	"github.com/zinlatt/courseware/internal/asset"
	"github.com/zinlatt/courseware/internal/model"
	"github.com/zinlatt/courseware/internal/repository"
)

type SeriesStore interface {
	Create(ctx context.Context, s model.Series) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Series, error)
	Update(ctx context.Context, s model.Series) error
	Delete(ctx context.Context, id uint64) error
	ListByProvider(ctx context.Context, providerID uint64) ([]model.Series, error)
}

type CategoryStore interface {
	GetOrCreate(ctx context.Context, name string) (model.Category, error)
	GetByID(ctx context.Context, id uint64) (model.Category, error)
}

var seriesImageCons = asset.Constraints{
	Required: true,
	MaxBytes: 5 << 20,
	Width:    900,
	Height:   500,
	Quality:  90,
}

// SeriesHandler implements the admin CRUD for series. Categories are
// resolved by name with an explicit look-up-or-create before the series
// row is written; there is no hidden relation cascade.
type SeriesHandler struct {
	Series     SeriesStore
	Providers  ProviderStore
	Categories CategoryStore
	Images     ImageStore
	Assets     *asset.Manager
}

func NewSeriesHandler(series SeriesStore, providers ProviderStore, categories CategoryStore, images ImageStore, assets *asset.Manager) *SeriesHandler {
	return &SeriesHandler{Series: series, Providers: providers, Categories: categories, Images: images, Assets: assets}
}

type seriesForm struct {
	Name        string
	Description string
	Category    string
	ProviderID  uint64
}

func bindSeriesForm(c echo.Context) (seriesForm, error) {
	f := seriesForm{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
	}
	var errs []FieldError
	errs = requireField(errs, "name", f.Name)
	errs = requireField(errs, "category", f.Category)
	if len(errs) > 0 {
		return f, apperr.Invalid(errs[0].Message)
	}
	if v := c.FormValue("providerId"); v != "" {
		id, err := parseID(v)
		if err != nil {
			return f, apperr.Invalid("Invalid providerId.")
		}
		f.ProviderID = id
	}
	return f, nil
}

// Create handles POST /v1/admin/series.
func (h *SeriesHandler) Create(c echo.Context) error {
	f, err := bindSeriesForm(c)
	if err != nil {
		return err
	}
	if f.ProviderID == 0 {
		return apperr.Invalid("providerId is required.")
	}

	data, err := formFile(c, "image")
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if _, err := h.Providers.GetByID(ctx, f.ProviderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}

	category, err := h.Categories.GetOrCreate(ctx, f.Category)
	if err != nil {
		return apperr.Server("Failed to resolve category.")
	}

	img, err := h.Assets.AttachNew(ctx, data, seriesImageCons)
	if err != nil {
		return assetError(err)
	}

	id, err := h.Series.Create(ctx, model.Series{
		Name:        f.Name,
		Description: f.Description,
		ProviderID:  f.ProviderID,
		CategoryID:  category.ID,
		ImageID:     &img.ID,
	})
	if err != nil {
		h.Assets.Rollback(ctx, img)
		return apperr.Server("Failed to create series.")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Series created successfully.",
		"seriesId": id,
	})
}

// Update handles PATCH /v1/admin/series/:id. Image and provider are
// optional; the old cover is discarded only after the row update lands.
func (h *SeriesHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	f, err := bindSeriesForm(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	series, err := h.Series.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}

	providerID := series.ProviderID
	if f.ProviderID != 0 {
		if _, err := h.Providers.GetByID(ctx, f.ProviderID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.ModelNotFound()
			}
			return apperr.Server("Query failed.")
		}
		providerID = f.ProviderID
	}

	category, err := h.Categories.GetOrCreate(ctx, f.Category)
	if err != nil {
		return apperr.Server("Failed to resolve category.")
	}

	data, err := formFile(c, "image")
	if err != nil {
		return err
	}
	optional := seriesImageCons
	optional.Required = false
	newImg, err := h.Assets.AttachNew(ctx, data, optional)
	if err != nil {
		return assetError(err)
	}

	imageID := series.ImageID
	if newImg != nil {
		imageID = &newImg.ID
	}
	if err := h.Series.Update(ctx, model.Series{
		ID:          id,
		Name:        f.Name,
		Description: f.Description,
		ProviderID:  providerID,
		CategoryID:  category.ID,
		ImageID:     imageID,
	}); err != nil {
		h.Assets.Rollback(ctx, newImg)
		return apperr.Server("Failed to update series.")
	}

	if newImg != nil && series.ImageID != nil {
		if old, err := h.Images.GetByID(ctx, *series.ImageID); err == nil {
			h.Assets.Discard(ctx, &old)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Series updated successfully.",
		"seriesId": id,
	})
}

// Delete handles DELETE /v1/admin/series/:id.
func (h *SeriesHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	series, err := h.Series.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}

	var old *model.Image
	if series.ImageID != nil {
		if img, err := h.Images.GetByID(ctx, *series.ImageID); err == nil {
			old = &img
		}
	}

	if err := h.Series.Delete(ctx, id); err != nil {
		return apperr.Server("Failed to delete series.")
	}
	h.Assets.Discard(ctx, old)

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Successfully deleted the series.",
		"seriesId": id,
	})
}
