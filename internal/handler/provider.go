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

// Stores consumed by the catalog handlers. The concrete repositories
// satisfy these; tests swap in fakes.
type ProviderStore interface {
	Create(ctx context.Context, name, description string, imageID *uint64) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Provider, error)
	Update(ctx context.Context, id uint64, name, description string, imageID *uint64) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context) ([]model.Provider, error)
}

// ImageStore is the read side of the image repository used when an old
// asset has to be located before it is discarded.
type ImageStore interface {
	GetByID(ctx context.Context, id uint64) (model.Image, error)
}

// Provider cover images are normalized to landscape banners.
var providerImageCons = asset.Constraints{
	Required: true,
	MaxBytes: 5 << 20,
	Width:    900,
	Height:   500,
	Quality:  90,
}

// ProviderHandler implements the admin CRUD for providers, routing every
// image mutation through the asset lifecycle manager.
type ProviderHandler struct {
	Providers ProviderStore
	Images    ImageStore
	Assets    *asset.Manager
}

func NewProviderHandler(providers ProviderStore, images ImageStore, assets *asset.Manager) *ProviderHandler {
	return &ProviderHandler{Providers: providers, Images: images, Assets: assets}
}

// Create handles POST /v1/admin/providers (multipart: name, description,
// image). Attach first, link second; a failed link rolls the new asset
// back so nothing is orphaned.
func (h *ProviderHandler) Create(c echo.Context) error {
	name := c.FormValue("name")
	description := c.FormValue("description")
	var errs []FieldError
	errs = requireField(errs, "name", name)
	errs = requireField(errs, "description", description)
	if len(errs) > 0 {
		return apperr.Invalid(errs[0].Message)
	}

	data, err := formFile(c, "image")
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	img, err := h.Assets.AttachNew(ctx, data, providerImageCons)
	if err != nil {
		return assetError(err)
	}

	id, err := h.Providers.Create(ctx, name, description, &img.ID)
	if err != nil {
		h.Assets.Rollback(ctx, img)
		return apperr.Server("Failed to create provider.")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "Provider created successfully.",
		"providerId": id,
	})
}

// Update handles PATCH /v1/admin/providers/:id. The image is optional;
// when present the old asset is discarded only after the row durably
// points at the new one.
func (h *ProviderHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	name := c.FormValue("name")
	description := c.FormValue("description")
	var errs []FieldError
	errs = requireField(errs, "name", name)
	errs = requireField(errs, "description", description)
	if len(errs) > 0 {
		return apperr.Invalid(errs[0].Message)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	provider, err := h.Providers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}

	data, err := formFile(c, "image")
	if err != nil {
		return err
	}
	optional := providerImageCons
	optional.Required = false
	newImg, err := h.Assets.AttachNew(ctx, data, optional)
	if err != nil {
		return assetError(err)
	}

	imageID := provider.ImageID
	if newImg != nil {
		imageID = &newImg.ID
	}
	if err := h.Providers.Update(ctx, id, name, description, imageID); err != nil {
		h.Assets.Rollback(ctx, newImg)
		return apperr.Server("Failed to update provider.")
	}

	// The row now points at the new image; the old one is an orphan.
	if newImg != nil && provider.ImageID != nil {
		if old, err := h.Images.GetByID(ctx, *provider.ImageID); err == nil {
			h.Assets.Discard(ctx, &old)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Provider updated successfully.",
		"providerId": id,
	})
}

// Delete handles DELETE /v1/admin/providers/:id. The row goes first, the
// asset second, so a crash in between leaves an orphan blob (boundable)
// rather than a row referencing a deleted asset.
func (h *ProviderHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	provider, err := h.Providers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}

	var old *model.Image
	if provider.ImageID != nil {
		if img, err := h.Images.GetByID(ctx, *provider.ImageID); err == nil {
			old = &img
		}
	}

	if err := h.Providers.Delete(ctx, id); err != nil {
		return apperr.Server("Failed to delete provider.")
	}
	h.Assets.Discard(ctx, old)

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Successfully deleted the provider.",
		"providerId": id,
	})
}

// pathID parses the numeric :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return 0, apperr.Invalid("Invalid id.")
	}
	return id, nil
}

// parseID parses a positive numeric identifier.
func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
