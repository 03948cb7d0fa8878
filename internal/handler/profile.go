package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zinlatt/courseware/internal/apperr"
	"github.com/zinlatt/courseware/internal/asset"
	"github.com/zinlatt/courseware/internal/repository"
)

var avatarCons = asset.Constraints{
	Required: true,
	MaxBytes: 2 << 20,
	Width:    900,
	Height:   500,
	Quality:  90,
}

// ProfileHandler serves the authenticated user's own profile.
type ProfileHandler struct {
	Users  UserStore
	Images ImageStore
	Assets *asset.Manager
}

func NewProfileHandler(users UserStore, images ImageStore, assets *asset.Manager) *ProfileHandler {
	return &ProfileHandler{Users: users, Images: images, Assets: assets}
}

// Me returns the sanitized profile of the requesting user.
func (h *ProfileHandler) Me(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}

	var imageURL *string
	if u.ImageID != nil {
		if img, err := h.Images.GetByID(ctx, *u.ImageID); err == nil {
			imageURL = &img.URL
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
		"image":    imageURL,
	})
}

// UploadAvatar handles PATCH /v1/api/profile/upload. The new avatar is
// stored and linked before the previous one is discarded, so the user
// row never points at a missing blob.
func (h *ProfileHandler) UploadAvatar(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	file, err := formFile(c, "image")
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}

	img, err := h.Assets.AttachNew(ctx, file, avatarCons)
	if err != nil {
		return assetError(err)
	}

	if err := h.Users.SetImage(ctx, userID, &img.ID); err != nil {
		h.Assets.Rollback(ctx, img)
		return apperr.Server("Failed to update profile.")
	}

	if u.ImageID != nil {
		if old, err := h.Images.GetByID(ctx, *u.ImageID); err == nil {
			h.Assets.Discard(ctx, &old)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Profile image updated successfully.",
		"image":   img.URL,
	})
}
