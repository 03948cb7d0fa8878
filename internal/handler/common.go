package handler // handler defines http handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zinlatt/courseware/internal/apperr"
	"github.com/zinlatt/courseware/internal/asset"
	"github.com/zinlatt/courseware/internal/middleware"
	"github.com/zinlatt/courseware/internal/storage"
)

// dbTimeout bounds every database round trip made from a handler.
const dbTimeout = 5 * time.Second

// reqContext derives a bounded context from the request.
func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// currentUserID reads the user id the auth gate stored in the context.
func currentUserID(c echo.Context) (uint64, error) {
	id, ok := c.Get(middleware.UserIDKey).(uint64)
	if !ok {
		return 0, apperr.Unauthenticated()
	}
	return id, nil
}

// formFile reads one multipart file field fully into memory. A missing
// field returns (nil, nil); constraints decide whether that is an error.
func formFile(c echo.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	return readFileHeader(fh)
}

// formFiles reads every file sent under a repeated multipart field.
func formFiles(c echo.Context, field string) ([][]byte, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, nil
	}
	var out [][]byte
	for _, fh := range form.File[field] {
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Invalid("Could not read uploaded file.")
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperr.Invalid("Could not read uploaded file.")
	}
	return data, nil
}

// assetError translates asset pipeline failures into the API taxonomy.
func assetError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, asset.ErrUploadRequired):
		return apperr.UploadRequired()
	case errors.Is(err, asset.ErrUnsupportedType):
		return apperr.Invalid("Only JPEG and PNG images are allowed.")
	case errors.Is(err, asset.ErrTooLarge):
		return apperr.Invalid("Image file is too large.")
	case errors.Is(err, asset.ErrOptimizationFailed):
		return apperr.OptimizationFailed()
	case errors.Is(err, storage.ErrStoreUnavailable):
		return apperr.Server("Image store is unavailable.")
	default:
		return apperr.Server("Image upload failed.")
	}
}
