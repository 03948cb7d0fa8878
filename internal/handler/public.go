package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zinlatt/courseware/internal/apperr"
	"github.com/zinlatt/courseware/internal/model"
	"github.com/zinlatt/courseware/internal/repository"
)

// CatalogHandler serves the unauthenticated read side of the catalog.
type CatalogHandler struct {
	Providers  ProviderStore
	Series     SeriesStore
	Categories CategoryStore
	Courses    CourseStore
	Images     ImageStore
}

func NewCatalogHandler(providers ProviderStore, series SeriesStore, categories CategoryStore, courses CourseStore, images ImageStore) *CatalogHandler {
	return &CatalogHandler{
		Providers:  providers,
		Series:     series,
		Categories: categories,
		Courses:    courses,
		Images:     images,
	}
}

func (h *CatalogHandler) imageURL(ctx context.Context, id *uint64) *string {
	if id == nil {
		return nil
	}
	img, err := h.Images.GetByID(ctx, *id)
	if err != nil {
		return nil
	}
	return &img.URL
}

type providerView struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

type seriesView struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ProviderID  uint64  `json:"providerId"`
	Category    *string `json:"category"`
	Image       *string `json:"image"`
}

type courseView struct {
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Requirements string  `json:"requirements"`
	Price        uint32  `json:"price"`
	Format       string  `json:"format"`
	Edition      string  `json:"edition"`
	Authors      string  `json:"authors"`
	VideoPreview string  `json:"videoPreview"`
	SeriesID     uint64  `json:"seriesId"`
	Image        *string `json:"image"`
}

func (h *CatalogHandler) providerView(ctx context.Context, p model.Provider) providerView {
	return providerView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       h.imageURL(ctx, p.ImageID),
	}
}

func (h *CatalogHandler) seriesView(ctx context.Context, s model.Series) seriesView {
	v := seriesView{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		ProviderID:  s.ProviderID,
		Image:       h.imageURL(ctx, s.ImageID),
	}
	if s.CategoryID != 0 {
		if cat, err := h.Categories.GetByID(ctx, s.CategoryID); err == nil {
			v.Category = &cat.Name
		}
	}
	return v
}

func (h *CatalogHandler) courseView(ctx context.Context, c model.Course) courseView {
	return courseView{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		Requirements: c.Requirements,
		Price:        c.Price,
		Format:       c.Format,
		Edition:      c.Edition,
		Authors:      c.Authors,
		VideoPreview: c.VideoPreview,
		SeriesID:     c.SeriesID,
		Image:        h.imageURL(ctx, c.ImageID),
	}
}

// ListProviders handles GET /v1/providers.
func (h *CatalogHandler) ListProviders(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	providers, err := h.Providers.List(ctx)
	if err != nil {
		return apperr.Server("Query failed.")
	}
	out := make([]providerView, 0, len(providers))
	for _, p := range providers {
		out = append(out, h.providerView(ctx, p))
	}
	return c.JSON(http.StatusOK, echo.Map{"providers": out})
}

// ListProviderSeries handles GET /v1/providers/:id/series: the provider
// plus all of its series.
func (h *CatalogHandler) ListProviderSeries(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	p, err := h.Providers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}
	series, err := h.Series.ListByProvider(ctx, id)
	if err != nil {
		return apperr.Server("Query failed.")
	}
	sv := make([]seriesView, 0, len(series))
	for _, s := range series {
		sv = append(sv, h.seriesView(ctx, s))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"provider": h.providerView(ctx, p),
		"series":   sv,
	})
}

// GetSeries handles GET /v1/series/:id.
func (h *CatalogHandler) GetSeries(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	s, err := h.Series.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}
	return c.JSON(http.StatusOK, echo.Map{"series": h.seriesView(ctx, s)})
}

// ListSeriesCourses handles GET /v1/series/:id/courses.
func (h *CatalogHandler) ListSeriesCourses(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	s, err := h.Series.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ModelNotFound()
		}
		return apperr.Server("Query failed.")
	}
	courses, err := h.Courses.ListBySeries(ctx, id)
	if err != nil {
		return apperr.Server("Query failed.")
	}
	cv := make([]courseView, 0, len(courses))
	for _, course := range courses {
		cv = append(cv, h.courseView(ctx, course))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"series":  h.seriesView(ctx, s),
		"courses": cv,
	})
}

// GetCourse handles GET /v1/courses/:id including its gallery.
func (h *CatalogHandler) GetCourse(c echo.Context) error {
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
	gallery, err := h.Courses.ListImages(ctx, id)
	if err != nil {
		return apperr.Server("Query failed.")
	}
	urls := make([]string, 0, len(gallery))
	for _, img := range gallery {
		urls = append(urls, img.URL)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"course": h.courseView(ctx, course),
		"images": urls,
	})
}
