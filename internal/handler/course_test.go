package handler_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/zinlatt/courseware/internal/asset"
	"github.com/zinlatt/courseware/internal/handler"
	"github.com/zinlatt/courseware/internal/model"
	"github.com/zinlatt/courseware/internal/repository"
)

type memSeries struct {
	rows map[uint64]model.Series
}

func (m *memSeries) Create(_ context.Context, s model.Series) (uint64, error) {
	id := uint64(len(m.rows) + 1)
	s.ID = id
	m.rows[id] = s
	return id, nil
}

func (m *memSeries) GetByID(_ context.Context, id uint64) (model.Series, error) {
	s, ok := m.rows[id]
	if !ok {
		return model.Series{}, repository.ErrNotFound
	}
	return s, nil
}

func (m *memSeries) Update(_ context.Context, s model.Series) error {
	m.rows[s.ID] = s
	return nil
}

func (m *memSeries) Delete(_ context.Context, id uint64) error {
	delete(m.rows, id)
	return nil
}

func (m *memSeries) ListByProvider(_ context.Context, providerID uint64) ([]model.Series, error) {
	var out []model.Series
	for _, s := range m.rows {
		if s.ProviderID == providerID {
			out = append(out, s)
		}
	}
	return out, nil
}

type memCourses struct {
	nextID     uint64
	rows       map[uint64]model.Course
	gallery    map[uint64][]model.CourseImage
	failCreate bool
}

func newMemCourses() *memCourses {
	return &memCourses{rows: map[uint64]model.Course{}, gallery: map[uint64][]model.CourseImage{}}
}

func (m *memCourses) Create(_ context.Context, c model.Course, images []model.CourseImage) (uint64, error) {
	if m.failCreate {
		return 0, errors.New("insert failed")
	}
	m.nextID++
	c.ID = m.nextID
	m.rows[c.ID] = c
	m.gallery[c.ID] = images
	return c.ID, nil
}

func (m *memCourses) GetByID(_ context.Context, id uint64) (model.Course, error) {
	c, ok := m.rows[id]
	if !ok {
		return model.Course{}, repository.ErrNotFound
	}
	return c, nil
}

func (m *memCourses) Update(_ context.Context, c model.Course) error {
	if _, ok := m.rows[c.ID]; !ok {
		return repository.ErrNotFound
	}
	m.rows[c.ID] = c
	return nil
}

func (m *memCourses) Delete(_ context.Context, id uint64) error {
	delete(m.rows, id)
	delete(m.gallery, id)
	return nil
}

func (m *memCourses) ListBySeries(_ context.Context, seriesID uint64) ([]model.Course, error) {
	var out []model.Course
	for _, c := range m.rows {
		if c.SeriesID == seriesID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCourses) ListImages(_ context.Context, courseID uint64) ([]model.CourseImage, error) {
	return m.gallery[courseID], nil
}

func (m *memCourses) ReplaceImages(_ context.Context, courseID uint64, images []model.CourseImage) error {
	m.gallery[courseID] = images
	return nil
}

type courseFixture struct {
	handler *handler.CourseHandler
	courses *memCourses
	series  *memSeries
	images  *memImages
	blobs   *memBlobs
}

func newCourseFixture() *courseFixture {
	blobs := newMemBlobs()
	images := newMemImages()
	courses := newMemCourses()
	series := &memSeries{rows: map[uint64]model.Series{
		1: {ID: 1, Name: "Go from scratch", ProviderID: 1},
	}}
	assets := asset.NewManager(blobs, images, nil, zerolog.Nop())
	return &courseFixture{
		handler: handler.NewCourseHandler(courses, series, images, assets),
		courses: courses,
		series:  series,
		images:  images,
		blobs:   blobs,
	}
}

func courseFields(seriesID string) map[string]string {
	return map[string]string{
		"name":        "Intro course",
		"description": "basics",
		"price":       "4999",
		"seriesId":    seriesID,
	}
}

// courseReq builds a multipart request with the course fields, an
// optional preview and n gallery images.
func courseReq(t *testing.T, method, target string, fields map[string]string, preview bool, n int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if preview {
		part, err := w.CreateFormFile("previewImage", "preview.jpg")
		require.NoError(t, err)
		_, err = part.Write(smallJPEG(t))
		require.NoError(t, err)
	}
	for i := 0; i < n; i++ {
		part, err := w.CreateFormFile("images", "gallery.jpg")
		require.NoError(t, err)
		_, err = part.Write(smallJPEG(t))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

// createCourse posts a multipart create with one preview and n gallery
// images, returning the handler error.
func (fx *courseFixture) createCourse(t *testing.T, seriesID string, n int) error {
	t.Helper()
	req := courseReq(t, http.MethodPost, "/v1/admin/courses", courseFields(seriesID), true, n)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return fx.handler.Create(c)
}

func TestCourseCreateStoresPreviewAndGallery(t *testing.T) {
	fx := newCourseFixture()
	require.NoError(t, fx.createCourse(t, "1", 2))

	course := fx.courses.rows[1]
	require.NotNil(t, course.ImageID)
	require.Len(t, fx.courses.gallery[1], 2)
	// Preview blob plus two gallery blobs.
	require.Len(t, fx.blobs.blobs, 3)
	// Only the preview has an image row; gallery rows live with the course.
	require.Len(t, fx.images.rows, 1)
}

func TestCourseCreateUnknownSeries(t *testing.T) {
	fx := newCourseFixture()
	err := fx.createCourse(t, "42", 1)
	requireHandlerErr(t, err, http.StatusUnauthorized, "invalid")
	require.Empty(t, fx.blobs.blobs)
}

func TestCourseCreateRowFailureUnwindsAllBlobs(t *testing.T) {
	fx := newCourseFixture()
	fx.courses.failCreate = true

	err := fx.createCourse(t, "1", 3)
	requireHandlerErr(t, err, http.StatusInternalServerError, "server_error")
	require.Empty(t, fx.blobs.blobs)
	require.Empty(t, fx.images.rows)
}

func TestCourseUpdateReplacesGallery(t *testing.T) {
	fx := newCourseFixture()
	require.NoError(t, fx.createCourse(t, "1", 2))
	oldGallery := fx.courses.gallery[1]
	require.Len(t, oldGallery, 2)

	// No new preview, one replacement gallery image.
	req := courseReq(t, http.MethodPatch, "/v1/admin/courses/1", courseFields("1"), false, 1)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, fx.handler.Update(c))

	newGallery := fx.courses.gallery[1]
	require.Len(t, newGallery, 1)
	require.NotEqual(t, oldGallery[0].URL, newGallery[0].URL)
	// Old gallery blobs are gone; preview blob plus one new gallery blob remain.
	require.Len(t, fx.blobs.blobs, 2)
}

func TestCourseDeleteDiscardsEverything(t *testing.T) {
	fx := newCourseFixture()
	require.NoError(t, fx.createCourse(t, "1", 2))

	req := httptest.NewRequest(http.MethodDelete, "/v1/admin/courses/1", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, fx.handler.Delete(c))

	require.Empty(t, fx.courses.rows)
	require.Empty(t, fx.blobs.blobs)
	require.Empty(t, fx.images.rows)
}
