package handler_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/zinlatt/courseware/internal/apperr"
	"github.com/zinlatt/courseware/internal/config"
	"github.com/zinlatt/courseware/internal/handler"
	"github.com/zinlatt/courseware/internal/middleware"
	"github.com/zinlatt/courseware/internal/model"
	"github.com/zinlatt/courseware/internal/repository"
	"github.com/zinlatt/courseware/internal/utils"
)

var testCfg = config.Config{
	Env:            "dev",
	AccessSecret:   "access-secret",
	RefreshSecret:  "refresh-secret",
	AccessTTLMin:   15,
	RefreshTTLDays: 7,
	BcryptCost:     4,
	CookieSameSite: http.SameSiteLaxMode,
}

// memUsers is an in-memory handler.UserStore keyed every way the
// handlers look users up.
type memUsers struct {
	nextID uint64
	byID   map[uint64]*model.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint64]*model.User{}}
}

func (m *memUsers) Create(_ context.Context, username, email, passwordHash, role, randToken string) (uint64, error) {
	m.nextID++
	m.byID[m.nextID] = &model.User{
		ID: m.nextID, Username: username, Email: email,
		PasswordHash: passwordHash, Role: role, RandToken: randToken,
	}
	return m.nextID, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	for _, u := range m.byID {
		if u.Username == username {
			return *u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return *u, nil
}

func (m *memUsers) SetRefreshToken(_ context.Context, id uint64, token string) error {
	m.byID[id].RandToken = token
	return nil
}

func (m *memUsers) SetImage(_ context.Context, id uint64, imageID *uint64) error {
	m.byID[id].ImageID = imageID
	return nil
}

func (m *memUsers) List(_ context.Context, limit, offset int) ([]model.User, error) {
	out := make([]model.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, *u)
	}
	return out, nil
}

func postJSON(t *testing.T, h echo.HandlerFunc, target, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func authCookies(t *testing.T, rec *httptest.ResponseRecorder) (access, refresh *http.Cookie) {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		switch ck.Name {
		case utils.AccessCookie:
			access = ck
		case utils.RefreshCookie:
			refresh = ck
		}
	}
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	return access, refresh
}

func requireHandlerErr(t *testing.T, err error, status int, code string) {
	t.Helper()
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, status, ae.Status)
	require.Equal(t, code, ae.Code)
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	users := newMemUsers()
	h := handler.NewAuthHandler(testCfg, users)

	rec, err := postJSON(t, h.Register, "/v1/auth/register",
		`{"username":"jane","email":"Jane@Example.com","password":"longenough"}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code)

	u := users.byID[1]
	require.Equal(t, "jane", u.Username)
	// Email is normalized to lowercase before storage.
	require.Equal(t, "jane@example.com", u.Email)
	require.Equal(t, model.RoleUser, u.Role)
	// The password is stored hashed, never verbatim.
	require.NotEqual(t, "longenough", u.PasswordHash)
	require.True(t, utils.VerifyPassword(u.PasswordHash, "longenough"))

	// The refresh cookie matches the stored single-session token.
	_, refresh := authCookies(t, rec)
	require.Equal(t, u.RandToken, refresh.Value)
	require.True(t, refresh.HttpOnly)
}

func TestRegisterValidation(t *testing.T) {
	h := handler.NewAuthHandler(testCfg, newMemUsers())

	cases := []string{
		`{"username":"jo","email":"a@b.co","password":"longenough"}`,
		`{"username":"jane","email":"not-an-email","password":"longenough"}`,
		`{"username":"jane","email":"a@b.co","password":"short"}`,
	}
	for _, body := range cases {
		_, err := postJSON(t, h.Register, "/v1/auth/register", body)
		requireHandlerErr(t, err, http.StatusBadRequest, "invalid")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newMemUsers()
	h := handler.NewAuthHandler(testCfg, users)

	_, err := postJSON(t, h.Register, "/v1/auth/register",
		`{"username":"jane","email":"a@b.co","password":"longenough"}`)
	require.NoError(t, err)

	_, err = postJSON(t, h.Register, "/v1/auth/register",
		`{"username":"other","email":"a@b.co","password":"longenough"}`)
	requireHandlerErr(t, err, http.StatusBadRequest, "userExist")
}

func TestLoginRotatesSession(t *testing.T) {
	users := newMemUsers()
	h := handler.NewAuthHandler(testCfg, users)

	_, err := postJSON(t, h.Register, "/v1/auth/register",
		`{"username":"jane","email":"a@b.co","password":"longenough"}`)
	require.NoError(t, err)
	before := users.byID[1].RandToken

	rec, err := postJSON(t, h.Login, "/v1/auth/login",
		`{"email":"a@b.co","password":"longenough"}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	// Logging in invalidates the session minted at registration.
	require.NotEqual(t, before, users.byID[1].RandToken)
}

func TestLoginWrongPassword(t *testing.T) {
	users := newMemUsers()
	h := handler.NewAuthHandler(testCfg, users)

	_, err := postJSON(t, h.Register, "/v1/auth/register",
		`{"username":"jane","email":"a@b.co","password":"longenough"}`)
	require.NoError(t, err)

	_, err = postJSON(t, h.Login, "/v1/auth/login",
		`{"email":"a@b.co","password":"wrongwrong"}`)
	requireHandlerErr(t, err, http.StatusUnauthorized, "invalid")
}

func TestLoginUnknownEmail(t *testing.T) {
	h := handler.NewAuthHandler(testCfg, newMemUsers())
	_, err := postJSON(t, h.Login, "/v1/auth/login",
		`{"email":"ghost@b.co","password":"whatever1"}`)
	requireHandlerErr(t, err, http.StatusUnauthorized, "unauthenticated")
}

func TestLogoutKillsRefreshToken(t *testing.T) {
	users := newMemUsers()
	h := handler.NewAuthHandler(testCfg, users)

	rec, err := postJSON(t, h.Register, "/v1/auth/register",
		`{"username":"jane","email":"a@b.co","password":"longenough"}`)
	require.NoError(t, err)
	_, refresh := authCookies(t, rec)

	out, err := postJSON(t, h.Logout, "/v1/auth/logout", "", refresh)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, out.Code)

	// The stored token rotated away, so the pre-logout refresh token is
	// dead: a refresh cycle with it must fail reuse detection.
	require.NotEqual(t, refresh.Value, users.byID[1].RandToken)

	gate := middleware.Auth(middleware.AuthConfig{
		AccessSecret:   testCfg.AccessSecret,
		RefreshSecret:  testCfg.RefreshSecret,
		AccessTTLMin:   testCfg.AccessTTLMin,
		RefreshTTLDays: testCfg.RefreshTTLDays,
		SameSite:       testCfg.CookieSameSite,
	}, &casUsers{users})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: utils.RefreshCookie, Value: refresh.Value})
	c := e.NewContext(req, httptest.NewRecorder())
	err = gate(func(echo.Context) error { return nil })(c)
	requireHandlerErr(t, err, http.StatusUnauthorized, "unauthenticated")
}

func TestRegisterThenAuthCheckRoundTrip(t *testing.T) {
	users := newMemUsers()
	h := handler.NewAuthHandler(testCfg, users)

	rec, err := postJSON(t, h.Register, "/v1/auth/register",
		`{"username":"jane","email":"a@b.co","password":"longenough"}`)
	require.NoError(t, err)
	access, refresh := authCookies(t, rec)

	// The cookies from registration pass the auth gate and resolve to
	// the registered identity.
	gate := middleware.Auth(middleware.AuthConfig{
		AccessSecret:   testCfg.AccessSecret,
		RefreshSecret:  testCfg.RefreshSecret,
		AccessTTLMin:   testCfg.AccessTTLMin,
		RefreshTTLDays: testCfg.RefreshTTLDays,
		SameSite:       testCfg.CookieSameSite,
	}, &casUsers{users})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/auth-check", nil)
	req.AddCookie(&http.Cookie{Name: utils.AccessCookie, Value: access.Value})
	req.AddCookie(&http.Cookie{Name: utils.RefreshCookie, Value: refresh.Value})
	out := httptest.NewRecorder()
	c := e.NewContext(req, out)
	require.NoError(t, gate(h.AuthCheck)(c))
	require.Equal(t, http.StatusOK, out.Code)

	body := decodeBody(t, out)
	require.Equal(t, "jane", body["username"])
	require.Equal(t, "a@b.co", body["email"])
}

func TestLogoutWithoutCookie(t *testing.T) {
	h := handler.NewAuthHandler(testCfg, newMemUsers())
	_, err := postJSON(t, h.Logout, "/v1/auth/logout", "")
	requireHandlerErr(t, err, http.StatusUnauthorized, "unauthenticated")
}

func TestCheckEmail(t *testing.T) {
	users := newMemUsers()
	h := handler.NewAuthHandler(testCfg, users)

	_, err := postJSON(t, h.Register, "/v1/auth/register",
		`{"username":"jane","email":"a@b.co","password":"longenough"}`)
	require.NoError(t, err)

	rec, err := postJSON(t, h.CheckEmail, "/v1/auth/check-email", `{"email":"a@b.co"}`)
	require.NoError(t, err)
	require.Equal(t, true, decodeBody(t, rec)["exists"])

	rec, err = postJSON(t, h.CheckEmail, "/v1/auth/check-email", `{"email":"free@b.co"}`)
	require.NoError(t, err)
	require.Equal(t, false, decodeBody(t, rec)["exists"])
}

func TestCheckUsername(t *testing.T) {
	users := newMemUsers()
	h := handler.NewAuthHandler(testCfg, users)

	_, err := postJSON(t, h.Register, "/v1/auth/register",
		`{"username":"jane","email":"a@b.co","password":"longenough"}`)
	require.NoError(t, err)

	rec, err := postJSON(t, h.CheckUsername, "/v1/auth/check-username", `{"username":"jane"}`)
	require.NoError(t, err)
	require.Equal(t, true, decodeBody(t, rec)["exists"])

	rec, err = postJSON(t, h.CheckUsername, "/v1/auth/check-username", `{"username":"free"}`)
	require.NoError(t, err)
	require.Equal(t, false, decodeBody(t, rec)["exists"])
}

// casUsers adapts memUsers to the auth gate's store interface with
// compare-and-swap rotation.
type casUsers struct {
	*memUsers
}

func (m *casUsers) UpdateRefreshToken(_ context.Context, id uint64, oldToken, newToken string) error {
	u, ok := m.byID[id]
	if !ok || u.RandToken != oldToken {
		return repository.ErrTokenRotated
	}
	u.RandToken = newToken
	return nil
}
