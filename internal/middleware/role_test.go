package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/zinlatt/courseware/internal/middleware"
	"github.com/zinlatt/courseware/internal/model"
)

func runAuthorize(t *testing.T, store middleware.UserStore, userID any, permission bool, roles ...string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set(middleware.UserIDKey, userID)
	}
	return middleware.Authorize(store, permission, roles...)(nextOK)(c)
}

func TestAuthorizeAllowList(t *testing.T) {
	admin := &model.User{ID: 1, Role: model.RoleAdmin}
	regular := &model.User{ID: 2, Role: model.RoleUser}
	store := newFakeUserStore(admin, regular)

	require.NoError(t, runAuthorize(t, store, uint64(1), true, model.RoleAdmin))

	err := runAuthorize(t, store, uint64(2), true, model.RoleAdmin)
	requireAppErr(t, err, http.StatusForbidden, "unauthorised")
}

func TestAuthorizeDenyList(t *testing.T) {
	admin := &model.User{ID: 1, Role: model.RoleAdmin}
	regular := &model.User{ID: 2, Role: model.RoleUser}
	store := newFakeUserStore(admin, regular)

	// permission=false blocks the listed roles and lets others through.
	require.NoError(t, runAuthorize(t, store, uint64(2), false, model.RoleAdmin))

	err := runAuthorize(t, store, uint64(1), false, model.RoleAdmin)
	requireAppErr(t, err, http.StatusForbidden, "unauthorised")
}

func TestAuthorizeNoResolvedUser(t *testing.T) {
	store := newFakeUserStore()
	err := runAuthorize(t, store, nil, true, model.RoleAdmin)
	requireAppErr(t, err, http.StatusUnauthorized, "unauthenticated")
}

func TestAuthorizeUserDeleted(t *testing.T) {
	store := newFakeUserStore()
	err := runAuthorize(t, store, uint64(99), true, model.RoleAdmin)
	requireAppErr(t, err, http.StatusUnauthorized, "unauthenticated")
}

func TestAuthorizeCachesUser(t *testing.T) {
	admin := &model.User{ID: 1, Role: model.RoleAdmin, Username: "root"}
	store := newFakeUserStore(admin)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/users", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set(middleware.UserIDKey, uint64(1))

	var seen model.User
	next := func(c echo.Context) error {
		seen = c.Get(middleware.UserKey).(model.User)
		return nil
	}
	require.NoError(t, middleware.Authorize(store, true, model.RoleAdmin)(next)(c))
	require.Equal(t, "root", seen.Username)
}
