package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/zinlatt/courseware/internal/apperr"
	"github.com/zinlatt/courseware/internal/middleware"
	"github.com/zinlatt/courseware/internal/model"
	"github.com/zinlatt/courseware/internal/repository"
	"github.com/zinlatt/courseware/internal/utils"
)

var testAuthCfg = middleware.AuthConfig{
	AccessSecret:   "access-secret",
	RefreshSecret:  "refresh-secret",
	AccessTTLMin:   15,
	RefreshTTLDays: 7,
	SameSite:       http.SameSiteLaxMode,
}

// fakeUserStore is an in-memory UserStore with compare-and-swap
// rotation matching the SQL repository's behavior.
type fakeUserStore struct {
	users map[uint64]*model.User
}

func newFakeUserStore(us ...*model.User) *fakeUserStore {
	s := &fakeUserStore{users: map[uint64]*model.User{}}
	for _, u := range us {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return *u, nil
}

func (s *fakeUserStore) UpdateRefreshToken(_ context.Context, id uint64, oldToken, newToken string) error {
	u, ok := s.users[id]
	if !ok || u.RandToken != oldToken {
		return repository.ErrTokenRotated
	}
	u.RandToken = newToken
	return nil
}

func nextOK(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// run sends a request with the given cookies through the auth gate and
// returns the recorder plus the handler error, if any.
func runAuth(t *testing.T, store middleware.UserStore, cookies ...*http.Cookie) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/api/profile", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := middleware.Auth(testAuthCfg, store)(nextOK)
	return rec, h(c)
}

func requireAppErr(t *testing.T, err error, status int, code string) {
	t.Helper()
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, status, ae.Status)
	require.Equal(t, code, ae.Code)
}

func mintPair(t *testing.T, userID uint64, email string, accessTTLMin int) utils.TokenPair {
	t.Helper()
	pair, err := utils.GenerateTokens(testAuthCfg.AccessSecret, testAuthCfg.RefreshSecret,
		userID, email, accessTTLMin, testAuthCfg.RefreshTTLDays)
	require.NoError(t, err)
	return pair
}

func TestAuthNoRefreshCookie(t *testing.T) {
	store := newFakeUserStore()
	_, err := runAuth(t, store)
	requireAppErr(t, err, http.StatusUnauthorized, "unauthenticated")

	// An access cookie alone cannot salvage the request either.
	pair := mintPair(t, 1, "a@b.co", 15)
	_, err = runAuth(t, store, &http.Cookie{Name: utils.AccessCookie, Value: pair.AccessToken})
	requireAppErr(t, err, http.StatusUnauthorized, "unauthenticated")
}

func TestAuthValidAccessPasses(t *testing.T) {
	user := &model.User{ID: 9, Email: "a@b.co", RandToken: "stored"}
	pair := mintPair(t, 9, "a@b.co", 15)

	rec, err := runAuth(t, newFakeUserStore(user),
		&http.Cookie{Name: utils.AccessCookie, Value: pair.AccessToken},
		&http.Cookie{Name: utils.RefreshCookie, Value: "anything"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	// The stored session is untouched on the fast path.
	require.Equal(t, "stored", user.RandToken)
}

func TestAuthMalformedAccessIsAttack(t *testing.T) {
	user := &model.User{ID: 9, Email: "a@b.co"}
	_, err := runAuth(t, newFakeUserStore(user),
		&http.Cookie{Name: utils.AccessCookie, Value: "garbage"},
		&http.Cookie{Name: utils.RefreshCookie, Value: "anything"})
	requireAppErr(t, err, http.StatusBadRequest, "attack")
}

func TestAuthExpiredAccessRotates(t *testing.T) {
	pair := mintPair(t, 9, "a@b.co", 7)
	user := &model.User{ID: 9, Email: "a@b.co", RandToken: pair.RefreshToken}
	store := newFakeUserStore(user)

	expired := mintPair(t, 9, "a@b.co", -1)
	rec, err := runAuth(t, store,
		&http.Cookie{Name: utils.AccessCookie, Value: expired.AccessToken},
		&http.Cookie{Name: utils.RefreshCookie, Value: pair.RefreshToken})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	// The stored token rotated and fresh cookies went out.
	require.NotEqual(t, pair.RefreshToken, user.RandToken)
	cookies := rec.Result().Cookies()
	names := map[string]string{}
	for _, ck := range cookies {
		names[ck.Name] = ck.Value
	}
	require.Contains(t, names, utils.AccessCookie)
	require.Contains(t, names, utils.RefreshCookie)
	require.Equal(t, user.RandToken, names[utils.RefreshCookie])
}

func TestAuthMissingAccessRunsRefreshCycle(t *testing.T) {
	pair := mintPair(t, 9, "a@b.co", 7)
	user := &model.User{ID: 9, Email: "a@b.co", RandToken: pair.RefreshToken}

	rec, err := runAuth(t, newFakeUserStore(user),
		&http.Cookie{Name: utils.RefreshCookie, Value: pair.RefreshToken})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEqual(t, pair.RefreshToken, user.RandToken)
}

func TestAuthRefreshReuseDetected(t *testing.T) {
	pair := mintPair(t, 9, "a@b.co", 7)
	user := &model.User{ID: 9, Email: "a@b.co", RandToken: pair.RefreshToken}
	store := newFakeUserStore(user)

	// First use rotates the stored token.
	_, err := runAuth(t, store, &http.Cookie{Name: utils.RefreshCookie, Value: pair.RefreshToken})
	require.NoError(t, err)

	// Replaying the same refresh token must now be rejected even though
	// its signature and expiry are still valid.
	_, err = runAuth(t, store, &http.Cookie{Name: utils.RefreshCookie, Value: pair.RefreshToken})
	requireAppErr(t, err, http.StatusUnauthorized, "unauthenticated")
}

func TestAuthRefreshUserGone(t *testing.T) {
	pair := mintPair(t, 9, "a@b.co", 7)
	_, err := runAuth(t, newFakeUserStore(),
		&http.Cookie{Name: utils.RefreshCookie, Value: pair.RefreshToken})
	requireAppErr(t, err, http.StatusUnauthorized, "unauthenticated")
}

func TestAuthRefreshStaleEmailClaim(t *testing.T) {
	pair := mintPair(t, 9, "old@b.co", 7)
	user := &model.User{ID: 9, Email: "new@b.co", RandToken: pair.RefreshToken}
	_, err := runAuth(t, newFakeUserStore(user),
		&http.Cookie{Name: utils.RefreshCookie, Value: pair.RefreshToken})
	requireAppErr(t, err, http.StatusUnauthorized, "unauthenticated")
}

// casLoserStore simulates a concurrent rotation landing between the
// read and the compare-and-swap write.
type casLoserStore struct {
	*fakeUserStore
}

func (s *casLoserStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.fakeUserStore.GetByID(ctx, id)
	if err != nil {
		return u, err
	}
	// Another request rotates right after this read.
	s.users[id].RandToken = "rotated-by-rival"
	return u, nil
}

func TestAuthRefreshCASRaceLoserRejected(t *testing.T) {
	pair := mintPair(t, 9, "a@b.co", 7)
	user := &model.User{ID: 9, Email: "a@b.co", RandToken: pair.RefreshToken}
	store := &casLoserStore{fakeUserStore: newFakeUserStore(user)}

	_, err := runAuth(t, store, &http.Cookie{Name: utils.RefreshCookie, Value: pair.RefreshToken})
	requireAppErr(t, err, http.StatusUnauthorized, "unauthenticated")
	// The rival's rotation survives.
	require.Equal(t, "rotated-by-rival", user.RandToken)
}
