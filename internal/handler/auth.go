package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/zinlatt/courseware/internal/apperr"
	"github.com/zinlatt/courseware/internal/config"
	"github.com/zinlatt/courseware/internal/model"
	"github.com/zinlatt/courseware/internal/repository"
	"github.com/zinlatt/courseware/internal/utils"
)

// UserStore is the user persistence surface the auth and profile
// handlers need. *repository.UserRepo satisfies it; tests provide fakes.
type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash, role, randToken string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetRefreshToken(ctx context.Context, id uint64, token string) error
	SetImage(ctx context.Context, id uint64, imageID *uint64) error
	List(ctx context.Context, limit, offset int) ([]model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users UserStore
}

func NewAuthHandler(cfg config.Config, users UserStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}
type loginReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Register creates the user, mints the first token pair, persists the
// refresh token as the sole valid session and sets both cookies.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return apperr.Invalid("Invalid request body.")
	}
	if errs := validateRegister(req.Username, req.Email, req.Password); len(errs) > 0 {
		return apperr.Invalid(errs[0].Message)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	ctx, cancel := reqContext(c)
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		return apperr.UserExist("email")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return apperr.Server("Query failed.")
	}
	if _, err := h.Users.GetByUsername(ctx, req.Username); err == nil {
		return apperr.UserExist("username")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return apperr.Server("Query failed.")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return apperr.Server("Could not hash password.")
	}

	// Seed rand_token with a placeholder so the column is never empty;
	// the real refresh token replaces it right below.
	uid, err := h.Users.Create(ctx, req.Username, req.Email, hash, model.RoleUser, utils.RandomToken())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return apperr.UserExist("email")
		case errors.Is(err, repository.ErrUsernameExists):
			return apperr.UserExist("username")
		}
		return apperr.Server("Could not create user.")
	}

	pair, err := h.issueSession(ctx, uid, req.Email)
	if err != nil {
		return err
	}
	utils.SetAuthCookies(c, pair, h.Cfg.AccessTTLMin, h.Cfg.RefreshTTLDays, h.Cfg.IsProd(), h.Cfg.CookieSameSite)

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User created successfully.",
		"userId":  uid,
	})
}

// Login verifies credentials, rotates the stored refresh token and sets
// fresh cookies. Logging in elsewhere therefore invalidates every other
// session of the account.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperr.Invalid("Invalid request body.")
	}
	if errs := validateLogin(req.Email, req.Password); len(errs) > 0 {
		return apperr.Invalid(errs[0].Message)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := reqContext(c)
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Unauthenticated()
		}
		return apperr.Server("Query failed.")
	}
	if !utils.VerifyPassword(user.PasswordHash, req.Password) {
		return apperr.New("Invalid email or password.", http.StatusUnauthorized, apperr.CodeInvalid)
	}

	pair, err := h.issueSession(ctx, user.ID, user.Email)
	if err != nil {
		return err
	}
	utils.SetAuthCookies(c, pair, h.Cfg.AccessTTLMin, h.Cfg.RefreshTTLDays, h.Cfg.IsProd(), h.Cfg.CookieSameSite)

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Successfully logged in.",
		"userId":  user.ID,
	})
}

// Logout invalidates the presented refresh token by rotating rand_token
// to a fresh random value, then clears both cookies. Rotating instead of
// clearing kills the old refresh token immediately, not only when the
// cookie dies.
func (h *AuthHandler) Logout(c echo.Context) error {
	refreshRaw := utils.ReadCookie(c, utils.RefreshCookie)
	if refreshRaw == "" {
		return apperr.Unauthenticated()
	}
	claims, err := utils.VerifyRefresh(h.Cfg.RefreshSecret, refreshRaw)
	if err != nil {
		return apperr.Unauthenticated()
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	user, err := h.Users.GetByID(ctx, claims.UserID)
	if err != nil || user.Email != claims.Email {
		return apperr.Unauthenticated()
	}

	if err := h.Users.SetRefreshToken(ctx, user.ID, utils.RandomToken()); err != nil {
		return apperr.Server("Logout failed.")
	}
	utils.ClearAuthCookies(c)

	return c.JSON(http.StatusOK, echo.Map{"message": "Successfully logged out."})
}

// AuthCheck is a protected probe returning the identity the auth gate
// resolved.
func (h *AuthHandler) AuthCheck(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Unauthenticated()
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "You are authenticated.",
		"userId":   user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// CheckEmail reports whether an email is already registered.
func (h *AuthHandler) CheckEmail(c echo.Context) error {
	var req struct {
		Email string `json:"email" form:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Invalid("Invalid request body.")
	}
	if errs := validateEmail(nil, req.Email); len(errs) > 0 {
		return apperr.Invalid(errs[0].Message)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	_, err := h.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"exists": true})
	case errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusOK, echo.Map{"exists": false})
	default:
		return apperr.Server("Query failed.")
	}
}

// CheckUsername reports whether a username is taken.
func (h *AuthHandler) CheckUsername(c echo.Context) error {
	var req struct {
		Username string `json:"username" form:"username"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Invalid("Invalid request body.")
	}
	if errs := validateUsername(nil, req.Username); len(errs) > 0 {
		return apperr.Invalid(errs[0].Message)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	_, err := h.Users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"exists": true})
	case errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusOK, echo.Map{"exists": false})
	default:
		return apperr.Server("Query failed.")
	}
}

// issueSession mints a token pair and persists the refresh token as the
// user's sole valid session.
func (h *AuthHandler) issueSession(ctx context.Context, userID uint64, email string) (utils.TokenPair, error) {
	pair, err := utils.GenerateTokens(h.Cfg.AccessSecret, h.Cfg.RefreshSecret,
		userID, email, h.Cfg.AccessTTLMin, h.Cfg.RefreshTTLDays)
	if err != nil {
		return utils.TokenPair{}, apperr.Server("Could not issue tokens.")
	}
	if err := h.Users.SetRefreshToken(ctx, userID, pair.RefreshToken); err != nil {
		return utils.TokenPair{}, apperr.Server("Could not persist session.")
	}
	return pair, nil
}
