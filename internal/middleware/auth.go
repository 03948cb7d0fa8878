package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zinlatt/courseware/internal/apperr"
	"github.com/zinlatt/courseware/internal/model"
	"github.com/zinlatt/courseware/internal/repository"
	"github.com/zinlatt/courseware/internal/utils"
)

// UserIDKey is the context key under which Auth stores the resolved
// user id (uint64).
const UserIDKey = "user_id"

// UserStore is the slice of the user repository the auth gate needs: a
// lookup plus the compare-and-swap rotation of the stored refresh token.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateRefreshToken(ctx context.Context, id uint64, oldToken, newToken string) error
}

// AuthConfig is the auth gate's view of the app configuration.
type AuthConfig struct {
	AccessSecret   string
	RefreshSecret  string
	AccessTTLMin   int
	RefreshTTLDays int
	Secure         bool
	SameSite       http.SameSite
}

// Auth returns the per-request authentication gate. The decision tree:
//
//  1. No refresh cookie: reject 401. Nothing can salvage the request.
//  2. No access cookie: run the refresh cycle directly.
//  3. Access token valid: pass, user id goes into the context.
//     Access token expired: run the refresh cycle.
//     Access token malformed or bad signature: reject 400 as
//     tamper-suspected, distinct from plain expiry.
//
// The refresh cycle verifies the refresh token, loads the user, and
// rejects when the user is gone, the email claim is stale, or the
// presented token is not the user's currently stored one (reuse
// detection: an already-rotated token is dead even before it expires).
// On success a brand-new pair is minted, the rotation is persisted with
// a compare-and-swap, and both cookies are reissued.
func Auth(cfg AuthConfig, users UserStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			refreshRaw := utils.ReadCookie(c, utils.RefreshCookie)
			if refreshRaw == "" {
				return apperr.Unauthenticated()
			}

			accessRaw := utils.ReadCookie(c, utils.AccessCookie)
			if accessRaw == "" {
				return refreshCycle(c, cfg, users, refreshRaw, next)
			}

			userID, err := utils.VerifyAccess(cfg.AccessSecret, accessRaw)
			switch {
			case err == nil:
				c.Set(UserIDKey, userID)
				return next(c)
			case errors.Is(err, utils.ErrTokenExpired):
				return refreshCycle(c, cfg, users, refreshRaw, next)
			default:
				return apperr.Attack("Access token is invalid.")
			}
		}
	}
}

// refreshCycle transparently rotates the token pair mid-request.
func refreshCycle(c echo.Context, cfg AuthConfig, users UserStore, refreshRaw string, next echo.HandlerFunc) error {
	claims, err := utils.VerifyRefresh(cfg.RefreshSecret, refreshRaw)
	if err != nil {
		return apperr.Unauthenticated()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := users.GetByID(ctx, claims.UserID)
	if err != nil {
		return apperr.Unauthenticated()
	}
	// Reuse detection: the presented refresh token must be the user's
	// currently stored one. A token rotated away earlier fails here even
	// though its signature and expiry are still good.
	if user.Email != claims.Email || user.RandToken != refreshRaw {
		return apperr.Unauthenticated()
	}

	pair, err := utils.GenerateTokens(cfg.AccessSecret, cfg.RefreshSecret,
		user.ID, user.Email, cfg.AccessTTLMin, cfg.RefreshTTLDays)
	if err != nil {
		return apperr.Server("Could not issue tokens.")
	}

	// Compare-and-swap against the value read above. When two requests
	// race on the same refresh token, exactly one rotation lands; the
	// loser is rejected here instead of orphaning the winner's session.
	if err := users.UpdateRefreshToken(ctx, user.ID, refreshRaw, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrTokenRotated) {
			return apperr.Unauthenticated()
		}
		return apperr.Server("Could not persist session.")
	}

	utils.SetAuthCookies(c, pair, cfg.AccessTTLMin, cfg.RefreshTTLDays, cfg.Secure, cfg.SameSite)
	c.Set(UserIDKey, user.ID)
	return next(c)
}
