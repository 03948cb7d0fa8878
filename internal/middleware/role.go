package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zinlatt/courseware/internal/apperr"
)

// UserKey is the context key under which Authorize caches the loaded
// user record for the handler.
const UserKey = "user"

// Authorize returns the role gate. It must run after Auth. With
// permission=true the listed roles are an allow-list: the user's role
// must be among them. With permission=false they are a deny-list: the
// user passes only when the role is NOT among them. Either mismatch is
// 403; a request with no resolved user is 401.
func Authorize(users UserStore, permission bool, roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(UserIDKey).(uint64)
			if !ok {
				return apperr.Unauthenticated()
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			user, err := users.GetByID(ctx, userID)
			if err != nil {
				return apperr.Unauthenticated()
			}

			match := allowed[user.Role]
			if permission && !match {
				return apperr.Unauthorised()
			}
			if !permission && match {
				return apperr.Unauthorised()
			}

			c.Set(UserKey, user)
			return next(c)
		}
	}
}
