package utils

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Cookie names used for the auth token pair.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// SetAuthCookies writes the access and refresh tokens as httpOnly
// cookies. Secure is only set in production so local development over
// plain HTTP keeps working; the SameSite policy is a deployment
// parameter.
func SetAuthCookies(c echo.Context, pair TokenPair, accessTTLMin, refreshTTLDays int, secure bool, sameSite http.SameSite) {
	c.SetCookie(&http.Cookie{
		Name:     AccessCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   accessTTLMin * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   refreshTTLDays * 24 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

// ClearAuthCookies expires both auth cookies on the client.
func ClearAuthCookies(c echo.Context) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}

// ReadCookie returns the named cookie's value or "" when absent.
func ReadCookie(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil || ck == nil {
		return ""
	}
	return ck.Value
}
