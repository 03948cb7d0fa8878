package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/zinlatt/courseware/internal/apperr"
)

// UserHandler exposes the admin user directory.
type UserHandler struct {
	Users UserStore
}

func NewUserHandler(users UserStore) *UserHandler {
	return &UserHandler{Users: users}
}

type userSummary struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// List handles GET /v1/admin/users?limit=&offset=. Password hashes and
// refresh tokens never leave the repository layer through this endpoint.
func (h *UserHandler) List(c echo.Context) error {
	limit := queryInt(c, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	offset := queryInt(c, "offset", 0)

	ctx, cancel := reqContext(c)
	defer cancel()

	users, err := h.Users.List(ctx, limit, offset)
	if err != nil {
		return apperr.Server("Query failed.")
	}

	out := make([]userSummary, 0, len(users))
	for _, u := range users {
		out = append(out, userSummary{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Role:     u.Role,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
