package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/courierchat/server/internal/model"
	"github.com/courierchat/server/internal/repository"
)

// UserHandler serves public profile lookups and authenticated user
// search.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(u *repository.UserRepo) *UserHandler {
	if u == nil {
		panic("nil repository passed to NewUserHandler")
	}
	return &UserHandler{Users: u}
}

// profilePart is the sanitized view of a user exposed to other users.
// Email and confirmation state stay private.
type profilePart struct {
	ID          uint64  `json:"id"`
	Nickname    string  `json:"nickname"`
	DisplayName *string `json:"display_name,omitempty"`
	Avatar      *string `json:"avatar"`
}

func toProfile(u model.User) profilePart {
	return profilePart{ID: u.ID, Nickname: u.Login, DisplayName: u.DisplayName, Avatar: u.Avatar}
}

// GetByID handles GET /v1/users/:id. The lookup is public; a malformed
// id behaves exactly like an unknown one.
func (h *UserHandler) GetByID(c echo.Context) error {
	u, err := h.Users.GetByCredential(c.Request().Context(), repository.ByID(c.Param("id")))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user_not_found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toProfile(u))
}

// Search handles GET /v1/users/search?q=. Requires a session; matches
// login and display name case-insensitively.
func (h *UserHandler) Search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing_query"})
	}
	users, err := h.Users.Search(c.Request().Context(), query, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	out := make([]profilePart, 0, len(users))
	for _, u := range users {
		out = append(out, toProfile(u))
	}
	return c.JSON(http.StatusOK, out)
}
