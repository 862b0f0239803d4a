package handler

import (
	"context"  // provides context with cancellation for DB calls
	"errors"   // sentinel comparisons on repository errors
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/courierchat/server/internal/config"     // app configuration
	"github.com/courierchat/server/internal/middleware" // context helpers for the authenticated user
	"github.com/courierchat/server/internal/repository" // DB repositories
	"github.com/courierchat/server/internal/utils"      // helper functions (hashing, tokens, validation)
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Sessions *repository.SessionRepo
	Hasher   utils.PasswordHasher
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, s *repository.SessionRepo, h utils.PasswordHasher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s, Hasher: h}
}

// ----- DTOs -----

type registerReq struct {
	Login       string `json:"login"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}
type loginReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
type confirmReq struct {
	Token string `json:"token"`
}
type updateMeReq struct {
	DisplayName *string `json:"display_name"`
	Avatar      *string `json:"avatar"`
}
type sessionResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Register: validate input, create the account, hand back a signed
// confirmation token the client redeems via /v1/auth/confirm. The
// account cannot log in until it is confirmed.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Login = strings.TrimSpace(req.Login)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)

	if violations := utils.ValidateRegistration(req.Login, req.Email, req.Password, req.DisplayName); violations != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": violations})
	}

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var displayName *string
	if req.DisplayName != "" {
		displayName = &req.DisplayName
	}
	uid, err := h.Users.Create(ctx, req.Login, req.Email, hash, displayName)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLoginExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "login already exists"})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	confirm, err := utils.NewConfirmToken(h.Cfg.ConfirmSecret, req.Login, h.Cfg.ConfirmTTLHours)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue confirm token failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":            uid,
		"confirm_token": confirm,
	})
}

// Available: registration dry run. Checks whether a login or email is
// still free without creating anything.
func (h *AuthHandler) Available(c echo.Context) error {
	login := strings.TrimSpace(c.QueryParam("login"))
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var cred repository.Credential
	var value string
	switch {
	case email != "":
		cred, value = repository.ByEmail(email), email
	case login != "":
		cred, value = repository.ByLogin(login), login
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no login or email provided"})
	}

	_, err := h.Users.GetByCredential(ctx, cred)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"message": value + " is available"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusConflict, echo.Map{"message": value + " already exists"})
}

// Confirm redeems a confirmation token and activates the account.
func (h *AuthHandler) Confirm(c echo.Context) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	login, err := utils.ParseConfirmToken(h.Cfg.ConfirmSecret, strings.TrimSpace(req.Token))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Confirm(ctx, login); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user_not_found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account confirmed"})
}

// Login: verify credentials against a confirmed account and issue an
// opaque session token. Unknown logins and wrong passwords produce the
// same response so the endpoint does not leak which logins exist.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing_credentials"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByCredential(ctx, repository.ByLogin(req.Login))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !h.Hasher.Verify(req.Password, u.PasswordHash) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials"})
	}
	if !u.IsConfirmed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not_confirmed"})
	}

	tok, err := h.Sessions.Issue(ctx, u.ID, h.Cfg.SessionTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	return c.JSON(http.StatusOK, sessionResp{Token: tok.Raw, Expires: tok.Exp})
}

// Logout revokes exactly the session presented on this request.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := middleware.SessionToken(c)
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no_token"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.RevokeToken(ctx, raw); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's own profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":           u.ID,
		"login":        u.Login,
		"email":        u.Email,
		"display_name": u.DisplayName,
		"avatar":       u.Avatar,
		"confirmed":    u.IsConfirmed,
		"created_at":   u.CreatedAt,
	})
}

// UpdateMe mutates the optional profile fields (display name, avatar).
// Absent fields are left untouched.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateMeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.DisplayName != nil && !utils.ValidateDisplayName(*req.DisplayName) {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": []string{"full_name_invalid"}})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, uid, req.DisplayName, req.Avatar); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "profile updated"})
}

// DeleteMe removes the account. Sessions are revoked first so no live
// token survives the user row; authored messages are deliberately left
// in place.
func (h *AuthHandler) DeleteMe(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.RevokeAllForUser(ctx, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke sessions failed"})
	}
	if err := h.Users.Delete(ctx, uid); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user_not_found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
