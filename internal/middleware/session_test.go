package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierchat/server/internal/repository"
)

type stubResolver struct {
	userID uint64
	err    error
	seen   string
}

func (s *stubResolver) Resolve(_ context.Context, raw string) (uint64, error) {
	s.seen = raw
	return s.userID, s.err
}

func runSessionAuth(t *testing.T, resolver SessionResolver, authHeader string) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/recipients", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := SessionAuth(resolver)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return rec, c, handler(c)
}

func TestSessionAuth_NoToken(t *testing.T) {
	rec, _, err := runSessionAuth(t, &stubResolver{}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"no_token"}`, rec.Body.String())
}

func TestSessionAuth_WrongScheme(t *testing.T) {
	rec, _, err := runSessionAuth(t, &stubResolver{}, "Basic dXNlcjpwYXNz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"no_token"}`, rec.Body.String())
}

func TestSessionAuth_UnknownToken(t *testing.T) {
	resolver := &stubResolver{err: repository.ErrSessionNotFound}
	rec, _, err := runSessionAuth(t, resolver, "Bearer deadbeef")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_token"}`, rec.Body.String())
	assert.Equal(t, "deadbeef", resolver.seen)
}

func TestSessionAuth_StoreFailure(t *testing.T) {
	rec, _, err := runSessionAuth(t, &stubResolver{err: errors.New("db down")}, "Bearer deadbeef")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSessionAuth_ValidToken(t *testing.T) {
	resolver := &stubResolver{userID: 42}
	rec, c, err := runSessionAuth(t, resolver, "Bearer cafebabe")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	uid, err := UserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
	assert.Equal(t, "cafebabe", SessionToken(c))
}

func TestUserID_Unset(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, err := UserID(c)
	assert.Error(t, err)
}
