package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // the Echo web framework handles routing

	"github.com/courierchat/server/internal/handler" // the handlers that implement business logic
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth, protected account
// endpoints under /v1. The limiter shields the credential endpoints
// from brute forcing; sessionAuth is the three-outcome bearer check
// every protected route runs behind.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc, sessionAuth echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.Use(limiter)
	g.POST("/register", a.Register)
	g.GET("/available", a.Available)
	g.POST("/confirm", a.Confirm)
	g.POST("/login", a.Login)
	// Logout needs the presented token resolved, so it sits behind
	// sessionAuth rather than in the open group.
	e.POST("/v1/auth/logout", a.Logout, sessionAuth)

	me := e.Group("/v1/me")
	me.Use(sessionAuth)
	me.GET("", a.Me)
	me.PATCH("", a.UpdateMe)
	me.DELETE("", a.DeleteMe)
}

// RegisterUsers registers the public profile lookup and the
// authenticated user search.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, sessionAuth echo.MiddlewareFunc) {
	// Public profile by id; malformed ids behave like unknown ones.
	e.GET("/v1/users/:id", u.GetByID)
	e.GET("/v1/users/search", u.Search, sessionAuth)
}

// RegisterMessaging registers every pair-scoped messaging route. All of
// them require a valid session.
func RegisterMessaging(e *echo.Echo, m *handler.MessageHandler, at *handler.AttachmentHandler, sessionAuth echo.MiddlewareFunc) {
	auth := e.Group("/v1")
	auth.Use(sessionAuth)

	auth.GET("/recipients", m.Recipients)
	auth.GET("/messages/:recipientId/:page", m.List)
	auth.POST("/messages/:recipientId", m.Send)
	auth.POST("/messages/:recipientId/edit", m.Edit)
	auth.POST("/messages/:id/delete", m.Delete)
	auth.POST("/sync/:recipientId", m.Sync)
	auth.GET("/attachments/:id", at.Download)
}
