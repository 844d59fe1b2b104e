package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/tiffinbox/tiffin-service/internal/handler"
	"github.com/tiffinbox/tiffin-service/internal/metrics"
	"github.com/tiffinbox/tiffin-service/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers sign-up, login and the token endpoints.  Session
// creation lives under /v1/auth without a token; the rest needs one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/signup", a.SignUp)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)

	auth := g.Group("", middleware.JWTAuth(jwtSecret))
	auth.POST("/logout", a.Logout)
	auth.PUT("/password", a.ChangePassword)

	// Admin and supplier accounts sign in here; plain users are refused.
	e.POST("/v1/admin/login", a.AdminLogin)
}
