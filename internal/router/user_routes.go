package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tiffinbox/tiffin-service/internal/handler"
	"github.com/tiffinbox/tiffin-service/internal/middleware"
	"github.com/tiffinbox/tiffin-service/internal/model"
)

// RegisterUser registers member endpoints under /v1/user.  All routes
// require a valid JWT with the user role.
func RegisterUser(e *echo.Echo, h *handler.UserHandler, jwtSecret string) {
	g := e.Group(
		"/v1/user",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser),
	)
	g.GET("/info", h.Info)
	g.PUT("/team", h.ChangeTeam)
	g.GET("/transactions", h.Transactions)

	g.POST("/orders", h.PlaceOrder)
	g.GET("/orders/upcoming", h.UpcomingOrders)
	g.GET("/orders/history", h.OrderHistory)
	g.PUT("/orders/:id/cancel", h.CancelOrder)
	g.PUT("/orders/:id/replace", h.UpdateOrder)
}
