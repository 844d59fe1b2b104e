package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tiffinbox/tiffin-service/internal/handler"
	"github.com/tiffinbox/tiffin-service/internal/middleware"
	"github.com/tiffinbox/tiffin-service/internal/model"
)

// RegisterSupplier registers supplier endpoints under /v1/supplier.
func RegisterSupplier(e *echo.Echo, h *handler.SupplierHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/supplier",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleSupplier),
	)
	g.GET("/users", h.Users)
	g.POST("/users/:id/recharge", h.Recharge)
	g.GET("/transactions", h.Transactions)
	g.GET("/delivery-spots", h.DeliverySpots)
	g.GET("/pickup-spots", h.PickupSpots)
	g.PUT("/teams/:id/deliver", h.Deliver)
	g.PUT("/teams/:id/pickup", h.Pickup)
	g.GET("/statics", h.Statics, cache)
}
