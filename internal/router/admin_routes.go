package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tiffinbox/tiffin-service/internal/handler"
	"github.com/tiffinbox/tiffin-service/internal/middleware"
	"github.com/tiffinbox/tiffin-service/internal/model"
)

// RegisterAdmin registers the back-office endpoints under /v1/admin.  The
// dashboard counters go through cache.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, a *handler.AuthHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.PUT("/change-password", a.ResetPassword)

	g.POST("/addresses", h.AddAddress)
	g.GET("/addresses", h.Addresses)
	g.PUT("/addresses/:id", h.UpdateAddress)

	g.POST("/teams", h.CreateTeam)
	g.GET("/teams", h.Teams)
	g.GET("/teams/:id", h.TeamInfo)
	g.PUT("/teams/:id/leader", h.ChangeLeader)
	g.PUT("/teams/:id/due-boxes", h.UpdateDueBoxes)
	g.PUT("/teams/:id/deliver", h.Deliver)
	g.PUT("/teams/:id/pickup", h.Pickup)

	g.GET("/users", h.Users)
	g.GET("/users/:id", h.UserByID)
	g.GET("/users/:id/unclaimed", h.UnclaimedUser)
	g.POST("/users/:id/claim", h.ClaimUser)
	g.PUT("/users/:id/team", h.ChangeUserTeam)
	g.POST("/users/:id/recharge", h.Recharge)
	g.POST("/users/:id/refund", h.Refund)

	g.GET("/orders", h.Orders)

	g.POST("/suppliers", h.CreateSupplier)
	g.GET("/suppliers", h.Suppliers)
	g.GET("/suppliers/:id", h.Supplier)
	g.PUT("/suppliers/:id", h.UpdateSupplier)
	g.PUT("/suppliers/:id/collect", h.CollectPayment)

	g.POST("/expenses", h.AddExpenses)
	g.GET("/expenses", h.Expenses)
	g.GET("/statics", h.Statics, cache)
}
