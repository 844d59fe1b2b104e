package handler

import (
	"github.com/sirupsen/logrus"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/service"
)

// Services is everything the handlers call into.
type Services struct {
	Accounts  *service.AccountService
	Orders    *service.OrderService
	Teams     *service.TeamService
	Ledger    *service.LedgerService
	Users     *service.UserService
	Admin     *service.AdminService
	Suppliers *service.SupplierService
	Statics   *service.StaticsService
	Clock     clock.Clock
	Log       logrus.FieldLogger
}

// UserHandler serves the endpoints of a signed-in member.
type UserHandler struct{ s Services }

func NewUserHandler(s Services) *UserHandler { return &UserHandler{s} }

// AdminHandler serves the back-office endpoints.  Every route is behind
// RequireRole("admin").
type AdminHandler struct{ s Services }

func NewAdminHandler(s Services) *AdminHandler { return &AdminHandler{s} }

// SupplierHandler serves a supplier's own view.  Writes are scoped to the
// caller's supplier id.
type SupplierHandler struct{ s Services }

func NewSupplierHandler(s Services) *SupplierHandler { return &SupplierHandler{s} }
