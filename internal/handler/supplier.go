package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tiffinbox/tiffin-service/internal/model"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

// Users: GET /v1/supplier/users lists claimed users at the caller's
// addresses.
func (h *SupplierHandler) Users(c echo.Context) error {
	f, err := repository.ParseFilter(c.QueryParams(), 20, repository.FieldTeamID, repository.FieldAddressID)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	f.Equals[repository.FieldSupplierID] = strconv.FormatUint(caller(c), 10)
	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, meta, err := h.s.Admin.Users(ctx, repository.UsersClaimed, f)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "users", listData{Items: rows, Meta: meta})
}

// Recharge: POST /v1/supplier/users/:id/recharge.  The row stays pending
// until an admin collects the cash.
func (h *SupplierHandler) Recharge(c echo.Context) error {
	return recharge(c, h.s.Ledger, h.s.Log)
}

// Transactions: GET /v1/supplier/transactions?status=pending|paid
func (h *SupplierHandler) Transactions(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" && status != model.TransactionPending && status != model.TransactionPaid {
		return badRequest(c, "status must be pending or paid")
	}
	f, err := repository.ParseFilter(c.QueryParams(), 20)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, meta, err := h.s.Suppliers.Transactions(ctx, caller(c), status, f.Page)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "transactions", listData{Items: rows, Meta: meta})
}

// DeliverySpots: GET /v1/supplier/delivery-spots
func (h *SupplierHandler) DeliverySpots(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	spots, err := h.s.Suppliers.DeliverySpots(ctx, caller(c))
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "delivery spots", spots)
}

// PickupSpots: GET /v1/supplier/pickup-spots?search=
func (h *SupplierHandler) PickupSpots(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	spots, err := h.s.Suppliers.PickupSpots(ctx, caller(c), c.QueryParam("search"))
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "pickup spots", spots)
}

// Deliver: PUT /v1/supplier/teams/:id/deliver
func (h *SupplierHandler) Deliver(c echo.Context) error {
	id := caller(c)
	return deliver(c, h.s.Orders, h.s.Log, &id)
}

// Pickup: PUT /v1/supplier/teams/:id/pickup
func (h *SupplierHandler) Pickup(c echo.Context) error {
	id := caller(c)
	return pickup(c, h.s.Orders, h.s.Log, &id)
}

// Statics: GET /v1/supplier/statics
func (h *SupplierHandler) Statics(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.s.Statics.SupplierStatics(ctx, caller(c))
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "statics", t)
}
