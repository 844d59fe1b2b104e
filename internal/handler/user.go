package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

type placeOrderReq struct {
	DeliveryDate string `json:"delivery_date"`
}

type changeTeamReq struct {
	TeamID uint64 `json:"team_id"`
}

// PlaceOrder: POST /v1/user/orders
func (h *UserHandler) PlaceOrder(c echo.Context) error {
	var req placeOrderReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.DeliveryDate == "" {
		return badRequest(c, "delivery_date is required")
	}
	day, err := clock.ParseDay(req.DeliveryDate)
	if err != nil {
		return badRequest(c, "delivery_date must be YYYY-MM-DD")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	date, err := h.s.Orders.PlaceOrder(ctx, caller(c), day)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusCreated, "order placed", echo.Map{"delivery_date": date})
}

// CancelOrder: PUT /v1/user/orders/:id/cancel
func (h *UserHandler) CancelOrder(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid order id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.s.Orders.CancelOrder(ctx, id, caller(c)); err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "order canceled", nil)
}

// UpdateOrder: PUT /v1/user/orders/:id/replace re-places a canceled order.
func (h *UserHandler) UpdateOrder(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid order id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.s.Orders.UpdateOrder(ctx, id, caller(c)); err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "order placed again", nil)
}

// UpcomingOrders: GET /v1/user/orders/upcoming
func (h *UserHandler) UpcomingOrders(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	orders, err := h.s.Orders.UpcomingOrders(ctx, caller(c))
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "upcoming orders", orders)
}

// OrderHistory: GET /v1/user/orders/history?page=&size=
func (h *UserHandler) OrderHistory(c echo.Context) error {
	f, err := repository.ParseFilter(c.QueryParams(), 10)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	hist, err := h.s.Orders.OrderHistory(ctx, caller(c), f.Page)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "order history", hist)
}

// ChangeTeam: PUT /v1/user/team
func (h *UserHandler) ChangeTeam(c echo.Context) error {
	var req changeTeamReq
	if err := c.Bind(&req); err != nil || req.TeamID == 0 {
		return badRequest(c, "team_id is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.s.Teams.ChangeTeam(ctx, req.TeamID, caller(c)); err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "team changed", nil)
}

// Info: GET /v1/user/info
func (h *UserHandler) Info(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	info, err := h.s.Users.UserInfo(ctx, caller(c))
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "user info", info)
}

// Transactions: GET /v1/user/transactions?page=&size=
func (h *UserHandler) Transactions(c echo.Context) error {
	f, err := repository.ParseFilter(c.QueryParams(), 10)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, meta, err := h.s.Ledger.Transactions(ctx, caller(c), f.Page)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "transactions", listData{Items: rows, Meta: meta})
}
