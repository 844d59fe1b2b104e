package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/middleware"
	"github.com/tiffinbox/tiffin-service/internal/repository"
	"github.com/tiffinbox/tiffin-service/internal/service"
)

type addressReq struct {
	Address    string  `json:"address"`
	SupplierID *uint64 `json:"supplier_id"`
}
type createTeamReq struct {
	Name      string `json:"name"`
	LeaderID  uint64 `json:"leader_id"`
	AddressID uint64 `json:"address_id"`
}
type claimReq struct {
	Balance   int64  `json:"balance"`
	TeamID    uint64 `json:"team_id"`
	AddressID uint64 `json:"address_id"`
}
type amountReq struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}
type leaderReq struct {
	LeaderID uint64 `json:"leader_id"`
}
type dueBoxesReq struct {
	DueBoxes *int `json:"due_boxes"`
}
type supplierReq struct {
	AccountID uint64 `json:"account_id"`
	Name      string `json:"name"`
	ContactNo string `json:"contact_no"`
}
type expenseItem struct {
	ProductName string `json:"product_name"`
	Quantity    string `json:"quantity"`
	Amount      int64  `json:"amount"`
	Date        string `json:"date"`
}
type expensesReq struct {
	Expenses []expenseItem `json:"expenses"`
}

// ----- addresses -----

// AddAddress: POST /v1/admin/addresses
func (h *AdminHandler) AddAddress(c echo.Context) error {
	var req addressReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Address) == "" {
		return badRequest(c, "address is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.s.Admin.AddAddress(ctx, req.Address, req.SupplierID)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusCreated, "address added", echo.Map{"id": id})
}

// UpdateAddress: PUT /v1/admin/addresses/:id
func (h *AdminHandler) UpdateAddress(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid address id")
	}
	var req addressReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Address) == "" {
		return badRequest(c, "address is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.s.Admin.UpdateAddress(ctx, id, req.Address, req.SupplierID); err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "address updated", nil)
}

// Addresses: GET /v1/admin/addresses?search=
func (h *AdminHandler) Addresses(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, err := h.s.Admin.Addresses(ctx, c.QueryParam("search"))
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "addresses", rows)
}

// ----- teams -----

// CreateTeam: POST /v1/admin/teams
func (h *AdminHandler) CreateTeam(c echo.Context) error {
	var req createTeamReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Name) == "" || req.LeaderID == 0 || req.AddressID == 0 {
		return badRequest(c, "name, leader_id and address_id are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.s.Teams.CreateTeam(ctx, req.Name, req.LeaderID, req.AddressID)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusCreated, "team created", echo.Map{"id": id})
}

// Teams: GET /v1/admin/teams?search=&address_id=&supplier_id=&page=&size=
func (h *AdminHandler) Teams(c echo.Context) error {
	f, err := repository.ParseFilter(c.QueryParams(), 20, repository.FieldAddressID, repository.FieldSupplierID)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, meta, err := h.s.Teams.Teams(ctx, f)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "teams", listData{Items: rows, Meta: meta})
}

// TeamInfo: GET /v1/admin/teams/:id
func (h *AdminHandler) TeamInfo(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid team id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	info, err := h.s.Teams.TeamInfo(ctx, id)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "team", info)
}

// ChangeLeader: PUT /v1/admin/teams/:id/leader
func (h *AdminHandler) ChangeLeader(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid team id")
	}
	var req leaderReq
	if err := c.Bind(&req); err != nil || req.LeaderID == 0 {
		return badRequest(c, "leader_id is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.s.Teams.ChangeLeader(ctx, req.LeaderID, id); err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "team leader changed", nil)
}

// UpdateDueBoxes: PUT /v1/admin/teams/:id/due-boxes
func (h *AdminHandler) UpdateDueBoxes(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid team id")
	}
	var req dueBoxesReq
	if err := c.Bind(&req); err != nil || req.DueBoxes == nil {
		return badRequest(c, "due_boxes is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.s.Teams.UpdateDueBoxes(ctx, id, *req.DueBoxes); err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "due boxes updated", nil)
}

// ----- users -----

// Users: GET /v1/admin/users?status=all|claimed|unclaimed&search=&team_id=&address_id=
func (h *AdminHandler) Users(c echo.Context) error {
	f, err := repository.ParseFilter(c.QueryParams(), 20,
		repository.FieldTeamID, repository.FieldAddressID, repository.FieldSupplierID)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, meta, err := h.s.Admin.Users(ctx, c.QueryParam("status"), f)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "users", listData{Items: rows, Meta: meta})
}

// UserByID: GET /v1/admin/users/:id
func (h *AdminHandler) UserByID(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.s.Admin.UserByID(ctx, id)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "user", d)
}

// UnclaimedUser: GET /v1/admin/users/:id/unclaimed
func (h *AdminHandler) UnclaimedUser(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.s.Admin.UnclaimedUser(ctx, id)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "unclaimed user", acc)
}

// ClaimUser: POST /v1/admin/users/:id/claim
func (h *AdminHandler) ClaimUser(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid user id")
	}
	var req claimReq
	if err := c.Bind(&req); err != nil || req.TeamID == 0 || req.AddressID == 0 {
		return badRequest(c, "balance, team_id and address_id are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.s.Teams.ClaimUser(ctx, id, req.Balance, req.TeamID, req.AddressID, caller(c)); err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "user claimed", nil)
}

// ChangeUserTeam: PUT /v1/admin/users/:id/team
func (h *AdminHandler) ChangeUserTeam(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid user id")
	}
	var req changeTeamReq
	if err := c.Bind(&req); err != nil || req.TeamID == 0 {
		return badRequest(c, "team_id is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.s.Teams.ChangeTeam(ctx, req.TeamID, id); err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "team changed", nil)
}

// Recharge: POST /v1/admin/users/:id/recharge
func (h *AdminHandler) Recharge(c echo.Context) error {
	return recharge(c, h.s.Ledger, h.s.Log)
}

// Refund: POST /v1/admin/users/:id/refund
func (h *AdminHandler) Refund(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid user id")
	}
	var req amountReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.s.Ledger.RefundBalance(ctx, id, req.Amount, req.Description, caller(c)); err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "balance refunded", nil)
}

// recharge is shared by admins and suppliers; the caller's role decides
// whether the transaction is settled.
func recharge(c echo.Context, ledger *service.LedgerService, log logrus.FieldLogger) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid user id")
	}
	var req amountReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := ledger.RechargeBalance(ctx, id, req.Amount, caller(c), middleware.Role(c)); err != nil {
		return fail(c, log, err)
	}
	return ok(c, http.StatusOK, "balance recharged", nil)
}

// ----- orders -----

// Orders: GET /v1/admin/orders?date=&status=&pickup_status=&team_id=&supplier_id=&search=
func (h *AdminHandler) Orders(c echo.Context) error {
	day, err := parseDay(c.QueryParam("date"), h.s.Clock)
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	f, err := repository.ParseFilter(c.QueryParams(), 20,
		repository.FieldStatus, repository.FieldPickup, repository.FieldTeamID, repository.FieldSupplierID)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	teams, err := h.s.Orders.OrdersForDay(ctx, day, f)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "orders", echo.Map{"date": clock.FormatDay(day), "teams": teams})
}

// Deliver: PUT /v1/admin/teams/:id/deliver
func (h *AdminHandler) Deliver(c echo.Context) error {
	return deliver(c, h.s.Orders, h.s.Log, nil)
}

// Pickup: PUT /v1/admin/teams/:id/pickup
func (h *AdminHandler) Pickup(c echo.Context) error {
	return pickup(c, h.s.Orders, h.s.Log, nil)
}

func deliver(c echo.Context, orders *service.OrderService, log logrus.FieldLogger, supplierID *uint64) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid team id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := orders.DeliverOrder(ctx, id, supplierID, caller(c))
	if err != nil {
		return fail(c, log, err)
	}
	return ok(c, http.StatusOK, "orders delivered", echo.Map{"count": n})
}

func pickup(c echo.Context, orders *service.OrderService, log logrus.FieldLogger, supplierID *uint64) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid team id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := orders.PickBoxes(ctx, id, supplierID, caller(c))
	if err != nil {
		return fail(c, log, err)
	}
	return ok(c, http.StatusOK, "boxes picked", echo.Map{"count": n})
}

// ----- suppliers -----

// CreateSupplier: POST /v1/admin/suppliers
func (h *AdminHandler) CreateSupplier(c echo.Context) error {
	var req supplierReq
	if err := c.Bind(&req); err != nil || req.AccountID == 0 || strings.TrimSpace(req.Name) == "" {
		return badRequest(c, "account_id and name are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.s.Suppliers.CreateSupplier(ctx, req.AccountID, req.Name, req.ContactNo); err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusCreated, "supplier created", nil)
}

// UpdateSupplier: PUT /v1/admin/suppliers/:id
func (h *AdminHandler) UpdateSupplier(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid supplier id")
	}
	var req supplierReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return badRequest(c, "name is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.s.Suppliers.UpdateSupplier(ctx, id, req.Name, req.ContactNo); err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "supplier updated", nil)
}

// Suppliers: GET /v1/admin/suppliers?search=
func (h *AdminHandler) Suppliers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, err := h.s.Suppliers.Suppliers(ctx, c.QueryParam("search"))
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "suppliers", rows)
}

// Supplier: GET /v1/admin/suppliers/:id
func (h *AdminHandler) Supplier(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid supplier id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.s.Suppliers.Supplier(ctx, id)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "supplier", d)
}

// CollectPayment: PUT /v1/admin/suppliers/:id/collect
func (h *AdminHandler) CollectPayment(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return badRequest(c, "invalid supplier id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sum, err := h.s.Suppliers.CollectPayment(ctx, id, caller(c))
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "payment collected", echo.Map{"amount": sum})
}

// ----- expenses and statics -----

// AddExpenses: POST /v1/admin/expenses
func (h *AdminHandler) AddExpenses(c echo.Context) error {
	var req expensesReq
	if err := c.Bind(&req); err != nil || len(req.Expenses) == 0 {
		return badRequest(c, "expenses are required")
	}
	items := make([]service.ExpenseInput, 0, len(req.Expenses))
	for _, e := range req.Expenses {
		in := service.ExpenseInput{ProductName: e.ProductName, Quantity: e.Quantity, Amount: e.Amount}
		if e.Date != "" {
			d, err := clock.ParseDay(e.Date)
			if err != nil {
				return badRequest(c, "expense date must be YYYY-MM-DD")
			}
			in.Date = d
		}
		items = append(items, in)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := h.s.Ledger.ListExpenses(ctx, items)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusCreated, "expenses recorded", echo.Map{"count": n})
}

// Expenses: GET /v1/admin/expenses?month=YYYY-MM&search=&page=
func (h *AdminHandler) Expenses(c echo.Context) error {
	month, err := parseMonth(c.QueryParam("month"))
	if err != nil {
		return badRequest(c, "month must be YYYY-MM")
	}
	f, err := repository.ParseFilter(c.QueryParams(), 20)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, meta, err := h.s.Ledger.GetExpenses(ctx, month, f)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "expenses", listData{Items: rows, Meta: meta})
}

// Statics: GET /v1/admin/statics
func (h *AdminHandler) Statics(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.s.Statics.TotalStatics(ctx)
	if err != nil {
		return fail(c, h.s.Log, err)
	}
	return ok(c, http.StatusOK, "statics", t)
}
