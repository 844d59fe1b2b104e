package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tiffinbox/tiffin-service/internal/model"
)

const orderColumns = "id, user_id, team_id, supplier_id, delivery_date, status, pickup_status, price, created_at, updated_at"

// OrderRepo persists orders.  (user_id, delivery_date) is unique in the
// schema and a violation is reported as ErrConflict, which is the
// authoritative duplicate-order signal.
type OrderRepo struct{ db *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

func scanOrder(sc interface{ Scan(...any) error }) (model.Order, error) {
	var (
		o   model.Order
		sup sql.NullInt64
	)
	err := sc.Scan(&o.ID, &o.UserID, &o.TeamID, &sup, &o.DeliveryDate, &o.Status, &o.PickupStatus, &o.Price, &o.CreatedAt, &o.UpdatedAt)
	if sup.Valid {
		v := uint64(sup.Int64)
		o.SupplierID = &v
	}
	return o, err
}

// CreateTx inserts a pending order and returns its id.
func (r *OrderRepo) CreateTx(ctx context.Context, tx DBTX, o model.Order) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, team_id, supplier_id, delivery_date, status, pickup_status, price)
		 VALUES (?,?,?,?,?,?,?)`,
		o.UserID, o.TeamID, o.SupplierID, o.DeliveryDate.UTC(), model.OrderPending, model.PickupDisabled, o.Price)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ExistsForDay reports whether the user already has an order for day.
func (r *OrderRepo) ExistsForDay(ctx context.Context, q DBTX, userID uint64, day time.Time) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE user_id=? AND delivery_date=?", userID, day.UTC()).Scan(&n)
	return n > 0, err
}

// GetOwnedWithStatusTx locks and returns an order of userID that is
// currently in status.
func (r *OrderRepo) GetOwnedWithStatusTx(ctx context.Context, tx DBTX, id, userID uint64, status string) (model.Order, error) {
	o, err := scanOrder(tx.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id=? AND user_id=? AND status=? LIMIT 1 FOR UPDATE",
		id, userID, status))
	return o, notFound(err)
}

// SetStatusTx moves an order from one status to another and records the
// price.  It fails with ErrNotFound if the order left the from status in
// the meantime.
func (r *OrderRepo) SetStatusTx(ctx context.Context, tx DBTX, id uint64, from, to string, price int64) error {
	return requireOne(tx.ExecContext(ctx,
		"UPDATE orders SET status=?, price=? WHERE id=? AND status=?", to, price, id, from))
}

func scopeArgs(base string, args []any, supplierID *uint64) (string, []any) {
	if supplierID != nil {
		base += " AND supplier_id=?"
		args = append(args, *supplierID)
	}
	return base, args
}

// CountDeliverableTx counts pending orders of a team for day.
func (r *OrderRepo) CountDeliverableTx(ctx context.Context, tx DBTX, teamID uint64, supplierID *uint64, day time.Time) (int64, error) {
	q, args := scopeArgs("SELECT COUNT(*) FROM orders WHERE team_id=? AND status=? AND delivery_date=?",
		[]any{teamID, model.OrderPending, day.UTC()}, supplierID)
	var n int64
	err := tx.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// DeliverTx marks the team's pending orders for day as received and ready
// for pickup, returning how many changed.
func (r *OrderRepo) DeliverTx(ctx context.Context, tx DBTX, teamID uint64, supplierID *uint64, day time.Time) (int64, error) {
	q, args := scopeArgs("UPDATE orders SET status=?, pickup_status=? WHERE team_id=? AND status=? AND delivery_date=?",
		[]any{model.OrderReceived, model.PickupEnable, teamID, model.OrderPending, day.UTC()}, supplierID)
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountPickableTx counts orders of a team waiting for box pickup.
func (r *OrderRepo) CountPickableTx(ctx context.Context, tx DBTX, teamID uint64, supplierID *uint64) (int64, error) {
	q, args := scopeArgs("SELECT COUNT(*) FROM orders WHERE team_id=? AND pickup_status=?",
		[]any{teamID, model.PickupEnable}, supplierID)
	var n int64
	err := tx.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// PickTx marks the team's boxes as picked up.
func (r *OrderRepo) PickTx(ctx context.Context, tx DBTX, teamID uint64, supplierID *uint64) (int64, error) {
	q, args := scopeArgs("UPDATE orders SET pickup_status=? WHERE team_id=? AND pickup_status=?",
		[]any{model.PickupReceived, teamID, model.PickupEnable}, supplierID)
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListUpcoming returns the user's orders from today on, soonest first.
func (r *OrderRepo) ListUpcoming(ctx context.Context, userID uint64, today time.Time) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id=? AND delivery_date >= ? ORDER BY delivery_date ASC",
		userID, today.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]model.Order, error) {
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// HistoryCounts summarizes a user's past orders.
type HistoryCounts struct {
	TotalCount     int64 `json:"totalCount"`
	DeliveredOrder int64 `json:"deliveredOrder"`
	NotReceived    int64 `json:"notReceived"`
	CanceledOrder  int64 `json:"canceledOrder"`
}

// ListHistory returns a page of the user's orders before today, latest
// first, with status counts over the whole history.
func (r *OrderRepo) ListHistory(ctx context.Context, userID uint64, today time.Time, p Page) ([]model.Order, PageMeta, HistoryCounts, error) {
	var c HistoryCounts
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*),
			COALESCE(SUM(status = 'received'), 0),
			COALESCE(SUM(status = 'pending'), 0),
			COALESCE(SUM(status = 'canceled'), 0)
		FROM orders WHERE user_id=? AND delivery_date < ?`, userID, today.UTC()).
		Scan(&c.TotalCount, &c.DeliveredOrder, &c.NotReceived, &c.CanceledOrder)
	if err != nil {
		return nil, PageMeta{}, c, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id=? AND delivery_date < ? ORDER BY delivery_date DESC LIMIT ? OFFSET ?",
		userID, today.UTC(), p.Size, p.Offset())
	if err != nil {
		return nil, PageMeta{}, c, err
	}
	defer rows.Close()
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, PageMeta{}, c, err
	}
	return orders, p.Meta(c.TotalCount), c, nil
}

// DayOrderRow is one order of a day joined with its user and team, used to
// build the per-team admin view.
type DayOrderRow struct {
	OrderID      uint64    `json:"order_id"`
	Status       string    `json:"status"`
	PickupStatus string    `json:"pickup_status"`
	DeliveryDate time.Time `json:"delivery_date"`
	UserID       uint64    `json:"user_id"`
	UserName     string    `json:"user_name"`
	UserPhone    string    `json:"user_phone"`
	TeamID       uint64    `json:"team_id"`
	TeamName     string    `json:"team_name"`
	DueBoxes     int       `json:"due_boxes"`
	Address      string    `json:"address"`
	LeaderName   string    `json:"leader_name"`
	LeaderPhone  string    `json:"leader_phone"`
}

// ListForDay returns the orders of one day ordered by team.  Search matches
// user phone, address and team name; FieldStatus, FieldTeamID and
// FieldSupplierID are exact filters.
func (r *OrderRepo) ListForDay(ctx context.Context, day time.Time, f Filter) ([]DayOrderRow, error) {
	conds, args := f.clause(map[FilterField]string{
		FieldStatus:     "o.status",
		FieldPickup:     "o.pickup_status",
		FieldTeamID:     "o.team_id",
		FieldSupplierID: "o.supplier_id",
	}, "u.phone", "ad.address", "t.name")
	conds = append(conds, "o.delivery_date = ?")
	args = append(args, day.UTC())
	rows, err := r.db.QueryContext(ctx, `SELECT o.id, o.status, o.pickup_status, o.delivery_date,
			u.id, u.name, u.phone, t.id, t.name, t.due_boxes, ad.address, l.name, l.phone
		FROM orders o
		JOIN accounts u ON u.id = o.user_id
		JOIN teams t ON t.id = o.team_id
		JOIN addresses ad ON ad.id = t.address_id
		JOIN accounts l ON l.id = t.leader_id
		WHERE `+joinWhere(conds)+` ORDER BY t.id, o.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DayOrderRow
	for rows.Next() {
		var d DayOrderRow
		if err := rows.Scan(&d.OrderID, &d.Status, &d.PickupStatus, &d.DeliveryDate, &d.UserID, &d.UserName, &d.UserPhone,
			&d.TeamID, &d.TeamName, &d.DueBoxes, &d.Address, &d.LeaderName, &d.LeaderPhone); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountActiveForTeamDay counts the non-canceled orders of a team for day.
func (r *OrderRepo) CountActiveForTeamDay(ctx context.Context, teamID uint64, day time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE team_id=? AND delivery_date=? AND status <> ?",
		teamID, day.UTC(), model.OrderCanceled).Scan(&n)
	return n, err
}

// DeliverySpot is a team at one of a supplier's addresses with the number
// of non-canceled orders for the day.
type DeliverySpot struct {
	AddressID uint64 `json:"address_id"`
	Address   string `json:"address"`
	TeamID    uint64 `json:"team_id"`
	TeamName  string `json:"team_name"`
	Orders    int64  `json:"orders"`
	Pending   int64  `json:"pending"`
}

// DeliverySpots lists every team at the supplier's addresses with its
// order counts for day.
func (r *OrderRepo) DeliverySpots(ctx context.Context, supplierID uint64, day time.Time) ([]DeliverySpot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT ad.id, ad.address, t.id, t.name,
			COUNT(o.id), COALESCE(SUM(o.status = 'pending'), 0)
		FROM addresses ad
		JOIN teams t ON t.address_id = ad.id AND t.is_deleted = 0
		LEFT JOIN orders o ON o.team_id = t.id AND o.delivery_date = ? AND o.status <> 'canceled'
		WHERE ad.supplier_id = ?
		GROUP BY ad.id, ad.address, t.id, t.name
		ORDER BY ad.address, t.name`, day.UTC(), supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DeliverySpot
	for rows.Next() {
		var s DeliverySpot
		if err := rows.Scan(&s.AddressID, &s.Address, &s.TeamID, &s.TeamName, &s.Orders, &s.Pending); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
