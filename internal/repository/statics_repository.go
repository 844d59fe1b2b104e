package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tiffinbox/tiffin-service/internal/model"
)

// StaticsRepo runs the read-only aggregates behind the dashboards.
type StaticsRepo struct{ db *sql.DB }

func NewStaticsRepo(db *sql.DB) *StaticsRepo { return &StaticsRepo{db: db} }

// DayOrders counts the orders of one day by status.
type DayOrders struct {
	TotalOrder     int64 `json:"totalOrder"`
	DeliveredOrder int64 `json:"deliveredOrder"`
	RemainingOrder int64 `json:"remainingOrder"`
	CanceledOrder  int64 `json:"canceledOrder"`
}

// Totals holds the platform wide counters.
type Totals struct {
	DayOrders
	TotalCompletedOrderSoFar int64 `json:"totalCompletedOrderSoFar"`
	CompletedOrderOfTheMonth int64 `json:"-"`
	CostOfTheDay             int64 `json:"costOfTheDay"`
	DepositOfTheDay          int64 `json:"depositOfTheDay"`
	TotalUsers               int64 `json:"totalUsers"`
	TotalTeam                int64 `json:"totalTeam"`
	TotalDueBoxes            int64 `json:"totalDueBoxes"`
	TotalRemainingBalance    int64 `json:"totalRemainingBalance"`
	TotalTransaction         int64 `json:"totalTransaction"`
	ServiceAndBoxFee         int64 `json:"serviceAndBoxFee"`
	TotalExpensesOfTheMonth  int64 `json:"totalExpensesOfTheMonth"`
	TotalExpenses            int64 `json:"totalExpenses"`
}

// Totals aggregates orders, ledger, memberships and expenses.  day is the
// normalized current day; [monthStart, monthEnd) bounds the month.
func (r *StaticsRepo) Totals(ctx context.Context, day, monthStart, monthEnd time.Time) (Totals, error) {
	var t Totals
	next := day.AddDate(0, 0, 1)
	steps := []struct {
		query string
		args  []any
		dest  []any
	}{
		{`SELECT COUNT(*), COALESCE(SUM(status='received'),0), COALESCE(SUM(status='pending'),0), COALESCE(SUM(status='canceled'),0)
			FROM orders WHERE delivery_date = ?`, []any{day.UTC()},
			[]any{&t.TotalOrder, &t.DeliveredOrder, &t.RemainingOrder, &t.CanceledOrder}},
		{"SELECT COUNT(*) FROM orders WHERE status='received'", nil, []any{&t.TotalCompletedOrderSoFar}},
		{"SELECT COUNT(*) FROM orders WHERE status='received' AND delivery_date >= ? AND delivery_date < ?",
			[]any{monthStart.UTC(), monthEnd.UTC()}, []any{&t.CompletedOrderOfTheMonth}},
		{"SELECT COALESCE(SUM(amount),0) FROM expenses WHERE created_at >= ? AND created_at < ?",
			[]any{day.UTC(), next.UTC()}, []any{&t.CostOfTheDay}},
		{"SELECT COALESCE(SUM(amount),0) FROM transactions WHERE date >= ? AND date < ?",
			[]any{day.UTC(), next.UTC()}, []any{&t.DepositOfTheDay}},
		{"SELECT COUNT(*), COALESCE(SUM(balance),0) FROM user_infos WHERE is_claimed=1", nil,
			[]any{&t.TotalUsers, &t.TotalRemainingBalance}},
		{"SELECT COUNT(*), COALESCE(SUM(due_boxes),0) FROM teams WHERE is_deleted=0", nil,
			[]any{&t.TotalTeam, &t.TotalDueBoxes}},
		{"SELECT COALESCE(SUM(amount),0) FROM transactions WHERE transaction_type=?",
			[]any{model.TransactionDeposit}, []any{&t.TotalTransaction}},
		{"SELECT COALESCE(SUM(amount),0) FROM transactions WHERE description IN (?,?)",
			[]any{model.DescServiceFee, model.DescTiffinBoxCost}, []any{&t.ServiceAndBoxFee}},
		{"SELECT COALESCE(SUM(amount),0) FROM expenses WHERE date >= ? AND date < ?",
			[]any{monthStart.UTC(), monthEnd.UTC()}, []any{&t.TotalExpensesOfTheMonth}},
		{"SELECT COALESCE(SUM(amount),0) FROM expenses", nil, []any{&t.TotalExpenses}},
	}
	for _, s := range steps {
		if err := r.db.QueryRowContext(ctx, s.query, s.args...).Scan(s.dest...); err != nil {
			return Totals{}, err
		}
	}
	return t, nil
}

// SupplierTotals holds the counters of one supplier.
type SupplierTotals struct {
	Name           string `json:"name"`
	ContactNo      string `json:"contact_no"`
	TotalAddress   int64  `json:"totalAddress"`
	TotalTeam      int64  `json:"totalTeam"`
	TotalUser      int64  `json:"totalUser"`
	DueBalance     int64  `json:"dueBalance"`
	TotalOrder     int64  `json:"totalOrder"`
	PendingOrder   int64  `json:"pendingOrder"`
	Received       int64  `json:"received"`
	ReadyToPickUp  int64  `json:"readyToPickUp"`
	TransactionSum int64  `json:"transactionSum"`
}

// SupplierTotals aggregates the addresses, teams, members and today's
// orders served by supplierID.  An unknown supplier yields ErrNotFound.
func (r *StaticsRepo) SupplierTotals(ctx context.Context, supplierID uint64, day time.Time) (SupplierTotals, error) {
	var t SupplierTotals
	err := r.db.QueryRowContext(ctx,
		"SELECT name, contact_no FROM supplier_infos WHERE account_id=? LIMIT 1", supplierID).
		Scan(&t.Name, &t.ContactNo)
	if err != nil {
		return t, notFound(err)
	}
	steps := []struct {
		query string
		args  []any
		dest  []any
	}{
		{"SELECT COUNT(*) FROM addresses WHERE supplier_id=?", []any{supplierID}, []any{&t.TotalAddress}},
		{`SELECT COUNT(*) FROM teams t JOIN addresses ad ON ad.id = t.address_id
			WHERE ad.supplier_id=? AND t.is_deleted=0`, []any{supplierID}, []any{&t.TotalTeam}},
		{`SELECT COUNT(*), COALESCE(SUM(ui.balance),0) FROM user_infos ui JOIN addresses ad ON ad.id = ui.address_id
			WHERE ad.supplier_id=?`, []any{supplierID}, []any{&t.TotalUser, &t.DueBalance}},
		{`SELECT COUNT(*), COALESCE(SUM(status='pending'),0), COALESCE(SUM(status='received'),0),
				COALESCE(SUM(pickup_status='enable'),0)
			FROM orders WHERE supplier_id=? AND delivery_date=?`, []any{supplierID, day.UTC()},
			[]any{&t.TotalOrder, &t.PendingOrder, &t.Received, &t.ReadyToPickUp}},
		{"SELECT COALESCE(SUM(amount),0) FROM transactions WHERE receiver_id=? AND status=?",
			[]any{supplierID, model.TransactionPending}, []any{&t.TransactionSum}},
	}
	for _, s := range steps {
		if err := r.db.QueryRowContext(ctx, s.query, s.args...).Scan(s.dest...); err != nil {
			return SupplierTotals{}, err
		}
	}
	return t, nil
}
