package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tiffinbox/tiffin-service/internal/model"
)

// ExpenseRepo stores operational cost entries.
type ExpenseRepo struct{ db *sql.DB }

func NewExpenseRepo(db *sql.DB) *ExpenseRepo { return &ExpenseRepo{db: db} }

// CreateTx inserts an expense dated at e.Date.
func (r *ExpenseRepo) CreateTx(ctx context.Context, tx DBTX, e model.Expense) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO expenses (product_name, quantity, amount, date) VALUES (?,?,?,?)",
		e.ProductName, e.Quantity, e.Amount, e.Date.UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// List returns a page of expenses, latest first.  A zero from or to leaves
// that side of the date range open.
func (r *ExpenseRepo) List(ctx context.Context, from, to time.Time, f Filter) ([]model.Expense, PageMeta, error) {
	conds, args := f.clause(nil, "product_name")
	if !from.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "date < ?")
		args = append(args, to.UTC())
	}
	where := " WHERE " + joinWhere(conds)
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses"+where, args...).Scan(&total); err != nil {
		return nil, PageMeta{}, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, product_name, quantity, amount, date, created_at FROM expenses"+where+
			" ORDER BY date DESC, id DESC LIMIT ? OFFSET ?",
		append(args, f.Page.Size, f.Page.Offset())...)
	if err != nil {
		return nil, PageMeta{}, err
	}
	defer rows.Close()
	out := []model.Expense{}
	for rows.Next() {
		var e model.Expense
		if err := rows.Scan(&e.ID, &e.ProductName, &e.Quantity, &e.Amount, &e.Date, &e.CreatedAt); err != nil {
			return nil, PageMeta{}, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, PageMeta{}, err
	}
	return out, f.Page.Meta(total), nil
}
