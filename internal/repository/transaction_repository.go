package repository

import (
	"context"
	"database/sql"

	"github.com/tiffinbox/tiffin-service/internal/model"
)

// TransactionRepo appends and reads ledger rows.  Rows are never updated
// except for the pending to paid payout flip.
type TransactionRepo struct{ db *sql.DB }

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

// CreateTx appends a ledger row.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx DBTX, t model.Transaction) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, receiver_id, amount, transaction_type, description, status)
		 VALUES (?,?,?,?,?,?)`,
		t.UserID, t.ReceiverID, t.Amount, t.Type, t.Description, t.Status)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *TransactionRepo) page(ctx context.Context, column string, id uint64, status string, p Page) ([]model.Transaction, PageMeta, error) {
	where := column + "=?"
	args := []any{id}
	if status != "" {
		where += " AND status=?"
		args = append(args, status)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE "+where, args...).Scan(&total); err != nil {
		return nil, PageMeta{}, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, receiver_id, amount, transaction_type, description, status, date
		 FROM transactions WHERE `+where+` ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, p.Size, p.Offset())...)
	if err != nil {
		return nil, PageMeta{}, err
	}
	defer rows.Close()
	out := []model.Transaction{}
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.ReceiverID, &t.Amount, &t.Type, &t.Description, &t.Status, &t.Date); err != nil {
			return nil, PageMeta{}, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, PageMeta{}, err
	}
	return out, p.Meta(total), nil
}

// ListByUser returns a page of the user's ledger, latest first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID uint64, p Page) ([]model.Transaction, PageMeta, error) {
	return r.page(ctx, "user_id", userID, "", p)
}

// ListByReceiver returns a page of rows authorized by a staff account,
// optionally narrowed to one payout status.
func (r *TransactionRepo) ListByReceiver(ctx context.Context, receiverID uint64, status string, p Page) ([]model.Transaction, PageMeta, error) {
	return r.page(ctx, "receiver_id", receiverID, status, p)
}

// MarkReceiverPaidTx flips every pending row received by receiverID to
// paid and returns the collected amount.
func (r *TransactionRepo) MarkReceiverPaidTx(ctx context.Context, tx DBTX, receiverID uint64) (int64, error) {
	sum, err := r.SumPending(ctx, tx, receiverID)
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE transactions SET status=? WHERE receiver_id=? AND status=?",
		model.TransactionPaid, receiverID, model.TransactionPending)
	return sum, err
}

// SumPending totals the pending rows received by receiverID.
func (r *TransactionRepo) SumPending(ctx context.Context, q DBTX, receiverID uint64) (int64, error) {
	var sum int64
	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE receiver_id=? AND status=?",
		receiverID, model.TransactionPending).Scan(&sum)
	return sum, err
}
