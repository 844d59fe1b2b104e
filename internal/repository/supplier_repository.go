package repository

import (
	"context"
	"database/sql"

	"github.com/tiffinbox/tiffin-service/internal/model"
)

// SupplierRepo persists supplier_infos rows.  A supplier is addressed by
// its account id everywhere outside this table.
type SupplierRepo struct{ db *sql.DB }

func NewSupplierRepo(db *sql.DB) *SupplierRepo { return &SupplierRepo{db: db} }

// DB exposes the pool so services can open transactions.
func (r *SupplierRepo) DB() *sql.DB { return r.db }

// CreateTx inserts supplier details for an account.
func (r *SupplierRepo) CreateTx(ctx context.Context, tx DBTX, accountID uint64, name, contactNo string) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO supplier_infos (account_id, name, contact_no) VALUES (?,?,?)", accountID, name, contactNo)
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

// GetByAccountID returns the supplier details of an account.
func (r *SupplierRepo) GetByAccountID(ctx context.Context, q DBTX, accountID uint64) (model.SupplierInfo, error) {
	var s model.SupplierInfo
	err := q.QueryRowContext(ctx,
		"SELECT id, account_id, name, contact_no, created_at FROM supplier_infos WHERE account_id=? LIMIT 1", accountID).
		Scan(&s.ID, &s.AccountID, &s.Name, &s.ContactNo, &s.CreatedAt)
	return s, notFound(err)
}

// Update changes name and contact number.
func (r *SupplierRepo) Update(ctx context.Context, accountID uint64, name, contactNo string) error {
	if _, err := r.GetByAccountID(ctx, r.db, accountID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE supplier_infos SET name=?, contact_no=? WHERE account_id=?", name, contactNo, accountID)
	return err
}

// SupplierRow is a supplier with its login phone and pending cash.
type SupplierRow struct {
	AccountID   uint64 `json:"id"`
	Name        string `json:"name"`
	ContactNo   string `json:"contact_no"`
	Phone       string `json:"phone"`
	Addresses   int64  `json:"addresses"`
	PendingCash int64  `json:"pending_cash"`
}

// List returns every supplier, Search matched against name and phone.
func (r *SupplierRepo) List(ctx context.Context, search string) ([]SupplierRow, error) {
	f := Filter{Search: search}
	conds, args := f.clause(nil, "s.name", "a.phone")
	rows, err := r.db.QueryContext(ctx, `SELECT s.account_id, s.name, s.contact_no, a.phone,
			(SELECT COUNT(*) FROM addresses ad WHERE ad.supplier_id = s.account_id),
			(SELECT COALESCE(SUM(tr.amount), 0) FROM transactions tr WHERE tr.receiver_id = s.account_id AND tr.status = 'pending')
		FROM supplier_infos s
		JOIN accounts a ON a.id = s.account_id
		WHERE `+joinWhere(conds)+` ORDER BY s.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SupplierRow{}
	for rows.Next() {
		var s SupplierRow
		if err := rows.Scan(&s.AccountID, &s.Name, &s.ContactNo, &s.Phone, &s.Addresses, &s.PendingCash); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
