package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tiffinbox/tiffin-service/internal/model"
)

// AddressRepo persists delivery addresses.
type AddressRepo struct{ db *sql.DB }

func NewAddressRepo(db *sql.DB) *AddressRepo { return &AddressRepo{db: db} }

// Create inserts an address.  The column collation is case-insensitive, so
// a duplicate in any casing yields ErrConflict.
func (r *AddressRepo) Create(ctx context.Context, address string, supplierID *uint64) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO addresses (address, supplier_id) VALUES (?,?)", strings.TrimSpace(address), supplierID)
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

// Update changes the text and the serving supplier of an address.
func (r *AddressRepo) Update(ctx context.Context, id uint64, address string, supplierID *uint64) error {
	_, err := r.GetByID(ctx, r.db, id)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE addresses SET address=?, supplier_id=? WHERE id=?", strings.TrimSpace(address), supplierID, id)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// GetByID returns one address.
func (r *AddressRepo) GetByID(ctx context.Context, q DBTX, id uint64) (model.Address, error) {
	var (
		a   model.Address
		sup sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, address, supplier_id, created_at FROM addresses WHERE id=? LIMIT 1", id).
		Scan(&a.ID, &a.Address, &sup, &a.CreatedAt)
	if err != nil {
		return model.Address{}, notFound(err)
	}
	if sup.Valid {
		v := uint64(sup.Int64)
		a.SupplierID = &v
	}
	return a, nil
}

// List returns addresses, optionally only those served by supplierID, with
// Search matched against the address text.
func (r *AddressRepo) List(ctx context.Context, supplierID *uint64, search string) ([]model.Address, error) {
	f := Filter{Search: search}
	conds, args := f.clause(nil, "address")
	if supplierID != nil {
		conds = append(conds, "supplier_id = ?")
		args = append(args, *supplierID)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, address, supplier_id, created_at FROM addresses WHERE "+joinWhere(conds)+" ORDER BY address", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Address
	for rows.Next() {
		var (
			a   model.Address
			sup sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.Address, &sup, &a.CreatedAt); err != nil {
			return nil, err
		}
		if sup.Valid {
			v := uint64(sup.Int64)
			a.SupplierID = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
