package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tiffinbox/tiffin-service/internal/model"
)

const accountColumns = "id, phone, name, password_hash, role, is_deleted, created_at, updated_at"

// AccountRepo persists accounts.  Phones are stored trimmed.
type AccountRepo struct{ db *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

// DB exposes the pool so services can open transactions.
func (r *AccountRepo) DB() *sql.DB { return r.db }

// Create inserts an account with an already hashed password and returns its
// ID.
func (r *AccountRepo) Create(ctx context.Context, phone, name, passwordHash, role string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (phone, name, password_hash, role) VALUES (?,?,?,?)",
		strings.TrimSpace(phone), strings.TrimSpace(name), passwordHash, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrPhoneExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func scanAccount(row *sql.Row) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Phone, &a.Name, &a.PasswordHash, &a.Role, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt)
	return a, notFound(err)
}

// GetByPhone fetches a live account by phone.
func (r *AccountRepo) GetByPhone(ctx context.Context, phone string) (model.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE phone=? AND is_deleted=0 LIMIT 1",
		strings.TrimSpace(phone)))
}

// GetByID fetches a live account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

// GetByIDTx is GetByID on an arbitrary query surface.
func (r *AccountRepo) GetByIDTx(ctx context.Context, tx DBTX, id uint64) (model.Account, error) {
	return scanAccount(tx.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? AND is_deleted=0 LIMIT 1", id))
}

// UpdatePassword replaces the password hash.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	return requireOne(r.db.ExecContext(ctx,
		"UPDATE accounts SET password_hash=? WHERE id=? AND is_deleted=0", passwordHash, id))
}

// UpdateRoleTx changes the role of an account.
func (r *AccountRepo) UpdateRoleTx(ctx context.Context, tx DBTX, id uint64, role string) error {
	_, err := tx.ExecContext(ctx, "UPDATE accounts SET role=? WHERE id=? AND is_deleted=0", role, id)
	return err
}

// UserRow is one line of the admin user list.
type UserRow struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Balance   int64  `json:"balance"`
	Status    bool   `json:"status"`
	Address   string `json:"address"`
	TeamName  string `json:"teamName"`
	VirtualID string `json:"virtual_id,omitempty"`
}

// User list statuses.
const (
	UsersAll       = "all"
	UsersClaimed   = "claimed"
	UsersUnclaimed = "unclaimed"
)

// ListUsers returns accounts with role user, joined with their membership.
// status narrows to claimed or unclaimed accounts; Search matches name or
// phone.
func (r *AccountRepo) ListUsers(ctx context.Context, status string, f Filter) ([]UserRow, PageMeta, error) {
	conds, args := f.clause(map[FilterField]string{
		FieldTeamID:     "ui.team_id",
		FieldAddressID:  "ui.address_id",
		FieldSupplierID: "ad.supplier_id",
	}, "a.name", "a.phone")
	conds = append(conds, "a.role = 'user'", "a.is_deleted = 0")
	switch status {
	case UsersClaimed:
		conds = append(conds, "ui.is_claimed = 1")
	case UsersUnclaimed:
		conds = append(conds, "(ui.id IS NULL OR ui.is_claimed = 0)")
	}
	from := ` FROM accounts a
		LEFT JOIN user_infos ui ON ui.account_id = a.id
		LEFT JOIN addresses ad ON ad.id = ui.address_id
		LEFT JOIN teams t ON t.id = ui.team_id
		WHERE ` + joinWhere(conds)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+from, args...).Scan(&total); err != nil {
		return nil, PageMeta{}, err
	}
	q := `SELECT a.id, a.name, a.phone, COALESCE(ui.balance, 0), COALESCE(ui.is_claimed, 0),
			COALESCE(ad.address, 'Not selected'), COALESCE(t.name, 'Not selected'), COALESCE(ui.virtual_id, '')` +
		from + ` ORDER BY a.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Page.Size, f.Page.Offset())...)
	if err != nil {
		return nil, PageMeta{}, err
	}
	defer rows.Close()
	out := make([]UserRow, 0, f.Page.Size)
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Name, &u.Phone, &u.Balance, &u.Status, &u.Address, &u.TeamName, &u.VirtualID); err != nil {
			return nil, PageMeta{}, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, PageMeta{}, err
	}
	return out, f.Page.Meta(total), nil
}
