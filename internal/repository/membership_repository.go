package repository

import (
	"context"
	"database/sql"

	"github.com/tiffinbox/tiffin-service/internal/model"
)

const membershipColumns = "id, account_id, address_id, team_id, balance, virtual_id, is_claimed, is_in_team, created_at, updated_at"

// MembershipRepo persists user_infos rows.  Balance is only ever changed
// with relative updates so concurrent transactions never overwrite each
// other.
type MembershipRepo struct{ db *sql.DB }

func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

func scanMembership(row *sql.Row) (model.Membership, error) {
	var m model.Membership
	err := row.Scan(&m.ID, &m.AccountID, &m.AddressID, &m.TeamID, &m.Balance, &m.VirtualID,
		&m.IsClaimed, &m.IsInTeam, &m.CreatedAt, &m.UpdatedAt)
	return m, notFound(err)
}

// GetByAccountID returns the membership of an account.
func (r *MembershipRepo) GetByAccountID(ctx context.Context, q DBTX, accountID uint64) (model.Membership, error) {
	return scanMembership(q.QueryRowContext(ctx,
		"SELECT "+membershipColumns+" FROM user_infos WHERE account_id=? LIMIT 1", accountID))
}

// GetByAccountIDForUpdate locks the membership row for the rest of tx.
func (r *MembershipRepo) GetByAccountIDForUpdate(ctx context.Context, tx DBTX, accountID uint64) (model.Membership, error) {
	return scanMembership(tx.QueryRowContext(ctx,
		"SELECT "+membershipColumns+" FROM user_infos WHERE account_id=? LIMIT 1 FOR UPDATE", accountID))
}

// CreateTx inserts a membership and returns its id.
func (r *MembershipRepo) CreateTx(ctx context.Context, tx DBTX, m model.Membership) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO user_infos (account_id, address_id, team_id, balance, virtual_id, is_claimed, is_in_team)
		 VALUES (?,?,?,?,?,?,?)`,
		m.AccountID, m.AddressID, m.TeamID, m.Balance, m.VirtualID, m.IsClaimed, m.IsInTeam)
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

// AdjustBalanceTx adds delta (which may be negative) to the balance.
func (r *MembershipRepo) AdjustBalanceTx(ctx context.Context, tx DBTX, accountID uint64, delta int64) error {
	return requireOne(tx.ExecContext(ctx,
		"UPDATE user_infos SET balance = balance + ? WHERE account_id=?", delta, accountID))
}

// DebitIfCoveredTx subtracts amount only when the balance covers it.  It
// returns ErrConflict when the balance is too low and ErrNotFound when no
// membership exists.
func (r *MembershipRepo) DebitIfCoveredTx(ctx context.Context, tx DBTX, accountID uint64, amount int64) error {
	err := requireOne(tx.ExecContext(ctx,
		"UPDATE user_infos SET balance = balance - ? WHERE account_id=? AND balance >= ?",
		amount, accountID, amount))
	if err != ErrNotFound {
		return err
	}
	if _, err := r.GetByAccountID(ctx, tx, accountID); err != nil {
		return err
	}
	return ErrConflict
}

// SetTeamTx moves the membership to a team and address and marks it as in
// team.
func (r *MembershipRepo) SetTeamTx(ctx context.Context, tx DBTX, accountID, teamID, addressID uint64) error {
	return requireOne(tx.ExecContext(ctx,
		"UPDATE user_infos SET team_id=?, address_id=?, is_in_team=1 WHERE account_id=?",
		teamID, addressID, accountID))
}

// ClaimTx turns a placeholder into a claimed membership with the given
// starting balance.  Only unclaimed rows are touched.
func (r *MembershipRepo) ClaimTx(ctx context.Context, tx DBTX, accountID, teamID, addressID uint64, balance int64) error {
	return requireOne(tx.ExecContext(ctx,
		`UPDATE user_infos SET team_id=?, address_id=?, balance = balance + ?, is_claimed=1, is_in_team=1
		 WHERE account_id=? AND is_claimed=0`,
		teamID, addressID, balance, accountID))
}

// MemberDetail is a membership joined with its account, address and team.
type MemberDetail struct {
	AccountID   uint64 `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Balance     int64  `json:"balance"`
	VirtualID   string `json:"virtual_id"`
	IsClaimed   bool   `json:"is_claimed"`
	IsInTeam    bool   `json:"is_in_team"`
	AddressID   uint64 `json:"address_id"`
	Address     string `json:"address"`
	TeamID      uint64 `json:"team_id"`
	TeamName    string `json:"team_name"`
	LeaderID    uint64 `json:"leader_id"`
	LeaderName  string `json:"leader_name"`
	LeaderPhone string `json:"leader_phone"`
}

const memberDetailSelect = `SELECT a.id, a.name, a.phone, ui.balance, ui.virtual_id, ui.is_claimed, ui.is_in_team,
		ad.id, ad.address, t.id, t.name, l.id, l.name, l.phone
	FROM user_infos ui
	JOIN accounts a ON a.id = ui.account_id
	JOIN addresses ad ON ad.id = ui.address_id
	JOIN teams t ON t.id = ui.team_id
	JOIN accounts l ON l.id = t.leader_id`

func scanMemberDetail(sc interface{ Scan(...any) error }) (MemberDetail, error) {
	var d MemberDetail
	err := sc.Scan(&d.AccountID, &d.Name, &d.Phone, &d.Balance, &d.VirtualID, &d.IsClaimed, &d.IsInTeam,
		&d.AddressID, &d.Address, &d.TeamID, &d.TeamName, &d.LeaderID, &d.LeaderName, &d.LeaderPhone)
	return d, err
}

// GetDetail returns the joined view of one account's membership.
func (r *MembershipRepo) GetDetail(ctx context.Context, accountID uint64) (MemberDetail, error) {
	d, err := scanMemberDetail(r.db.QueryRowContext(ctx, memberDetailSelect+" WHERE ui.account_id=? LIMIT 1", accountID))
	return d, notFound(err)
}

// ListClaimedByTeam returns the claimed members of a team ordered by name.
func (r *MembershipRepo) ListClaimedByTeam(ctx context.Context, teamID uint64) ([]MemberDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		memberDetailSelect+" WHERE ui.team_id=? AND ui.is_claimed=1 AND ui.is_in_team=1 ORDER BY a.name", teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MemberDetail
	for rows.Next() {
		d, err := scanMemberDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
