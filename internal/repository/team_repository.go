package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tiffinbox/tiffin-service/internal/model"
)

const teamColumns = "id, name, address_id, leader_id, member, due_boxes, is_deleted, created_at, updated_at"

// TeamRepo persists teams.  The member and due_boxes columns are counters
// maintained by the services; Drift and ResetMember support the periodic
// audit of the member counter.
type TeamRepo struct{ db *sql.DB }

func NewTeamRepo(db *sql.DB) *TeamRepo { return &TeamRepo{db: db} }

func scanTeam(row *sql.Row) (model.Team, error) {
	var t model.Team
	err := row.Scan(&t.ID, &t.Name, &t.AddressID, &t.LeaderID, &t.Member, &t.DueBoxes, &t.IsDeleted, &t.CreatedAt, &t.UpdatedAt)
	return t, notFound(err)
}

// GetByID returns a live team.
func (r *TeamRepo) GetByID(ctx context.Context, q DBTX, id uint64) (model.Team, error) {
	return scanTeam(q.QueryRowContext(ctx,
		"SELECT "+teamColumns+" FROM teams WHERE id=? AND is_deleted=0 LIMIT 1", id))
}

// GetByLeader returns the team led by an account, if any.
func (r *TeamRepo) GetByLeader(ctx context.Context, q DBTX, leaderID uint64) (model.Team, error) {
	return scanTeam(q.QueryRowContext(ctx,
		"SELECT "+teamColumns+" FROM teams WHERE leader_id=? LIMIT 1", leaderID))
}

// NameTaken reports whether a team with the same name exists, ignoring
// case and surrounding space.
func (r *TeamRepo) NameTaken(ctx context.Context, q DBTX, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM teams WHERE LOWER(name) = LOWER(?)", strings.TrimSpace(name)).Scan(&n)
	return n > 0, err
}

// CreateTx inserts a team with an initial member count.  A duplicate name
// or leader yields ErrConflict.
func (r *TeamRepo) CreateTx(ctx context.Context, tx DBTX, name string, addressID, leaderID uint64, member int) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO teams (name, address_id, leader_id, member) VALUES (?,?,?,?)",
		strings.TrimSpace(name), addressID, leaderID, member)
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

// AdjustMemberTx adds delta to the member counter.
func (r *TeamRepo) AdjustMemberTx(ctx context.Context, tx DBTX, teamID uint64, delta int) error {
	return requireOne(tx.ExecContext(ctx,
		"UPDATE teams SET member = member + ? WHERE id=? AND is_deleted=0", delta, teamID))
}

// SetLeaderTx reassigns the team leader.
func (r *TeamRepo) SetLeaderTx(ctx context.Context, tx DBTX, teamID, leaderID uint64) error {
	err := requireOne(tx.ExecContext(ctx,
		"UPDATE teams SET leader_id=? WHERE id=? AND is_deleted=0", leaderID, teamID))
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// SetDueBoxes overwrites the due box counter.
func (r *TeamRepo) SetDueBoxes(ctx context.Context, teamID uint64, n int) error {
	return requireOne(r.db.ExecContext(ctx,
		"UPDATE teams SET due_boxes=? WHERE id=? AND is_deleted=0", n, teamID))
}

// TeamRow is a team joined with its address and leader.
type TeamRow struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Member      int    `json:"member"`
	DueBoxes    int    `json:"due_boxes"`
	AddressID   uint64 `json:"address_id"`
	Address     string `json:"address"`
	LeaderID    uint64 `json:"leader_id"`
	LeaderName  string `json:"leader_name"`
	LeaderPhone string `json:"leader_phone"`
}

const teamRowFrom = ` FROM teams t
	JOIN addresses ad ON ad.id = t.address_id
	JOIN accounts l ON l.id = t.leader_id`

const teamRowSelect = `SELECT t.id, t.name, t.member, t.due_boxes, ad.id, ad.address, l.id, l.name, l.phone`

func scanTeamRow(sc interface{ Scan(...any) error }) (TeamRow, error) {
	var t TeamRow
	err := sc.Scan(&t.ID, &t.Name, &t.Member, &t.DueBoxes, &t.AddressID, &t.Address, &t.LeaderID, &t.LeaderName, &t.LeaderPhone)
	return t, err
}

// List returns a page of live teams.  Search matches team name, address and
// leader phone.
func (r *TeamRepo) List(ctx context.Context, f Filter) ([]TeamRow, PageMeta, error) {
	conds, args := f.clause(map[FilterField]string{
		FieldAddressID:  "t.address_id",
		FieldSupplierID: "ad.supplier_id",
	}, "t.name", "ad.address", "l.phone")
	conds = append(conds, "t.is_deleted = 0")
	where := " WHERE " + joinWhere(conds)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+teamRowFrom+where, args...).Scan(&total); err != nil {
		return nil, PageMeta{}, err
	}
	rows, err := r.db.QueryContext(ctx,
		teamRowSelect+teamRowFrom+where+" ORDER BY t.id DESC LIMIT ? OFFSET ?",
		append(args, f.Page.Size, f.Page.Offset())...)
	if err != nil {
		return nil, PageMeta{}, err
	}
	defer rows.Close()
	out := make([]TeamRow, 0, f.Page.Size)
	for rows.Next() {
		t, err := scanTeamRow(rows)
		if err != nil {
			return nil, PageMeta{}, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, PageMeta{}, err
	}
	return out, f.Page.Meta(total), nil
}

// GetRow returns one joined team.
func (r *TeamRepo) GetRow(ctx context.Context, id uint64) (TeamRow, error) {
	t, err := scanTeamRow(r.db.QueryRowContext(ctx,
		teamRowSelect+teamRowFrom+" WHERE t.id=? AND t.is_deleted=0 LIMIT 1", id))
	return t, notFound(err)
}

// ListByAddress returns the live teams at an address.
func (r *TeamRepo) ListByAddress(ctx context.Context, addressID uint64) ([]TeamRow, error) {
	rows, err := r.db.QueryContext(ctx,
		teamRowSelect+teamRowFrom+" WHERE t.address_id=? AND t.is_deleted=0 ORDER BY t.name", addressID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TeamRow
	for rows.Next() {
		t, err := scanTeamRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MemberDrift is a team whose stored member counter disagrees with its
// in-team memberships.
type MemberDrift struct {
	TeamID uint64
	Stored int
	Actual int
}

// Drift lists every team whose member counter is out of sync.
func (r *TeamRepo) Drift(ctx context.Context) ([]MemberDrift, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT t.id, t.member, COUNT(ui.id)
		FROM teams t
		LEFT JOIN user_infos ui ON ui.team_id = t.id AND ui.is_in_team = 1
		WHERE t.is_deleted = 0
		GROUP BY t.id, t.member
		HAVING t.member <> COUNT(ui.id)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MemberDrift
	for rows.Next() {
		var d MemberDrift
		if err := rows.Scan(&d.TeamID, &d.Stored, &d.Actual); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ResetMemberTx overwrites the member counter with the current count of
// in-team memberships.
func (r *TeamRepo) ResetMemberTx(ctx context.Context, tx DBTX, teamID uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE teams SET member =
		(SELECT COUNT(*) FROM user_infos WHERE team_id = ? AND is_in_team = 1)
		WHERE id = ?`, teamID, teamID)
	return err
}
