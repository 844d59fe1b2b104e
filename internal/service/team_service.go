package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tiffinbox/tiffin-service/internal/metrics"
	"github.com/tiffinbox/tiffin-service/internal/model"
	"github.com/tiffinbox/tiffin-service/internal/queue"
	"github.com/tiffinbox/tiffin-service/internal/repository"
	"github.com/tiffinbox/tiffin-service/internal/utils"
)

// TeamService keeps teams, memberships and their counters consistent.
type TeamService struct{ Deps }

func NewTeamService(d Deps) *TeamService { return &TeamService{d} }

// CreateTeam founds a team led by leaderID at addressID.  A leader who is
// already a member elsewhere moves to the new team; a leader without a
// membership gets an unclaimed placeholder.
func (s *TeamService) CreateTeam(ctx context.Context, name string, leaderID, addressID uint64) (uint64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, Errorf(KindInvalidInput, "team name is required")
	}
	if _, err := s.Repos.Accounts.GetByIDTx(ctx, s.DB, leaderID); err != nil {
		return 0, mapNotFound(err, ErrLeaderNotFound)
	}
	if err := s.ensureNotLeading(ctx, s.DB, leaderID); err != nil {
		return 0, err
	}
	if _, err := s.Repos.Addresses.GetByID(ctx, s.DB, addressID); err != nil {
		return 0, mapNotFound(err, ErrAddressNotFound)
	}
	taken, err := s.Repos.Teams.NameTaken(ctx, s.DB, name)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrDuplicateTeamName
	}

	var teamID uint64
	err = repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		id, err := s.Repos.Teams.CreateTx(ctx, tx, name, addressID, leaderID, 1)
		if err != nil {
			if is(err, repository.ErrConflict) {
				// Lost a race on one of the two unique keys.
				if lerr := s.ensureNotLeading(ctx, tx, leaderID); lerr != nil {
					return lerr
				}
				return ErrDuplicateTeamName
			}
			return err
		}
		teamID = id

		m, err := s.Repos.Members.GetByAccountIDForUpdate(ctx, tx, leaderID)
		switch {
		case is(err, repository.ErrNotFound):
			_, err = s.Repos.Members.CreateTx(ctx, tx, model.Membership{
				AccountID: leaderID,
				AddressID: addressID,
				TeamID:    id,
				VirtualID: utils.NewVirtualID(),
				IsInTeam:  true,
			})
			return err
		case err != nil:
			return err
		}
		if m.IsInTeam {
			if err := s.Repos.Teams.AdjustMemberTx(ctx, tx, m.TeamID, -1); err != nil {
				return persisted(err)
			}
		}
		return persisted(s.Repos.Members.SetTeamTx(ctx, tx, leaderID, id, addressID))
	})
	if err != nil {
		return 0, err
	}
	s.Log.WithFields(logrus.Fields{"team_id": teamID, "leader_id": leaderID}).Info("team created")
	return teamID, nil
}

func (s *TeamService) ensureNotLeading(ctx context.Context, q repository.DBTX, accountID uint64) error {
	_, err := s.Repos.Teams.GetByLeader(ctx, q, accountID)
	switch {
	case err == nil:
		return ErrLeaderAlreadyLeading
	case is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}

// ClaimUser onboards accountID into teamID with an initial deposit.  A team
// leader can only be claimed into the team they lead.  The deposit is recorded as three ledger rows (box cost, service fee and the
// remaining balance recharge) that sum to balance; only the remainder is
// credited.
func (s *TeamService) ClaimUser(ctx context.Context, accountID uint64, balance int64, teamID, addressID, staffID uint64) error {
	if balance < s.Pricing.MinClaimBalance {
		return ErrMinimumClaimBalance
	}
	if _, err := s.Repos.Accounts.GetByIDTx(ctx, s.DB, accountID); err != nil {
		return mapNotFound(err, ErrAccountNotFound)
	}
	team, err := s.Repos.Teams.GetByID(ctx, s.DB, teamID)
	if err != nil {
		return mapNotFound(err, ErrTeamNotFound)
	}
	if _, err := s.Repos.Addresses.GetByID(ctx, s.DB, addressID); err != nil {
		return mapNotFound(err, ErrAddressNotFound)
	}
	if team.AddressID != addressID {
		return ErrAddressMismatch
	}
	led, err := s.Repos.Teams.GetByLeader(ctx, s.DB, accountID)
	switch {
	case err == nil && led.ID != teamID:
		return Errorf(KindLeaderAlreadyLeading, "a team leader can only be claimed into the team they lead")
	case err != nil && !is(err, repository.ErrNotFound):
		return err
	}
	split := SplitClaim(balance, s.Pricing.TiffinBoxCost, s.Pricing.ServiceFee)

	err = repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		m, err := s.Repos.Members.GetByAccountIDForUpdate(ctx, tx, accountID)
		switch {
		case is(err, repository.ErrNotFound):
			if _, err := s.Repos.Members.CreateTx(ctx, tx, model.Membership{
				AccountID: accountID,
				AddressID: addressID,
				TeamID:    teamID,
				Balance:   split.Deposit,
				VirtualID: utils.NewVirtualID(),
				IsClaimed: true,
				IsInTeam:  true,
			}); err != nil {
				if is(err, repository.ErrConflict) {
					return ErrAccountAlreadyClaimed
				}
				return err
			}
			if err := s.Repos.Teams.AdjustMemberTx(ctx, tx, teamID, 1); err != nil {
				return persisted(err)
			}
		case err != nil:
			return err
		case m.IsClaimed:
			return ErrAccountAlreadyClaimed
		default:
			if err := s.Repos.Members.ClaimTx(ctx, tx, accountID, teamID, addressID, split.Deposit); err != nil {
				return persisted(err)
			}
			if err := s.moveCount(ctx, tx, m, teamID); err != nil {
				return err
			}
		}

		for _, row := range []struct {
			amount int64
			desc   string
		}{
			{split.BoxCost, model.DescTiffinBoxCost},
			{split.ServiceFee, model.DescServiceFee},
			{split.Deposit, model.DescBalanceRecharge},
		} {
			if _, err := s.Repos.Transactions.CreateTx(ctx, tx, model.Transaction{
				UserID:      accountID,
				ReceiverID:  staffID,
				Amount:      row.amount,
				Type:        model.TransactionDeposit,
				Description: row.desc,
				Status:      model.TransactionPaid,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{
		"user_id": accountID, "team_id": teamID, "amount": balance, "staff_id": staffID,
	}).Info("user claimed")
	metrics.RecordLedger(model.TransactionDeposit, balance)
	publish(ctx, s.Events, s.Log, queue.LedgerEvent{
		Type: queue.EventUserClaimed, UserID: accountID, ActorID: staffID, TeamID: teamID, Amount: balance,
	})
	return nil
}

// moveCount keeps member counters right when a placeholder membership is
// claimed into teamID.  A placeholder already counted in the same team is
// left alone.
func (s *TeamService) moveCount(ctx context.Context, tx repository.DBTX, m model.Membership, teamID uint64) error {
	if m.IsInTeam && m.TeamID == teamID {
		return nil
	}
	if m.IsInTeam {
		if err := s.Repos.Teams.AdjustMemberTx(ctx, tx, m.TeamID, -1); err != nil {
			return persisted(err)
		}
	}
	return persisted(s.Repos.Teams.AdjustMemberTx(ctx, tx, teamID, 1))
}

// ChangeTeam moves a member to targetTeamID.  The target team must be at
// the member's address and the member must not lead a team.
func (s *TeamService) ChangeTeam(ctx context.Context, targetTeamID, userID uint64) error {
	m, err := s.Repos.Members.GetByAccountID(ctx, s.DB, userID)
	if err != nil {
		return mapNotFound(err, ErrMembershipNotFound)
	}
	target, err := s.Repos.Teams.GetByID(ctx, s.DB, targetTeamID)
	if err != nil {
		return mapNotFound(err, ErrTeamNotFound)
	}
	if target.AddressID != m.AddressID {
		return ErrAddressMismatch
	}
	if err := s.ensureNotLeading(ctx, s.DB, userID); err != nil {
		if is(err, ErrLeaderAlreadyLeading) {
			return Errorf(KindLeaderAlreadyLeading, "transfer team leadership before changing team")
		}
		return err
	}
	if m.IsInTeam && m.TeamID == targetTeamID {
		return Errorf(KindInvalidInput, "user is already in this team")
	}

	err = repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := s.moveCount(ctx, tx, m, targetTeamID); err != nil {
			return err
		}
		return persisted(s.Repos.Members.SetTeamTx(ctx, tx, userID, targetTeamID, target.AddressID))
	})
	if err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{"user_id": userID, "from_team": m.TeamID, "team_id": targetTeamID}).Info("team changed")
	return nil
}

// ChangeLeader hands teamID over to a current member of that team.
func (s *TeamService) ChangeLeader(ctx context.Context, newLeaderID, teamID uint64) error {
	team, err := s.Repos.Teams.GetByID(ctx, s.DB, teamID)
	if err != nil {
		return mapNotFound(err, ErrTeamNotFound)
	}
	if team.LeaderID == newLeaderID {
		return nil
	}
	m, err := s.Repos.Members.GetByAccountID(ctx, s.DB, newLeaderID)
	if err != nil {
		return mapNotFound(err, ErrNotTeamMember)
	}
	if m.TeamID != teamID || !m.IsInTeam {
		return ErrNotTeamMember
	}
	err = repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		err := s.Repos.Teams.SetLeaderTx(ctx, tx, teamID, newLeaderID)
		if is(err, repository.ErrConflict) {
			return ErrLeaderAlreadyLeading
		}
		return persisted(err)
	})
	if err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{"team_id": teamID, "leader_id": newLeaderID}).Info("team leader changed")
	return nil
}

// UpdateDueBoxes sets the outstanding box count of a team.
func (s *TeamService) UpdateDueBoxes(ctx context.Context, teamID uint64, amount int) error {
	if amount < 0 {
		return Errorf(KindInvalidInput, "due boxes cannot be negative")
	}
	return mapNotFound(s.Repos.Teams.SetDueBoxes(ctx, teamID, amount), ErrTeamNotFound)
}

// Teams lists teams.
func (s *TeamService) Teams(ctx context.Context, f repository.Filter) ([]repository.TeamRow, repository.PageMeta, error) {
	return s.Repos.Teams.List(ctx, f)
}

// TeamInfo is a team with its claimed members.
type TeamInfo struct {
	repository.TeamRow
	Members []repository.MemberDetail `json:"members"`
}

// TeamInfo returns one team with its members.
func (s *TeamService) TeamInfo(ctx context.Context, teamID uint64) (TeamInfo, error) {
	row, err := s.Repos.Teams.GetRow(ctx, teamID)
	if err != nil {
		return TeamInfo{}, mapNotFound(err, ErrTeamNotFound)
	}
	members, err := s.Repos.Members.ListClaimedByTeam(ctx, teamID)
	if err != nil {
		return TeamInfo{}, err
	}
	return TeamInfo{TeamRow: row, Members: members}, nil
}
