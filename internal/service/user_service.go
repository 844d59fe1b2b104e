package service

import (
	"context"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

// UserService answers the member's own profile questions.
type UserService struct{ Deps }

func NewUserService(d Deps) *UserService { return &UserService{d} }

// UserInfo is the caller's membership.  TodayTeamOrders is set only for
// team leaders.
type UserInfo struct {
	repository.MemberDetail
	IsLeader        bool   `json:"is_leader"`
	TodayTeamOrders *int64 `json:"today_team_orders,omitempty"`
}

// UserInfo returns the caller's membership.
func (s *UserService) UserInfo(ctx context.Context, userID uint64) (UserInfo, error) {
	d, err := s.Repos.Members.GetDetail(ctx, userID)
	if err != nil {
		return UserInfo{}, mapNotFound(err, ErrUnclaimedUser)
	}
	info := UserInfo{MemberDetail: d}
	team, err := s.Repos.Teams.GetByLeader(ctx, s.DB, userID)
	switch {
	case err == nil:
		n, err := s.Repos.Orders.CountActiveForTeamDay(ctx, team.ID, clock.Today(s.Clock))
		if err != nil {
			return UserInfo{}, err
		}
		info.IsLeader = true
		info.TodayTeamOrders = &n
	case !is(err, repository.ErrNotFound):
		return UserInfo{}, err
	}
	return info, nil
}
