package service

import (
	"context"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

// StaticsService derives the dashboard counters.  Nothing here is stored.
type StaticsService struct{ Deps }

func NewStaticsService(d Deps) *StaticsService { return &StaticsService{d} }

// TotalStatics are the platform counters plus the earnings derived from
// them.
type TotalStatics struct {
	repository.Totals
	TotalEarningOfTheMonth int64 `json:"totalEarningOfTheMonth"`
	TotalEarning           int64 `json:"totalEarning"`
}

// TotalStatics aggregates today, this month and all time.  Earnings count
// delivered meals at the configured meal cost plus the box and service
// fees taken at claim.
func (s *StaticsService) TotalStatics(ctx context.Context) (TotalStatics, error) {
	today := clock.Today(s.Clock)
	start, end := clock.MonthRange(today)
	t, err := s.Repos.Statics.Totals(ctx, today, start, end)
	if err != nil {
		return TotalStatics{}, err
	}
	meal := s.Pricing.MealCost
	return TotalStatics{
		Totals:                 t,
		TotalEarningOfTheMonth: t.CompletedOrderOfTheMonth * meal,
		TotalEarning:           t.TotalCompletedOrderSoFar*meal + t.ServiceAndBoxFee,
	}, nil
}

// SupplierStatics returns today's counters of one supplier.
func (s *StaticsService) SupplierStatics(ctx context.Context, supplierID uint64) (repository.SupplierTotals, error) {
	t, err := s.Repos.Statics.SupplierTotals(ctx, supplierID, clock.Today(s.Clock))
	return t, mapNotFound(err, ErrSupplierNotFound)
}
