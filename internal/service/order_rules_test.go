package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/model"
)

var dhaka = time.FixedZone("BDT", 6*60*60)

const cutoff = 6*time.Hour + 30*time.Minute

func at(h, m, s int) time.Time { return time.Date(2024, 5, 2, h, m, s, 0, dhaka) }

func TestCutoffIsSymmetric(t *testing.T) {
	today := clock.Day(at(0, 0, 0))

	assert.NoError(t, CheckPlacement(at(6, 29, 59), today, cutoff))
	assert.ErrorIs(t, CheckPlacement(at(6, 30, 0), today, cutoff), ErrInvalidDeliveryForToday)

	assert.NoError(t, CheckChange(at(6, 29, 59), today, cutoff))
	assert.ErrorIs(t, CheckChange(at(6, 30, 0), today, cutoff), ErrTodayOrderDatePassed)
}

func TestPastAndFutureDays(t *testing.T) {
	now := at(23, 0, 0)
	yesterday := clock.Day(now).AddDate(0, 0, -1)
	tomorrow := clock.Day(now).AddDate(0, 0, 1)

	assert.ErrorIs(t, CheckPlacement(now, yesterday, cutoff), ErrInvalidDeliveryDate)
	assert.ErrorIs(t, CheckChange(now, yesterday, cutoff), ErrOrderDatePassed)
	assert.NoError(t, CheckPlacement(now, tomorrow, cutoff))
	assert.NoError(t, CheckChange(now, tomorrow, cutoff))
}

func TestLocalDayNotUTCDay(t *testing.T) {
	// 01:00 in Dhaka is still the previous day in UTC.
	now := at(1, 0, 0)
	assert.Equal(t, 1, now.UTC().Day())
	assert.NoError(t, CheckPlacement(now, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), cutoff))
	assert.ErrorIs(t, CheckPlacement(now, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), cutoff), ErrInvalidDeliveryDate)
}

func TestCancelThenReplaceConservesBalance(t *testing.T) {
	const meal = 70
	balance := int64(200)

	balance -= meal // place
	o := model.Order{Status: model.OrderPending, Price: meal}
	c := CancelTransition(o)
	balance += c.Delta
	assert.EqualValues(t, 200, balance)

	r := ReplaceTransition(meal)
	balance += r.Delta
	assert.EqualValues(t, 130, balance)
	assert.Equal(t, model.OrderCanceled, r.From)
	assert.Equal(t, model.OrderPending, r.To)
}

func TestCancelCreditsStoredPrice(t *testing.T) {
	// A meal cost change after placement must not change the refund.
	tr := CancelTransition(model.Order{Price: 60})
	assert.EqualValues(t, 60, tr.Delta)
}

func TestSplitClaim(t *testing.T) {
	s := SplitClaim(500, 150, 50)
	assert.Equal(t, ClaimSplit{BoxCost: 150, ServiceFee: 50, Deposit: 300}, s)
	assert.EqualValues(t, 500, s.BoxCost+s.ServiceFee+s.Deposit)
}
