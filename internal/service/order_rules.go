package service

import (
	"time"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/model"
)

// CheckPlacement validates the delivery day of a new order against the
// local time now.  day must be a normalized day (midnight UTC).
func CheckPlacement(now, day time.Time, cutoff time.Duration) error {
	today := clock.Day(now)
	switch {
	case day.Before(today):
		return ErrInvalidDeliveryDate
	case day.Equal(today) && !clock.BeforeCutoff(now, cutoff):
		return ErrInvalidDeliveryForToday
	}
	return nil
}

// CheckChange validates cancelling or re-placing an order for day.  The
// same-day boundary matches CheckPlacement.
func CheckChange(now, day time.Time, cutoff time.Duration) error {
	today := clock.Day(now)
	switch {
	case day.Before(today):
		return ErrOrderDatePassed
	case day.Equal(today) && !clock.BeforeCutoff(now, cutoff):
		return ErrTodayOrderDatePassed
	}
	return nil
}

// Transition describes a status change of one order and its effect on the
// owner's balance.
type Transition struct {
	From  string
	To    string
	Delta int64 // added to the balance
	Price int64 // price stored on the order afterwards
}

// CancelTransition credits back what the order was charged.
func CancelTransition(o model.Order) Transition {
	return Transition{From: model.OrderPending, To: model.OrderCanceled, Delta: o.Price, Price: o.Price}
}

// ReplaceTransition charges the current meal cost again.
func ReplaceTransition(mealCost int64) Transition {
	return Transition{From: model.OrderCanceled, To: model.OrderPending, Delta: -mealCost, Price: mealCost}
}

// ClaimSplit is how an initial claim deposit is divided in the ledger.
type ClaimSplit struct {
	BoxCost    int64
	ServiceFee int64
	Deposit    int64 // credited to the balance
}

// SplitClaim divides balance into the box cost, the service fee and the
// remainder that becomes the starting balance.
func SplitClaim(balance, boxCost, fee int64) ClaimSplit {
	return ClaimSplit{BoxCost: boxCost, ServiceFee: fee, Deposit: balance - boxCost - fee}
}
