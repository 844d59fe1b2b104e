package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/metrics"
	"github.com/tiffinbox/tiffin-service/internal/model"
	"github.com/tiffinbox/tiffin-service/internal/queue"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

// OrderService owns the order lifecycle and the balance movements tied to
// it.
type OrderService struct{ Deps }

func NewOrderService(d Deps) *OrderService { return &OrderService{d} }

// activeMembership loads the caller's membership and requires it to be
// claimed and in a team.
func (s *OrderService) activeMembership(ctx context.Context, userID uint64) (model.Membership, error) {
	m, err := s.Repos.Members.GetByAccountID(ctx, s.DB, userID)
	if err != nil {
		return m, mapNotFound(err, ErrUnclaimedUser)
	}
	if !m.Active() {
		return m, ErrUnclaimedUser
	}
	return m, nil
}

// PlaceOrder creates a pending order for day and debits the meal cost.  It
// returns the normalized delivery date.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uint64, day time.Time) (string, error) {
	day = clock.Day(day)
	m, err := s.activeMembership(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := CheckPlacement(s.Clock.Now(), day, s.Pricing.Cutoff); err != nil {
		return "", err
	}
	meal := s.Pricing.MealCost
	if m.Balance < meal {
		return "", ErrInsufficientBalance
	}
	exists, err := s.Repos.Orders.ExistsForDay(ctx, s.DB, userID, day)
	if err != nil {
		return "", fmt.Errorf("check order: %w", err)
	}
	if exists {
		return "", ErrOrderAlreadyExists
	}
	supplierID, err := s.teamSupplier(ctx, m.TeamID)
	if err != nil {
		return "", err
	}

	var orderID uint64
	err = repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		id, err := s.Repos.Orders.CreateTx(ctx, tx, model.Order{
			UserID:       userID,
			TeamID:       m.TeamID,
			SupplierID:   supplierID,
			DeliveryDate: day,
			Price:        meal,
		})
		if err != nil {
			if is(err, repository.ErrConflict) {
				return ErrOrderAlreadyExists
			}
			return err
		}
		orderID = id
		if err := s.Repos.Members.DebitIfCoveredTx(ctx, tx, userID, meal); err != nil {
			if is(err, repository.ErrConflict) {
				return ErrInsufficientBalance
			}
			return persisted(err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	date := clock.FormatDay(day)
	s.Log.WithFields(logrus.Fields{"user_id": userID, "order_id": orderID, "delivery_date": date}).Info("order placed")
	metrics.RecordOrderTransition("place", 1)
	publish(ctx, s.Events, s.Log, queue.LedgerEvent{
		Type: queue.EventOrderPlaced, UserID: userID, OrderID: orderID, TeamID: m.TeamID, Amount: meal, DeliveryDate: date,
	})
	return date, nil
}

// teamSupplier resolves the supplier serving the team's address, if any.
func (s *OrderService) teamSupplier(ctx context.Context, teamID uint64) (*uint64, error) {
	team, err := s.Repos.Teams.GetByID(ctx, s.DB, teamID)
	if err != nil {
		return nil, mapNotFound(err, ErrTeamNotFound)
	}
	addr, err := s.Repos.Addresses.GetByID(ctx, s.DB, team.AddressID)
	if err != nil {
		return nil, mapNotFound(err, ErrAddressNotFound)
	}
	return addr.SupplierID, nil
}

// CancelOrder cancels a pending order of userID and credits back its price.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID uint64) error {
	tr, err := s.updateOrderStatus(ctx, orderID, userID, model.OrderPending, func(o model.Order) Transition {
		return CancelTransition(o)
	})
	if err != nil {
		return err
	}
	metrics.RecordOrderTransition("cancel", 1)
	publish(ctx, s.Events, s.Log, queue.LedgerEvent{
		Type: queue.EventOrderCanceled, UserID: userID, OrderID: orderID, Amount: tr.Delta,
	})
	return nil
}

// UpdateOrder re-places a canceled order of userID, charging the current
// meal cost.  The caller must still be an active member.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID, userID uint64) error {
	if _, err := s.activeMembership(ctx, userID); err != nil {
		return err
	}
	tr, err := s.updateOrderStatus(ctx, orderID, userID, model.OrderCanceled, func(model.Order) Transition {
		return ReplaceTransition(s.Pricing.MealCost)
	})
	if err != nil {
		return err
	}
	metrics.RecordOrderTransition("replace", 1)
	publish(ctx, s.Events, s.Log, queue.LedgerEvent{
		Type: queue.EventOrderReplaced, UserID: userID, OrderID: orderID, Amount: -tr.Delta,
	})
	return nil
}

// updateOrderStatus locks the order in status from, applies the transition
// built by next and moves the balance by its delta, all in one transaction.
func (s *OrderService) updateOrderStatus(ctx context.Context, orderID, userID uint64, from string, next func(model.Order) Transition) (Transition, error) {
	var tr Transition
	err := repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		o, err := s.Repos.Orders.GetOwnedWithStatusTx(ctx, tx, orderID, userID, from)
		if err != nil {
			return mapNotFound(err, ErrOrderNotFound)
		}
		tr = next(o)
		if err := CheckChange(s.Clock.Now(), clock.Day(o.DeliveryDate), s.Pricing.Cutoff); err != nil {
			return err
		}
		if err := s.Repos.Orders.SetStatusTx(ctx, tx, o.ID, tr.From, tr.To, tr.Price); err != nil {
			return persisted(err)
		}
		if tr.Delta < 0 {
			err = s.Repos.Members.DebitIfCoveredTx(ctx, tx, userID, -tr.Delta)
			if is(err, repository.ErrConflict) {
				return ErrInsufficientBalance
			}
		} else {
			err = s.Repos.Members.AdjustBalanceTx(ctx, tx, userID, tr.Delta)
		}
		return persisted(err)
	})
	if err != nil {
		return Transition{}, err
	}
	s.Log.WithFields(logrus.Fields{
		"user_id": userID, "order_id": orderID, "from": tr.From, "to": tr.To, "amount": tr.Delta,
	}).Info("order status changed")
	return tr, nil
}

// DeliverOrder marks today's pending orders of a team as received.  A
// non-nil supplierID restricts the change to that supplier's orders.
func (s *OrderService) DeliverOrder(ctx context.Context, teamID uint64, supplierID *uint64, actorID uint64) (int64, error) {
	today := clock.Today(s.Clock)
	var n int64
	err := repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		count, err := s.Repos.Orders.CountDeliverableTx(ctx, tx, teamID, supplierID, today)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrInvalidOrder
		}
		n, err = s.Repos.Orders.DeliverTx(ctx, tx, teamID, supplierID, today)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.Log.WithFields(logrus.Fields{"team_id": teamID, "actor_id": actorID, "count": n}).Info("orders delivered")
	metrics.RecordOrderTransition("deliver", n)
	publish(ctx, s.Events, s.Log, queue.LedgerEvent{
		Type: queue.EventOrdersDelivered, TeamID: teamID, ActorID: actorID, Count: n, DeliveryDate: clock.FormatDay(today),
	})
	return n, nil
}

// PickBoxes marks the team's delivered boxes as collected.
func (s *OrderService) PickBoxes(ctx context.Context, teamID uint64, supplierID *uint64, actorID uint64) (int64, error) {
	var n int64
	err := repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		count, err := s.Repos.Orders.CountPickableTx(ctx, tx, teamID, supplierID)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrInvalidOrder
		}
		n, err = s.Repos.Orders.PickTx(ctx, tx, teamID, supplierID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.Log.WithFields(logrus.Fields{"team_id": teamID, "actor_id": actorID, "count": n}).Info("boxes picked")
	metrics.RecordOrderTransition("pickup", n)
	publish(ctx, s.Events, s.Log, queue.LedgerEvent{
		Type: queue.EventBoxesPicked, TeamID: teamID, ActorID: actorID, Count: n,
	})
	return n, nil
}

// UpcomingOrders lists the caller's orders from today on.
func (s *OrderService) UpcomingOrders(ctx context.Context, userID uint64) ([]model.Order, error) {
	return s.Repos.Orders.ListUpcoming(ctx, userID, clock.Today(s.Clock))
}

// OrderHistory is a page of past orders with counters over the full
// history.
type OrderHistory struct {
	Orders []model.Order             `json:"orders"`
	Meta   repository.PageMeta       `json:"meta"`
	Counts repository.HistoryCounts `json:"counts"`
}

// OrderHistory lists the caller's orders before today.
func (s *OrderService) OrderHistory(ctx context.Context, userID uint64, p repository.Page) (OrderHistory, error) {
	orders, meta, counts, err := s.Repos.Orders.ListHistory(ctx, userID, clock.Today(s.Clock), p)
	if err != nil {
		return OrderHistory{}, err
	}
	return OrderHistory{Orders: orders, Meta: meta, Counts: counts}, nil
}

// TeamOrders groups the orders of one team for a day.
type TeamOrders struct {
	TeamID       uint64                    `json:"team_id"`
	TeamName     string                    `json:"team_name"`
	DeliveryDate string                    `json:"delivery_date"`
	LeaderName   string                    `json:"leaderName"`
	LeaderPhone  string                    `json:"leaderPhoneNumber"`
	DueBoxes     int                       `json:"due_boxes"`
	Address      string                    `json:"address"`
	OrderCount   int                       `json:"order_count"`
	Orders       []repository.DayOrderRow `json:"orderList"`
}

// OrdersForDay returns the orders of day aggregated per team, in team id
// order.
func (s *OrderService) OrdersForDay(ctx context.Context, day time.Time, f repository.Filter) ([]TeamOrders, error) {
	day = clock.Day(day)
	rows, err := s.Repos.Orders.ListForDay(ctx, day, f)
	if err != nil {
		return nil, err
	}
	return GroupByTeam(rows), nil
}

// GroupByTeam folds day rows, which must be ordered by team, into one entry
// per team.
func GroupByTeam(rows []repository.DayOrderRow) []TeamOrders {
	out := []TeamOrders{}
	for _, r := range rows {
		if len(out) == 0 || out[len(out)-1].TeamID != r.TeamID {
			out = append(out, TeamOrders{
				TeamID:       r.TeamID,
				TeamName:     r.TeamName,
				DeliveryDate: clock.FormatDay(r.DeliveryDate),
				LeaderName:   r.LeaderName,
				LeaderPhone:  r.LeaderPhone,
				DueBoxes:     r.DueBoxes,
				Address:      r.Address,
			})
		}
		t := &out[len(out)-1]
		t.OrderCount++
		t.Orders = append(t.Orders, r)
	}
	return out
}
