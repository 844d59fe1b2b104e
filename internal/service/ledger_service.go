package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/metrics"
	"github.com/tiffinbox/tiffin-service/internal/model"
	"github.com/tiffinbox/tiffin-service/internal/queue"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

// LedgerService moves money in and out of member balances and records
// operational expenses.  Every balance change is paired with a ledger row
// in the same transaction.
type LedgerService struct{ Deps }

func NewLedgerService(d Deps) *LedgerService { return &LedgerService{d} }

// RechargeBalance credits amount to userID.  Staff recharges are recorded
// as paid; a supplier collects cash on the admin's behalf, so its
// recharges stay pending until collected.
func (s *LedgerService) RechargeBalance(ctx context.Context, userID uint64, amount int64, staffID uint64, staffRole string) error {
	if amount <= 0 {
		return Errorf(KindInvalidInput, "amount must be positive")
	}
	status := model.TransactionPaid
	if staffRole == model.RoleSupplier {
		status = model.TransactionPending
	}
	err := repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := s.Repos.Members.AdjustBalanceTx(ctx, tx, userID, amount); err != nil {
			return mapNotFound(err, ErrMembershipNotFound)
		}
		_, err := s.Repos.Transactions.CreateTx(ctx, tx, model.Transaction{
			UserID:      userID,
			ReceiverID:  staffID,
			Amount:      amount,
			Type:        model.TransactionDeposit,
			Description: model.DescBalanceRecharge,
			Status:      status,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{"user_id": userID, "amount": amount, "staff_id": staffID, "status": status}).
		Info("balance recharged")
	metrics.RecordLedger(model.TransactionDeposit, amount)
	publish(ctx, s.Events, s.Log, queue.LedgerEvent{
		Type: queue.EventBalanceRecharged, UserID: userID, ActorID: staffID, Amount: amount,
	})
	return nil
}

// RefundBalance pays amount back to userID.  The balance row is locked so
// the check and the debit see the same value.
func (s *LedgerService) RefundBalance(ctx context.Context, userID uint64, amount int64, description string, staffID uint64) error {
	if amount <= 0 {
		return Errorf(KindInvalidInput, "amount must be positive")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = "Refund"
	}
	err := repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		m, err := s.Repos.Members.GetByAccountIDForUpdate(ctx, tx, userID)
		if err != nil {
			return mapNotFound(err, ErrMembershipNotFound)
		}
		if amount > m.Balance {
			return ErrRefundExceedsBalance
		}
		if err := s.Repos.Members.AdjustBalanceTx(ctx, tx, userID, -amount); err != nil {
			return persisted(err)
		}
		_, err = s.Repos.Transactions.CreateTx(ctx, tx, model.Transaction{
			UserID:      userID,
			ReceiverID:  staffID,
			Amount:      amount,
			Type:        model.TransactionRefund,
			Description: description,
			Status:      model.TransactionPaid,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{"user_id": userID, "amount": amount, "staff_id": staffID}).Info("balance refunded")
	metrics.RecordLedger(model.TransactionRefund, amount)
	publish(ctx, s.Events, s.Log, queue.LedgerEvent{
		Type: queue.EventBalanceRefunded, UserID: userID, ActorID: staffID, Amount: amount,
	})
	return nil
}

// Transactions lists the ledger of one user.
func (s *LedgerService) Transactions(ctx context.Context, userID uint64, p repository.Page) ([]model.Transaction, repository.PageMeta, error) {
	return s.Repos.Transactions.ListByUser(ctx, userID, p)
}

// ExpenseInput is one operational cost to record.
type ExpenseInput struct {
	ProductName string
	Quantity    string
	Amount      int64
	Date        time.Time // zero means now
}

// ListExpenses records a batch of expenses atomically.
func (s *LedgerService) ListExpenses(ctx context.Context, items []ExpenseInput) (int, error) {
	if len(items) == 0 {
		return 0, Errorf(KindInvalidInput, "no expenses given")
	}
	for _, it := range items {
		if strings.TrimSpace(it.ProductName) == "" || it.Amount <= 0 {
			return 0, Errorf(KindInvalidInput, "every expense needs a product name and a positive amount")
		}
	}
	err := repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, it := range items {
			date := it.Date
			if date.IsZero() {
				date = s.Clock.Now()
			}
			if _, err := s.Repos.Expenses.CreateTx(ctx, tx, model.Expense{
				ProductName: strings.TrimSpace(it.ProductName),
				Quantity:    strings.TrimSpace(it.Quantity),
				Amount:      it.Amount,
				Date:        date,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// GetExpenses returns a page of expenses.  A non-zero month narrows the
// result to that calendar month.
func (s *LedgerService) GetExpenses(ctx context.Context, month time.Time, f repository.Filter) ([]model.Expense, repository.PageMeta, error) {
	var from, to time.Time
	if !month.IsZero() {
		from, to = clock.MonthRange(month)
	}
	return s.Repos.Expenses.List(ctx, from, to, f)
}
