// Package service holds the business rules of the tiffin service: the order
// lifecycle, team and membership bookkeeping, and the balance ledger.  Every
// operation that touches more than one row runs in a single database
// transaction; events are published only after it commits.
package service

import (
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/config"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

// Repos bundles every repository over one pool.
type Repos struct {
	Accounts     *repository.AccountRepo
	Tokens       *repository.TokenRepo
	Members      *repository.MembershipRepo
	Teams        *repository.TeamRepo
	Addresses    *repository.AddressRepo
	Orders       *repository.OrderRepo
	Transactions *repository.TransactionRepo
	Expenses     *repository.ExpenseRepo
	Suppliers    *repository.SupplierRepo
	Statics      *repository.StaticsRepo
}

// NewRepos builds all repositories on db.
func NewRepos(db *sql.DB) Repos {
	return Repos{
		Accounts:     repository.NewAccountRepo(db),
		Tokens:       repository.NewTokenRepo(db),
		Members:      repository.NewMembershipRepo(db),
		Teams:        repository.NewTeamRepo(db),
		Addresses:    repository.NewAddressRepo(db),
		Orders:       repository.NewOrderRepo(db),
		Transactions: repository.NewTransactionRepo(db),
		Expenses:     repository.NewExpenseRepo(db),
		Suppliers:    repository.NewSupplierRepo(db),
		Statics:      repository.NewStaticsRepo(db),
	}
}

// Deps is what every service is constructed from.
type Deps struct {
	DB      *sql.DB
	Repos   Repos
	Clock   clock.Clock
	Pricing config.PricingConfig
	Events  EventPublisher
	Log     logrus.FieldLogger
}

// is reports whether err is the repository sentinel target.
func is(err, target error) bool { return errors.Is(err, target) }

// mapNotFound turns repository.ErrNotFound into notFound and leaves every
// other error unchanged.
func mapNotFound(err error, notFound *Error) error {
	if is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}

// persisted maps a zero-row write inside a transaction to ErrPersistence.
func persisted(err error) error {
	if is(err, repository.ErrNotFound) {
		return ErrPersistence
	}
	return err
}
