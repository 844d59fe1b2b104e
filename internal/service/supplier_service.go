package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/model"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

// SupplierService manages supplier accounts, their delivery spots and the
// cash they collect for the admin.
type SupplierService struct{ Deps }

func NewSupplierService(d Deps) *SupplierService { return &SupplierService{d} }

// CreateSupplier promotes accountID to the supplier role and stores its
// contact details.
func (s *SupplierService) CreateSupplier(ctx context.Context, accountID uint64, name, contactNo string) error {
	name, contactNo = strings.TrimSpace(name), strings.TrimSpace(contactNo)
	if name == "" || contactNo == "" {
		return Errorf(KindInvalidInput, "name and contact_no are required")
	}
	acc, err := s.Repos.Accounts.GetByIDTx(ctx, s.DB, accountID)
	if err != nil {
		return mapNotFound(err, ErrAccountNotFound)
	}
	if acc.Role == model.RoleAdmin {
		return Errorf(KindInvalidInput, "an admin cannot be made a supplier")
	}
	_, err = s.Repos.Suppliers.GetByAccountID(ctx, s.DB, accountID)
	if err == nil {
		return ErrSupplierExists
	}
	if !is(err, repository.ErrNotFound) {
		return err
	}
	err = repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := s.Repos.Accounts.UpdateRoleTx(ctx, tx, accountID, model.RoleSupplier); err != nil {
			return err
		}
		_, err := s.Repos.Suppliers.CreateTx(ctx, tx, accountID, name, contactNo)
		if is(err, repository.ErrConflict) {
			return ErrSupplierExists
		}
		return err
	})
	if err != nil {
		return err
	}
	s.Log.WithField("supplier_id", accountID).Info("supplier created")
	return nil
}

// UpdateSupplier changes a supplier's contact details.
func (s *SupplierService) UpdateSupplier(ctx context.Context, accountID uint64, name, contactNo string) error {
	name, contactNo = strings.TrimSpace(name), strings.TrimSpace(contactNo)
	if name == "" || contactNo == "" {
		return Errorf(KindInvalidInput, "name and contact_no are required")
	}
	return mapNotFound(s.Repos.Suppliers.Update(ctx, accountID, name, contactNo), ErrSupplierNotFound)
}

// Suppliers lists suppliers.
func (s *SupplierService) Suppliers(ctx context.Context, search string) ([]repository.SupplierRow, error) {
	return s.Repos.Suppliers.List(ctx, search)
}

// SupplierDetail is a supplier with the addresses it serves and today's
// counters.
type SupplierDetail struct {
	model.SupplierInfo
	Addresses []model.Address         `json:"addresses"`
	Statics   repository.SupplierTotals `json:"statics"`
}

// Supplier returns one supplier.
func (s *SupplierService) Supplier(ctx context.Context, accountID uint64) (SupplierDetail, error) {
	info, err := s.Repos.Suppliers.GetByAccountID(ctx, s.DB, accountID)
	if err != nil {
		return SupplierDetail{}, mapNotFound(err, ErrSupplierNotFound)
	}
	addrs, err := s.Repos.Addresses.List(ctx, &accountID, "")
	if err != nil {
		return SupplierDetail{}, err
	}
	totals, err := s.Repos.Statics.SupplierTotals(ctx, accountID, clock.Today(s.Clock))
	if err != nil {
		return SupplierDetail{}, mapNotFound(err, ErrSupplierNotFound)
	}
	return SupplierDetail{SupplierInfo: info, Addresses: addrs, Statics: totals}, nil
}

// CollectPayment settles every pending recharge a supplier collected and
// returns the collected amount.
func (s *SupplierService) CollectPayment(ctx context.Context, supplierID, adminID uint64) (int64, error) {
	if _, err := s.Repos.Suppliers.GetByAccountID(ctx, s.DB, supplierID); err != nil {
		return 0, mapNotFound(err, ErrSupplierNotFound)
	}
	var sum int64
	err := repository.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		sum, err = s.Repos.Transactions.MarkReceiverPaidTx(ctx, tx, supplierID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.Log.WithFields(logrus.Fields{"supplier_id": supplierID, "admin_id": adminID, "amount": sum}).Info("supplier payment collected")
	return sum, nil
}

// Transactions lists the rows a supplier received.
func (s *SupplierService) Transactions(ctx context.Context, supplierID uint64, status string, p repository.Page) ([]model.Transaction, repository.PageMeta, error) {
	return s.Repos.Transactions.ListByReceiver(ctx, supplierID, status, p)
}

// DeliverySpots lists the supplier's teams with today's order counts.
func (s *SupplierService) DeliverySpots(ctx context.Context, supplierID uint64) ([]repository.DeliverySpot, error) {
	return s.Repos.Orders.DeliverySpots(ctx, supplierID, clock.Today(s.Clock))
}

// PickupSpot is an address with its teams and their due boxes.
type PickupSpot struct {
	model.Address
	Teams []repository.TeamRow `json:"teams"`
}

// PickupSpots lists the supplier's addresses with their teams, Search
// matched against the address.
func (s *SupplierService) PickupSpots(ctx context.Context, supplierID uint64, search string) ([]PickupSpot, error) {
	addrs, err := s.Repos.Addresses.List(ctx, &supplierID, search)
	if err != nil {
		return nil, err
	}
	out := make([]PickupSpot, 0, len(addrs))
	for _, a := range addrs {
		teams, err := s.Repos.Teams.ListByAddress(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, PickupSpot{Address: a, Teams: teams})
	}
	return out, nil
}
