package service

import (
	"context"
	"strings"

	"github.com/tiffinbox/tiffin-service/internal/model"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

// AdminService covers the admin directory: addresses and user lookups.
type AdminService struct{ Deps }

func NewAdminService(d Deps) *AdminService { return &AdminService{d} }

// AddAddress creates a delivery address, optionally served by a supplier.
// Addresses are unique ignoring case.
func (s *AdminService) AddAddress(ctx context.Context, address string, supplierID *uint64) (uint64, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return 0, Errorf(KindInvalidInput, "address is required")
	}
	if err := s.checkSupplier(ctx, supplierID); err != nil {
		return 0, err
	}
	id, err := s.Repos.Addresses.Create(ctx, address, supplierID)
	if is(err, repository.ErrConflict) {
		return 0, ErrAddressExists
	}
	return id, err
}

// UpdateAddress renames an address and reassigns its supplier.
func (s *AdminService) UpdateAddress(ctx context.Context, id uint64, address string, supplierID *uint64) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return Errorf(KindInvalidInput, "address is required")
	}
	if err := s.checkSupplier(ctx, supplierID); err != nil {
		return err
	}
	err := s.Repos.Addresses.Update(ctx, id, address, supplierID)
	if is(err, repository.ErrConflict) {
		return ErrAddressExists
	}
	return mapNotFound(err, ErrAddressNotFound)
}

func (s *AdminService) checkSupplier(ctx context.Context, supplierID *uint64) error {
	if supplierID == nil {
		return nil
	}
	_, err := s.Repos.Suppliers.GetByAccountID(ctx, s.DB, *supplierID)
	return mapNotFound(err, ErrSupplierNotFound)
}

// Addresses lists every address.
func (s *AdminService) Addresses(ctx context.Context, search string) ([]model.Address, error) {
	return s.Repos.Addresses.List(ctx, nil, search)
}

// Users lists user accounts by claim status.
func (s *AdminService) Users(ctx context.Context, status string, f repository.Filter) ([]repository.UserRow, repository.PageMeta, error) {
	switch status {
	case "", repository.UsersAll:
		status = repository.UsersAll
	case repository.UsersClaimed, repository.UsersUnclaimed:
	default:
		return nil, repository.PageMeta{}, Errorf(KindInvalidInput, "status must be all, claimed or unclaimed")
	}
	return s.Repos.Accounts.ListUsers(ctx, status, f)
}

// UserByID returns the membership view of a claimed user.
func (s *AdminService) UserByID(ctx context.Context, accountID uint64) (repository.MemberDetail, error) {
	d, err := s.Repos.Members.GetDetail(ctx, accountID)
	return d, mapNotFound(err, ErrMembershipNotFound)
}

// UnclaimedUser returns an account that has not been claimed yet.
func (s *AdminService) UnclaimedUser(ctx context.Context, accountID uint64) (model.Account, error) {
	acc, err := s.Repos.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return model.Account{}, mapNotFound(err, ErrAccountNotFound)
	}
	m, err := s.Repos.Members.GetByAccountID(ctx, s.DB, accountID)
	switch {
	case err == nil && m.IsClaimed:
		return model.Account{}, ErrAccountAlreadyClaimed
	case err != nil && !is(err, repository.ErrNotFound):
		return model.Account{}, err
	}
	return acc, nil
}
