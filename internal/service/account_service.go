package service

import (
	"context"
	"strings"

	"github.com/tiffinbox/tiffin-service/internal/model"
	"github.com/tiffinbox/tiffin-service/internal/repository"
	"github.com/tiffinbox/tiffin-service/internal/utils"
)

// AuthConfig carries the token and hashing settings of AccountService.
type AuthConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// AccountService handles sign-up, login and the token lifecycle.
type AccountService struct {
	Deps
	auth AuthConfig
}

func NewAccountService(d Deps, auth AuthConfig) *AccountService {
	return &AccountService{Deps: d, auth: auth}
}

// Session is an authenticated account with a fresh token pair.
type Session struct {
	Account model.Account      `json:"user"`
	Access  utils.AccessToken  `json:"-"`
	Refresh utils.RefreshToken `json:"-"`
}

// SignUp creates a user account and opens a session for it.
func (s *AccountService) SignUp(ctx context.Context, phone, name, password string) (Session, error) {
	phone, name = strings.TrimSpace(phone), strings.TrimSpace(name)
	if phone == "" || name == "" {
		return Session{}, Errorf(KindInvalidInput, "phone and name are required")
	}
	hash, err := utils.HashPassword(password, s.auth.BcryptCost)
	if err != nil {
		if is(err, utils.ErrWeakPassword) {
			return Session{}, Errorf(KindInvalidInput, "password must be at least %d characters", utils.MinPasswordLen)
		}
		return Session{}, err
	}
	id, err := s.Repos.Accounts.Create(ctx, phone, name, hash, model.RoleUser)
	if err != nil {
		if is(err, repository.ErrPhoneExists) {
			return Session{}, ErrPhoneExists
		}
		return Session{}, err
	}
	s.Log.WithField("account_id", id).Info("account created")
	return s.open(ctx, model.Account{ID: id, Phone: phone, Name: name, Role: model.RoleUser})
}

// Login verifies phone and password.
func (s *AccountService) Login(ctx context.Context, phone, password string) (Session, error) {
	acc, err := s.Repos.Accounts.GetByPhone(ctx, phone)
	if err != nil {
		return Session{}, mapNotFound(err, ErrInvalidCredentials)
	}
	if !utils.VerifyPassword(acc.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.open(ctx, acc)
}

// AdminLogin is Login restricted to admin and supplier accounts.
func (s *AccountService) AdminLogin(ctx context.Context, phone, password string) (Session, error) {
	sess, err := s.Login(ctx, phone, password)
	if err != nil {
		return Session{}, err
	}
	if sess.Account.Role == model.RoleUser {
		_ = s.Repos.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(sess.Refresh.Raw))
		return Session{}, ErrForbidden
	}
	return sess, nil
}

func (s *AccountService) open(ctx context.Context, acc model.Account) (Session, error) {
	now := s.Clock.Now()
	access, err := utils.NewAccessToken(s.auth.JWTSecret, acc.ID, acc.Role, s.auth.AccessTTLMin, now)
	if err != nil {
		return Session{}, err
	}
	refresh, err := utils.NewRefreshToken(s.auth.RefreshTTLDays, now)
	if err != nil {
		return Session{}, err
	}
	if err := s.Repos.Tokens.StoreRefresh(ctx, acc.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, err
	}
	return Session{Account: acc, Access: access, Refresh: refresh}, nil
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// issued.
func (s *AccountService) Refresh(ctx context.Context, raw string) (Session, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(raw))
	id, err := s.Repos.Tokens.ValidateRefresh(ctx, hash, s.Clock.Now())
	if err != nil {
		return Session{}, mapNotFound(err, ErrInvalidCredentials)
	}
	if err := s.Repos.Tokens.RevokeByHash(ctx, hash); err != nil {
		return Session{}, err
	}
	acc, err := s.Repos.Accounts.GetByID(ctx, id)
	if err != nil {
		return Session{}, mapNotFound(err, ErrInvalidCredentials)
	}
	return s.open(ctx, acc)
}

// Logout revokes one refresh token, or every token of accountID when raw
// is empty.
func (s *AccountService) Logout(ctx context.Context, accountID uint64, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.Repos.Tokens.RevokeAllForAccount(ctx, accountID)
	}
	return s.Repos.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
}

// ChangePassword replaces the caller's password after verifying the old
// one, then signs out every other session.
func (s *AccountService) ChangePassword(ctx context.Context, accountID uint64, oldPassword, newPassword string) error {
	acc, err := s.Repos.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return mapNotFound(err, ErrAccountNotFound)
	}
	if !utils.VerifyPassword(acc.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	return s.setPassword(ctx, accountID, newPassword)
}

// ResetPassword sets the password of the account registered with phone.
// Only admins call it.
func (s *AccountService) ResetPassword(ctx context.Context, phone, newPassword string) error {
	acc, err := s.Repos.Accounts.GetByPhone(ctx, phone)
	if err != nil {
		return mapNotFound(err, ErrAccountNotFound)
	}
	return s.setPassword(ctx, acc.ID, newPassword)
}

func (s *AccountService) setPassword(ctx context.Context, accountID uint64, password string) error {
	hash, err := utils.HashPassword(password, s.auth.BcryptCost)
	if err != nil {
		if is(err, utils.ErrWeakPassword) {
			return Errorf(KindInvalidInput, "password must be at least %d characters", utils.MinPasswordLen)
		}
		return err
	}
	if err := s.Repos.Accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		return mapNotFound(err, ErrAccountNotFound)
	}
	s.Log.WithField("account_id", accountID).Info("password changed")
	return s.Repos.Tokens.RevokeAllForAccount(ctx, accountID)
}
