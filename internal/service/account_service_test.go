package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiffinbox/tiffin-service/internal/model"
	"github.com/tiffinbox/tiffin-service/internal/utils"
)

var testAuth = AuthConfig{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}

func accountWithPassword(t *testing.T, id uint64, role, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, testAuth.BcryptCost)
	require.NoError(t, err)
	return sqlmock.NewRows(accountCols).AddRow(id, "01700000000", "Karim", hash, role, false, morning, morning)
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a session", func(t *testing.T) {
		d, mock, _ := newDeps(t, morning)
		mock.ExpectExec("INSERT INTO accounts").
			WithArgs("01700000000", "Karim", sqlmock.AnyArg(), model.RoleUser).
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectExec("INSERT INTO refresh_tokens").WithArgs(uint64(7), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		sess, err := NewAccountService(d, testAuth).SignUp(ctx, " 01700000000 ", "Karim", "secret1")
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, sess.Account.Role)

		assert.EqualValues(t, 7, sess.Account.ID)
		assert.NotEmpty(t, sess.Access.Token)
		assert.Equal(t, morning.Add(15*time.Minute).UTC(), sess.Access.Exp)
		assert.Equal(t, morning.AddDate(0, 0, 7).UTC(), sess.Refresh.Exp)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("phone taken", func(t *testing.T) {
		d, mock, _ := newDeps(t, morning)
		mock.ExpectExec("INSERT INTO accounts").WillReturnError(dupKey)
		_, err := NewAccountService(d, testAuth).SignUp(ctx, "01700000000", "Karim", "secret1")
		assert.ErrorIs(t, err, ErrPhoneExists)
	})

	t.Run("short password", func(t *testing.T) {
		d, _, _ := newDeps(t, morning)
		_, err := NewAccountService(d, testAuth).SignUp(ctx, "01700000000", "Karim", "abc")
		assert.Equal(t, KindInvalidInput, KindOf(err))
	})
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()

	d, mock, _ := newDeps(t, morning)
	mock.ExpectQuery("FROM accounts WHERE phone").WillReturnRows(accountWithPassword(t, 7, model.RoleUser, "secret1"))
	_, err := NewAccountService(d, testAuth).Login(ctx, "01700000000", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	d, mock, _ = newDeps(t, morning)
	mock.ExpectQuery("FROM accounts WHERE phone").WillReturnError(noRows())
	_, err = NewAccountService(d, testAuth).Login(ctx, "01799999999", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminLoginRefusesUsers(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectQuery("FROM accounts WHERE phone").WillReturnRows(accountWithPassword(t, 7, model.RoleUser, "secret1"))
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := NewAccountService(d, testAuth).AdminLogin(context.Background(), "01700000000", "secret1")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminLoginAcceptsSupplier(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectQuery("FROM accounts WHERE phone").WillReturnRows(accountWithPassword(t, 12, model.RoleSupplier, "secret1"))
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	sess, err := NewAccountService(d, testAuth).AdminLogin(context.Background(), "01700000000", "secret1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleSupplier, sess.Account.Role)
}

func TestRefreshUnknownToken(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash").WillReturnError(noRows())

	_, err := NewAccountService(d, testAuth).Refresh(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutWithoutTokenRevokesAll(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectExec("WHERE account_id=\\? AND revoked_at IS NULL").WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, NewAccountService(d, testAuth).Logout(context.Background(), 7, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}
