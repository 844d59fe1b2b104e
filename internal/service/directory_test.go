package service

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiffinbox/tiffin-service/internal/model"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

var detailCols = []string{"a.id", "a.name", "a.phone", "ui.balance", "ui.virtual_id", "ui.is_claimed", "ui.is_in_team",
	"ad.id", "ad.address", "t.id", "t.name", "l.id", "l.name", "l.phone"}

func one(v ...driver.Value) *sqlmock.Rows {
	cols := make([]string, len(v))
	for i := range cols {
		cols[i] = "c"
	}
	return sqlmock.NewRows(cols).AddRow(v...)
}

func TestTotalStaticsEarnings(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	for _, step := range []struct {
		pattern string
		rows    *sqlmock.Rows
	}{
		{"FROM orders WHERE delivery_date", one(10, 6, 3, 1)},
		{"FROM orders WHERE status='received'", one(120)},
		{"FROM orders WHERE status='received' AND delivery_date", one(40)},
		{"FROM expenses WHERE created_at", one(500)},
		{"FROM transactions WHERE date", one(1000)},
		{"FROM user_infos WHERE is_claimed", one(30, 9000)},
		{"FROM teams WHERE is_deleted", one(5, 12)},
		{"FROM transactions WHERE transaction_type", one(20000)},
		{"FROM transactions WHERE description IN", one(6000)},
		{"FROM expenses WHERE date", one(3000)},
		{"FROM expenses", one(9000)},
	} {
		mock.ExpectQuery(step.pattern).WillReturnRows(step.rows)
	}

	got, err := NewStaticsService(d).TotalStatics(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 6, got.DeliveredOrder)
	assert.EqualValues(t, 40*70, got.TotalEarningOfTheMonth)
	assert.EqualValues(t, 120*70+6000, got.TotalEarning)
	assert.EqualValues(t, 12, got.TotalDueBoxes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupplierStaticsUnknownSupplier(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectQuery("FROM supplier_infos WHERE account_id").WithArgs(uint64(12)).WillReturnError(noRows())

	_, err := NewStaticsService(d).SupplierStatics(context.Background(), 12)
	assert.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestUserInfoForLeaderCountsTodaysOrders(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectQuery("FROM user_infos ui").WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(detailCols).
			AddRow(7, "Karim", "017", 260, "TB-1", true, true, 2, "Gulshan", 3, "Alpha", 7, "Karim", "017"))
	mock.ExpectQuery("FROM teams WHERE leader_id").WithArgs(uint64(7)).WillReturnRows(teamRow(3, 2, 7, 4))
	mock.ExpectQuery("FROM orders WHERE team_id=\\? AND delivery_date=\\? AND status <> \\?").
		WithArgs(uint64(3), today, model.OrderCanceled).
		WillReturnRows(one(3))

	info, err := NewUserService(d).UserInfo(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, info.IsLeader)
	require.NotNil(t, info.TodayTeamOrders)
	assert.EqualValues(t, 3, *info.TodayTeamOrders)
	assert.EqualValues(t, 260, info.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserInfoForMember(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectQuery("FROM user_infos ui").
		WillReturnRows(sqlmock.NewRows(detailCols).
			AddRow(8, "Rahim", "018", 90, "TB-2", true, true, 2, "Gulshan", 3, "Alpha", 7, "Karim", "017"))
	mock.ExpectQuery("FROM teams WHERE leader_id").WillReturnError(noRows())

	info, err := NewUserService(d).UserInfo(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, info.IsLeader)
	assert.Nil(t, info.TodayTeamOrders)
}

func TestUserInfoUnclaimed(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectQuery("FROM user_infos ui").WillReturnError(noRows())

	_, err := NewUserService(d).UserInfo(context.Background(), 9)
	assert.ErrorIs(t, err, ErrUnclaimedUser)
}

func TestAddAddress(t *testing.T) {
	ctx := context.Background()

	t.Run("blank", func(t *testing.T) {
		d, _, _ := newDeps(t, morning)
		_, err := NewAdminService(d).AddAddress(ctx, "   ", nil)
		assert.True(t, KindOf(err) == KindInvalidInput)
	})

	t.Run("unknown supplier", func(t *testing.T) {
		d, mock, _ := newDeps(t, morning)
		mock.ExpectQuery("FROM supplier_infos WHERE account_id").WithArgs(uint64(12)).WillReturnError(noRows())
		sup := uint64(12)
		_, err := NewAdminService(d).AddAddress(ctx, "Gulshan 1", &sup)
		assert.ErrorIs(t, err, ErrSupplierNotFound)
	})

	t.Run("duplicate", func(t *testing.T) {
		d, mock, _ := newDeps(t, morning)
		mock.ExpectExec("INSERT INTO addresses").WithArgs("Gulshan 1", nil).WillReturnError(dupKey)
		_, err := NewAdminService(d).AddAddress(ctx, " Gulshan 1 ", nil)
		assert.ErrorIs(t, err, ErrAddressExists)
	})

	t.Run("created", func(t *testing.T) {
		d, mock, _ := newDeps(t, morning)
		mock.ExpectExec("INSERT INTO addresses").WillReturnResult(sqlmock.NewResult(4, 1))
		id, err := NewAdminService(d).AddAddress(ctx, "Banani 11", nil)
		require.NoError(t, err)
		assert.EqualValues(t, 4, id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUsersRejectsUnknownStatus(t *testing.T) {
	d, _, _ := newDeps(t, morning)
	_, _, err := NewAdminService(d).Users(context.Background(), "banned", repository.Filter{})
	assert.True(t, KindOf(err) == KindInvalidInput)
}

func TestUnclaimedUser(t *testing.T) {
	ctx := context.Background()

	t.Run("already claimed", func(t *testing.T) {
		d, mock, _ := newDeps(t, morning)
		mock.ExpectQuery("FROM accounts WHERE id").WillReturnRows(accountRow(7, model.RoleUser))
		mock.ExpectQuery("FROM user_infos WHERE account_id").WillReturnRows(membershipRow(7, 2, 3, 100, true, true))
		_, err := NewAdminService(d).UnclaimedUser(ctx, 7)
		assert.ErrorIs(t, err, ErrAccountAlreadyClaimed)
	})

	t.Run("never claimed", func(t *testing.T) {
		d, mock, _ := newDeps(t, morning)
		mock.ExpectQuery("FROM accounts WHERE id").WillReturnRows(accountRow(7, model.RoleUser))
		mock.ExpectQuery("FROM user_infos WHERE account_id").WillReturnError(noRows())
		acc, err := NewAdminService(d).UnclaimedUser(ctx, 7)
		require.NoError(t, err)
		assert.EqualValues(t, 7, acc.ID)
	})

	t.Run("unknown account", func(t *testing.T) {
		d, mock, _ := newDeps(t, morning)
		mock.ExpectQuery("FROM accounts WHERE id").WillReturnError(noRows())
		_, err := NewAdminService(d).UnclaimedUser(ctx, 70)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}
