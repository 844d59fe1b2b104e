package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiffinbox/tiffin-service/internal/model"
	"github.com/tiffinbox/tiffin-service/internal/queue"
	"github.com/tiffinbox/tiffin-service/internal/repository"
)

func expectPlace(mock sqlmock.Sqlmock, userID uint64, balance int64) {
	mock.ExpectQuery("FROM user_infos WHERE account_id").WithArgs(userID).
		WillReturnRows(membershipRow(userID, 2, 3, balance, true, true))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM orders WHERE user_id").WithArgs(userID, today).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("FROM teams WHERE id").WithArgs(uint64(3)).WillReturnRows(teamRow(3, 2, 50, 4))
	mock.ExpectQuery("FROM addresses WHERE id").WithArgs(uint64(2)).WillReturnRows(addressRow(2, 12))
}

func TestPlaceThenCancelRestoresBalance(t *testing.T) {
	d, mock, rec := newDeps(t, morning)
	svc := NewOrderService(d)
	ctx := context.Background()

	expectPlace(mock, 7, 200)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(uint64(7), uint64(3), uint64(12), today, model.OrderPending, model.PickupDisabled, int64(70)).
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec("UPDATE user_infos SET balance = balance - \\?").
		WithArgs(int64(70), uint64(7), int64(70)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	date, err := svc.PlaceOrder(ctx, 7, today.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02T00:00:00.000Z", date)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id=\\? AND user_id=\\? AND status=\\?").
		WithArgs(uint64(55), uint64(7), model.OrderPending).
		WillReturnRows(orderRow(55, 7, today, model.OrderPending, 70))
	mock.ExpectExec("UPDATE orders SET status=\\?, price=\\?").
		WithArgs(model.OrderCanceled, int64(70), uint64(55), model.OrderPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE user_infos SET balance = balance \\+ \\?").
		WithArgs(int64(70), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.CancelOrder(ctx, 55, 7))
	require.NoError(t, mock.ExpectationsWereMet())

	require.Equal(t, []string{queue.EventOrderPlaced, queue.EventOrderCanceled}, rec.types())
	balance := int64(200) - rec.events[0].Amount
	assert.EqualValues(t, 130, balance)
	balance += rec.events[1].Amount
	assert.EqualValues(t, 200, balance)
}

func TestPlaceOrderCutoffBoundary(t *testing.T) {
	for _, tc := range []struct {
		now  time.Time
		want error
	}{
		{time.Date(2024, 5, 2, 6, 29, 59, 0, dhaka), nil},
		{time.Date(2024, 5, 2, 6, 30, 0, 0, dhaka), ErrInvalidDeliveryForToday},
	} {
		d, mock, _ := newDeps(t, tc.now)
		mock.ExpectQuery("FROM user_infos").WillReturnRows(membershipRow(7, 2, 3, 200, true, true))
		if tc.want == nil {
			mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM orders").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
			mock.ExpectQuery("FROM teams").WillReturnRows(teamRow(3, 2, 50, 4))
			mock.ExpectQuery("FROM addresses").WillReturnRows(addressRow(2, nil))
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectExec("UPDATE user_infos").WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()
		}
		_, err := NewOrderService(d).PlaceOrder(context.Background(), 7, today)
		if tc.want == nil {
			assert.NoError(t, err, tc.now)
		} else {
			assert.ErrorIs(t, err, tc.want, tc.now)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestPlaceOrderPreconditionsInOrder(t *testing.T) {
	ctx := context.Background()

	d, mock, _ := newDeps(t, morning)
	mock.ExpectQuery("FROM user_infos").WillReturnError(noRows())
	_, err := NewOrderService(d).PlaceOrder(ctx, 7, today)
	assert.ErrorIs(t, err, ErrUnclaimedUser)

	d, mock, _ = newDeps(t, morning)
	mock.ExpectQuery("FROM user_infos").WillReturnRows(membershipRow(7, 2, 3, 500, false, true))
	_, err = NewOrderService(d).PlaceOrder(ctx, 7, today)
	assert.ErrorIs(t, err, ErrUnclaimedUser)

	// An unclaimed user asking for yesterday still gets UnclaimedUser.
	d, mock, _ = newDeps(t, morning)
	mock.ExpectQuery("FROM user_infos").WillReturnRows(membershipRow(7, 2, 3, 500, true, false))
	_, err = NewOrderService(d).PlaceOrder(ctx, 7, today.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrUnclaimedUser)

	d, mock, _ = newDeps(t, morning)
	mock.ExpectQuery("FROM user_infos").WillReturnRows(membershipRow(7, 2, 3, 10, true, true))
	_, err = NewOrderService(d).PlaceOrder(ctx, 7, today.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidDeliveryDate)

	d, mock, _ = newDeps(t, morning)
	mock.ExpectQuery("FROM user_infos").WillReturnRows(membershipRow(7, 2, 3, 69, true, true))
	_, err = NewOrderService(d).PlaceOrder(ctx, 7, today)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderDuplicate(t *testing.T) {
	ctx := context.Background()

	d, mock, _ := newDeps(t, morning)
	mock.ExpectQuery("FROM user_infos").WillReturnRows(membershipRow(7, 2, 3, 200, true, true))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM orders").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	_, err := NewOrderService(d).PlaceOrder(ctx, 7, today.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrOrderAlreadyExists)

	// A concurrent insert that wins the race surfaces as the unique key.
	d, mock, rec := newDeps(t, morning)
	expectPlace(mock, 7, 200)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnError(dupKey)
	mock.ExpectRollback()
	_, err = NewOrderService(d).PlaceOrder(ctx, 7, today)
	assert.ErrorIs(t, err, ErrOrderAlreadyExists)
	assert.Empty(t, rec.types())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderDebitRaceRollsBack(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	expectPlace(mock, 7, 70)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("UPDATE user_infos SET balance = balance -").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM user_infos WHERE account_id").WillReturnRows(membershipRow(7, 2, 3, 20, true, true))
	mock.ExpectRollback()

	_, err := NewOrderService(d).PlaceOrder(context.Background(), 7, today)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAfterCutoffRollsBack(t *testing.T) {
	d, mock, rec := newDeps(t, time.Date(2024, 5, 2, 6, 30, 0, 0, dhaka))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id").WillReturnRows(orderRow(55, 7, today, model.OrderPending, 70))
	mock.ExpectRollback()

	err := NewOrderService(d).CancelOrder(context.Background(), 55, 7)
	assert.ErrorIs(t, err, ErrTodayOrderDatePassed)
	assert.Empty(t, rec.types())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelPastOrder(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id").WillReturnRows(orderRow(55, 7, today.AddDate(0, 0, -1), model.OrderPending, 70))
	mock.ExpectRollback()

	err := NewOrderService(d).CancelOrder(context.Background(), 55, 7)
	assert.ErrorIs(t, err, ErrOrderDatePassed)
}

func TestCancelMissingOrder(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id").WillReturnError(noRows())
	mock.ExpectRollback()

	err := NewOrderService(d).CancelOrder(context.Background(), 55, 7)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceChargesMealCost(t *testing.T) {
	d, mock, rec := newDeps(t, morning)
	tomorrow := today.AddDate(0, 0, 1)
	mock.ExpectQuery("FROM user_infos").WillReturnRows(membershipRow(7, 2, 3, 130, true, true))
	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id").WithArgs(uint64(55), uint64(7), model.OrderCanceled).
		WillReturnRows(orderRow(55, 7, tomorrow, model.OrderCanceled, 60))
	mock.ExpectExec("UPDATE orders SET status=").
		WithArgs(model.OrderPending, int64(70), uint64(55), model.OrderCanceled).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE user_infos SET balance = balance -").
		WithArgs(int64(70), uint64(7), int64(70)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewOrderService(d).UpdateOrder(context.Background(), 55, 7))
	assert.Equal(t, []string{queue.EventOrderReplaced}, rec.types())
	assert.EqualValues(t, 70, rec.events[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRequiresActiveMember(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectQuery("FROM user_infos").WillReturnRows(membershipRow(7, 2, 3, 130, true, false))

	err := NewOrderService(d).UpdateOrder(context.Background(), 55, 7)
	assert.ErrorIs(t, err, ErrUnclaimedUser)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverOrder(t *testing.T) {
	d, mock, rec := newDeps(t, morning)
	sup := uint64(12)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM orders WHERE team_id").
		WithArgs(uint64(3), model.OrderPending, today, sup).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	mock.ExpectExec("UPDATE orders SET status=\\?, pickup_status=\\?").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	n, err := NewOrderService(d).DeliverOrder(context.Background(), 3, &sup, sup)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.Equal(t, []string{queue.EventOrdersDelivered}, rec.types())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverAndPickWithNothingPending(t *testing.T) {
	d, mock, _ := newDeps(t, morning)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM orders").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectRollback()
	_, err := NewOrderService(d).DeliverOrder(context.Background(), 3, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM orders WHERE team_id=\\? AND pickup_status").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectRollback()
	_, err = NewOrderService(d).PickBoxes(context.Background(), 3, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupByTeam(t *testing.T) {
	rows := []repository.DayOrderRow{
		{OrderID: 1, TeamID: 3, TeamName: "Alpha", DeliveryDate: today, UserName: "A"},
		{OrderID: 2, TeamID: 3, TeamName: "Alpha", DeliveryDate: today, UserName: "B"},
		{OrderID: 3, TeamID: 8, TeamName: "Beta", DeliveryDate: today, UserName: "C"},
	}
	got := GroupByTeam(rows)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].OrderCount)
	assert.Equal(t, "2024-05-02T00:00:00.000Z", got[0].DeliveryDate)
	assert.Equal(t, "Beta", got[1].TeamName)
	assert.Equal(t, 1, got[1].OrderCount)
	assert.Empty(t, GroupByTeam(nil))
}
