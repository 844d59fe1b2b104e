package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiffinbox/tiffin-service/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var dupErr = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithTx(context.Background(), db, func(tx *sql.Tx) error { return boom })
	assert.Same(t, boom, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxCommits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE teams").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		return NewTeamRepo(db).AdjustMemberTx(context.Background(), tx, 4, 1)
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderCreateDuplicateIsConflict(t *testing.T) {
	db, mock := newMock(t)
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(uint64(9), uint64(3), nil, day, model.OrderPending, model.PickupDisabled, int64(70)).
		WillReturnError(dupErr)

	_, err := NewOrderRepo(db).CreateTx(context.Background(), db, model.Order{
		UserID: 9, TeamID: 3, DeliveryDate: day, Price: 70,
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderDeliverScopesBySupplier(t *testing.T) {
	db, mock := newMock(t)
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	sup := uint64(12)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=?, pickup_status=? WHERE team_id=? AND status=? AND delivery_date=? AND supplier_id=?")).
		WithArgs(model.OrderReceived, model.PickupEnable, uint64(3), model.OrderPending, day, sup).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := NewOrderRepo(db).DeliverTx(context.Background(), db, 3, &sup, day)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderSetStatusRequiresCurrentStatus(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=?, price=? WHERE id=? AND status=?")).
		WithArgs(model.OrderCanceled, int64(70), uint64(5), model.OrderPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewOrderRepo(db).SetStatusTx(context.Background(), db, 5, model.OrderPending, model.OrderCanceled, 70)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDebitIfCoveredDistinguishesLowBalance(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE user_infos SET balance = balance -").
		WithArgs(int64(150), uint64(8), int64(150)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .* FROM user_infos WHERE account_id=").
		WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "address_id", "team_id", "balance", "virtual_id",
			"is_claimed", "is_in_team", "created_at", "updated_at"}).
			AddRow(1, 8, 2, 3, 100, "TB-1", true, true, time.Now(), time.Now()))

	err := NewMembershipRepo(db).DebitIfCoveredTx(context.Background(), db, 8, 150)
	assert.ErrorIs(t, err, ErrConflict)

	mock.ExpectExec("UPDATE user_infos SET balance = balance -").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .* FROM user_infos").WillReturnError(sql.ErrNoRows)
	err = NewMembershipRepo(db).DebitIfCoveredTx(context.Background(), db, 8, 150)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCreateDuplicatePhone(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs("01700000000", "Rahim", "hash", model.RoleUser).
		WillReturnError(dupErr)

	_, err := NewAccountRepo(db).Create(context.Background(), " 01700000000 ", "Rahim", "hash", model.RoleUser)
	assert.ErrorIs(t, err, ErrPhoneExists)
}

func TestTeamDrift(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("HAVING t.member <> COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "member", "count"}).AddRow(1, 5, 4).AddRow(7, 0, 2))

	drift, err := NewTeamRepo(db).Drift(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []MemberDrift{{TeamID: 1, Stored: 5, Actual: 4}, {TeamID: 7, Stored: 0, Actual: 2}}, drift)
}

func TestMarkReceiverPaid(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM transactions").
		WithArgs(uint64(12), model.TransactionPending).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(900))
	mock.ExpectExec("UPDATE transactions SET status=").
		WithArgs(model.TransactionPaid, uint64(12), model.TransactionPending).
		WillReturnResult(sqlmock.NewResult(0, 3))

	sum, err := NewTransactionRepo(db).MarkReceiverPaidTx(context.Background(), db, 12)
	require.NoError(t, err)
	assert.EqualValues(t, 900, sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}
