package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/tiffinbox/tiffin-service/internal/clock"
	"github.com/tiffinbox/tiffin-service/internal/config"
	"github.com/tiffinbox/tiffin-service/internal/logger"
	"github.com/tiffinbox/tiffin-service/internal/queue"
)

// recorder is an EventPublisher that keeps what it was given.
type recorder struct {
	mu     sync.Mutex
	events []queue.LedgerEvent
	err    error
}

func (r *recorder) Publish(_ context.Context, ev queue.LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

var testPricing = config.PricingConfig{
	MealCost:        70,
	TiffinBoxCost:   150,
	ServiceFee:      50,
	MinClaimBalance: 200,
	Cutoff:          6*time.Hour + 30*time.Minute,
}

// morning is 06:00 local on 2024-05-02, before the cutoff.
var morning = time.Date(2024, 5, 2, 6, 0, 0, 0, dhaka)

var today = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

func newDeps(t *testing.T, now time.Time) (Deps, sqlmock.Sqlmock, *recorder) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	rec := &recorder{}
	return Deps{
		DB:      db,
		Repos:   NewRepos(db),
		Clock:   clock.Fixed(now),
		Pricing: testPricing,
		Events:  rec,
		Log:     logger.Discard(),
	}, mock, rec
}

var (
	membershipCols = []string{"id", "account_id", "address_id", "team_id", "balance", "virtual_id",
		"is_claimed", "is_in_team", "created_at", "updated_at"}
	teamCols    = []string{"id", "name", "address_id", "leader_id", "member", "due_boxes", "is_deleted", "created_at", "updated_at"}
	addressCols = []string{"id", "address", "supplier_id", "created_at"}
	orderCols   = []string{"id", "user_id", "team_id", "supplier_id", "delivery_date", "status", "pickup_status", "price",
		"created_at", "updated_at"}
	accountCols = []string{"id", "phone", "name", "password_hash", "role", "is_deleted", "created_at", "updated_at"}
)

func membershipRow(accountID, addressID, teamID uint64, balance int64, claimed, inTeam bool) *sqlmock.Rows {
	return sqlmock.NewRows(membershipCols).
		AddRow(accountID+100, accountID, addressID, teamID, balance, "TB-TEST", claimed, inTeam, morning, morning)
}

func teamRow(id, addressID, leaderID uint64, member int) *sqlmock.Rows {
	return sqlmock.NewRows(teamCols).AddRow(id, "Team", addressID, leaderID, member, 0, false, morning, morning)
}

func addressRow(id uint64, supplierID any) *sqlmock.Rows {
	return sqlmock.NewRows(addressCols).AddRow(id, "Gulshan 1", supplierID, morning)
}

func orderRow(id, userID uint64, day time.Time, status string, price int64) *sqlmock.Rows {
	return sqlmock.NewRows(orderCols).AddRow(id, userID, 3, nil, day, status, "disabled", price, morning, morning)
}

func accountRow(id uint64, role string) *sqlmock.Rows {
	return sqlmock.NewRows(accountCols).AddRow(id, "0170000000", "Karim", "hash", role, false, morning, morning)
}

var errBoom = errors.New("boom")

var dupKey = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

func noRows() error { return sql.ErrNoRows }
