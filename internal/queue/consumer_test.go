package queue

import (
    "os"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/tiffinbox/tiffin-service/internal/logger"
)

func TestFormatLineSkipsZeroFields(t *testing.T) {
    line := FormatLine(LedgerEvent{
        Type:         EventOrderPlaced,
        UserID:       4,
        OrderID:      19,
        Amount:       70,
        DeliveryDate: "2024-05-02T00:00:00.000Z",
        OccurredAt:   "2024-05-02T00:10:00Z",
    })
    assert.Equal(t, "[2024-05-02T00:10:00Z] OrderPlaced | user_id=4 | order_id=19 | amount=70 | delivery_date=2024-05-02T00:00:00.000Z\n", line)
}

func TestHandleAppendsToLedgerLog(t *testing.T) {
    dir := t.TempDir()
    c := LedgerConsumer{Dir: dir, Log: logger.Discard()}

    require.NoError(t, c.Handle([]byte(`{"type":"BalanceRecharged","user_id":3,"actor_id":1,"amount":500,"occurred_at":"t1"}`)))
    require.NoError(t, c.Handle([]byte(`{"type":"OrdersDelivered","team_id":2,"count":6,"occurred_at":"t2"}`)))

    b, err := os.ReadFile(filepath.Join(dir, "ledger.log"))
    require.NoError(t, err)
    assert.Equal(t,
        "[t1] BalanceRecharged | user_id=3 | actor_id=1 | amount=500\n"+
            "[t2] OrdersDelivered | team_id=2 | count=6\n",
        string(b))
}

func TestHandleRejectsGarbage(t *testing.T) {
    c := LedgerConsumer{Dir: t.TempDir(), Log: logger.Discard()}
    assert.Error(t, c.Handle([]byte("not json")))
    assert.Error(t, c.Handle([]byte(`{"amount":5}`)))
}
