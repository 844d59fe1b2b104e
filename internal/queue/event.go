// Package queue defines message payloads exchanged over the message broker.
package queue

// LedgerQueue is the durable queue every ledger event is published to.
const LedgerQueue = "ledger.events"

// Ledger event types.
const (
    EventOrderPlaced      = "OrderPlaced"
    EventOrderCanceled    = "OrderCanceled"
    EventOrderReplaced    = "OrderReplaced"
    EventOrdersDelivered  = "OrdersDelivered"
    EventBoxesPicked      = "BoxesPicked"
    EventBalanceRecharged = "BalanceRecharged"
    EventBalanceRefunded  = "BalanceRefunded"
    EventUserClaimed      = "UserClaimed"
)

// LedgerEvent is published after a balance or order mutation commits.  It
// carries enough context for downstream consumers to audit the change
// without querying the primary database.  Fields that do not apply to a
// type are left zero.
type LedgerEvent struct {
    Type         string `json:"type"`
    UserID       uint64 `json:"user_id,omitempty"`
    ActorID      uint64 `json:"actor_id,omitempty"`
    OrderID      uint64 `json:"order_id,omitempty"`
    TeamID       uint64 `json:"team_id,omitempty"`
    Amount       int64  `json:"amount,omitempty"`
    Count        int64  `json:"count,omitempty"`
    DeliveryDate string `json:"delivery_date,omitempty"`
    OccurredAt   string `json:"occurred_at"`
}
