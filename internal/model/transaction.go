package model

import "time"

// Transaction types.
const (
    TransactionDeposit = "deposit"
    TransactionRefund  = "refund"
)

// Transaction payout statuses.  Deposits taken by a supplier stay pending
// until the admin collects the cash from them.
const (
    TransactionPending = "pending"
    TransactionPaid    = "paid"
)

// Ledger descriptions written by the claim split and recharges.
const (
    DescTiffinBoxCost   = "Tiffin box cost"
    DescServiceFee      = "Service fee"
    DescBalanceRecharge = "Balance recharge"
)

// Transaction is an append-only ledger row.  Only Status is ever updated.
type Transaction struct {
    ID          uint64    `json:"id"`               // transactions.id
    UserID      uint64    `json:"user_id"`          // transactions.user_id
    ReceiverID  uint64    `json:"receiver_id"`      // transactions.receiver_id
    Amount      int64     `json:"amount"`           // transactions.amount
    Type        string    `json:"transaction_type"` // transactions.transaction_type
    Description string    `json:"description"`      // transactions.description
    Status      string    `json:"status"`           // transactions.status
    Date        time.Time `json:"date"`             // transactions.date
}
