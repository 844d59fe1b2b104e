package model

import "time"

// SupplierInfo holds contact details of an account promoted to supplier.
type SupplierInfo struct {
    ID        uint64    `json:"id"`         // supplier_infos.id
    AccountID uint64    `json:"account_id"` // supplier_infos.account_id
    Name      string    `json:"name"`       // supplier_infos.name
    ContactNo string    `json:"contact_no"` // supplier_infos.contact_no
    CreatedAt time.Time `json:"created_at"` // supplier_infos.created_at
}

// Expense is an operational cost entry, independent of user balances.
type Expense struct {
    ID          uint64    `json:"id"`           // expenses.id
    ProductName string    `json:"product_name"` // expenses.product_name
    Quantity    string    `json:"quantity"`     // expenses.quantity
    Amount      int64     `json:"amount"`       // expenses.amount
    Date        time.Time `json:"date"`         // expenses.date
    CreatedAt   time.Time `json:"created_at"`   // expenses.created_at
}
