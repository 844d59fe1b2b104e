package model

import "time"

// Order statuses.
const (
    OrderPending  = "pending"
    OrderReceived = "received"
    OrderCanceled = "canceled"
)

// Pickup statuses track the physical box handoff of a delivered order.
const (
    PickupDisabled = "disabled"
    PickupEnable   = "enable"
    PickupReceived = "received"
)

// Order is one meal for one user on one delivery day.  DeliveryDate is
// always midnight UTC of the calendar day the meal is delivered on;
// (UserID, DeliveryDate) is unique.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – ordering account.
//  TeamID       – team of the user at order time.
//  SupplierID   – supplier serving the team's address, if any.
//  DeliveryDate – normalized delivery day.
//  Status       – pending, received or canceled.
//  PickupStatus – disabled, enable or received.
//  Price        – meal cost charged when the order was placed.
type Order struct {
    ID           uint64    `json:"id"`                    // orders.id
    UserID       uint64    `json:"user_id"`               // orders.user_id
    TeamID       uint64    `json:"team_id"`               // orders.team_id
    SupplierID   *uint64   `json:"supplier_id,omitempty"` // orders.supplier_id (nullable)
    DeliveryDate time.Time `json:"delivery_date"`         // orders.delivery_date
    Status       string    `json:"status"`                // orders.status
    PickupStatus string    `json:"pickup_status"`         // orders.pickup_status
    Price        int64     `json:"price"`                 // orders.price
    CreatedAt    time.Time `json:"created_at"`            // orders.created_at
    UpdatedAt    time.Time `json:"updated_at"`            // orders.updated_at
}
