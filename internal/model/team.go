package model

import "time"

// Team groups members sharing a delivery address under one leader.
// Member and DueBoxes are maintained counters, not aggregates.
type Team struct {
    ID        uint64    `json:"id"`         // teams.id
    Name      string    `json:"name"`       // teams.name (unique, case-insensitive)
    AddressID uint64    `json:"address_id"` // teams.address_id
    LeaderID  uint64    `json:"leader_id"`  // teams.leader_id (unique)
    Member    int       `json:"member"`     // teams.member
    DueBoxes  int       `json:"due_boxes"`  // teams.due_boxes
    IsDeleted bool      `json:"is_deleted"` // teams.is_deleted
    CreatedAt time.Time `json:"created_at"` // teams.created_at
    UpdatedAt time.Time `json:"updated_at"` // teams.updated_at
}

// Address is a delivery spot.  SupplierID is the account id of the
// supplier serving it, when one is assigned.
type Address struct {
    ID         uint64    `json:"id"`                    // addresses.id
    Address    string    `json:"address"`               // addresses.address
    SupplierID *uint64   `json:"supplier_id,omitempty"` // addresses.supplier_id (nullable)
    CreatedAt  time.Time `json:"created_at"`            // addresses.created_at
}
