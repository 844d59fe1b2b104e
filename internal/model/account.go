package model

import "time"

// Role names stored in accounts.role and carried in the JWT "role" claim.
const (
    RoleUser     = "user"
    RoleAdmin    = "admin"
    RoleSupplier = "supplier"
)

// Account represents a row in the `accounts` table.  Every person that
// can sign in has exactly one account; the phone number is the login
// identifier and is unique.  Accounts are soft deleted.
//
// Fields:
//  ID           – primary key identifier.
//  Phone        – unique phone number used to log in.
//  Name         – display name.
//  PasswordHash – bcrypt hashed password.
//  Role         – user, admin or supplier.
//  IsDeleted    – soft delete flag.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Account struct {
    ID           uint64    `json:"id"`         // accounts.id
    Phone        string    `json:"phone"`      // accounts.phone
    Name         string    `json:"name"`       // accounts.name
    PasswordHash string    `json:"-"`          // accounts.password_hash
    Role         string    `json:"role"`       // accounts.role
    IsDeleted    bool      `json:"is_deleted"` // accounts.is_deleted
    CreatedAt    time.Time `json:"created_at"` // accounts.created_at
    UpdatedAt    time.Time `json:"updated_at"` // accounts.updated_at
}

