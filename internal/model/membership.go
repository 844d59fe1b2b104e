package model

import "time"

// Membership is the onboarding record of an account (the `user_infos`
// table).  It ties an account to a delivery address and a team and holds
// the prepaid balance.  A membership may exist as an unclaimed placeholder
// (created when a not yet onboarded account is made team leader) until an
// admin claims it with an initial deposit.
//
// Fields:
//  ID        – primary key identifier.
//  AccountID – owning account.
//  AddressID – delivery address.
//  TeamID    – team the member belongs to.
//  Balance   – prepaid balance in whole currency units, may go negative only
//              through admin corrections.
//  VirtualID – generated public identifier printed on boxes.
//  IsClaimed – whether the account has been onboarded with a deposit.
//  IsInTeam  – whether the membership currently counts as a team member.
type Membership struct {
    ID        uint64    `json:"id"`         // user_infos.id
    AccountID uint64    `json:"account_id"` // user_infos.account_id
    AddressID uint64    `json:"address_id"` // user_infos.address_id
    TeamID    uint64    `json:"team_id"`    // user_infos.team_id
    Balance   int64     `json:"balance"`    // user_infos.balance
    VirtualID string    `json:"virtual_id"` // user_infos.virtual_id
    IsClaimed bool      `json:"is_claimed"` // user_infos.is_claimed
    IsInTeam  bool      `json:"is_in_team"` // user_infos.is_in_team
    CreatedAt time.Time `json:"created_at"` // user_infos.created_at
    UpdatedAt time.Time `json:"updated_at"` // user_infos.updated_at
}

// Active reports whether the membership may place orders.
func (m Membership) Active() bool { return m.IsClaimed && m.IsInTeam }
