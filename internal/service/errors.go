package service

import (
	"errors"
	"fmt"
)

// Kind is the stable name of a failure surfaced to callers.
type Kind string

const (
	KindUnclaimedUser           Kind = "UnclaimedUser"
	KindInvalidDeliveryDate     Kind = "InvalidDeliveryDate"
	KindInvalidDeliveryForToday Kind = "InvalidDeliveryForToday"
	KindInsufficientBalance     Kind = "InsufficientBalance"
	KindOrderAlreadyExists      Kind = "OrderAlreadyExists"
	KindOrderNotFound           Kind = "OrderNotFound"
	KindOrderDatePassed         Kind = "OrderDatePassed"
	KindTodayOrderDatePassed    Kind = "TodayOrderDatePassed"
	KindInvalidOrder            Kind = "InvalidOrder"
	KindTeamNotFound            Kind = "TeamNotFound"
	KindAddressNotFound         Kind = "AddressNotFound"
	KindLeaderAlreadyLeading    Kind = "LeaderAlreadyLeadingTeam"
	KindDuplicateTeamName       Kind = "DuplicateTeamName"
	KindAddressMismatch         Kind = "AddressMismatch"
	KindAccountAlreadyClaimed   Kind = "AccountAlreadyClaimed"
	KindRefundExceedsBalance    Kind = "RefundExceedsBalance"
	KindPersistenceFailure      Kind = "PersistenceFailure"

	KindAccountNotFound     Kind = "AccountNotFound"
	KindMembershipNotFound  Kind = "MembershipNotFound"
	KindLeaderNotFound      Kind = "LeaderNotFound"
	KindNotTeamMember       Kind = "NotTeamMember"
	KindSupplierExists      Kind = "SupplierExists"
	KindSupplierNotFound    Kind = "SupplierNotFound"
	KindAddressExists       Kind = "AddressExists"
	KindInvalidCredentials  Kind = "InvalidCredentials"
	KindPhoneExists         Kind = "PhoneExists"
	KindMinimumClaimBalance Kind = "MinimumClaimBalance"
	KindInvalidInput        Kind = "InvalidInput"
	KindForbidden           Kind = "Forbidden"
)

// Error is a typed business failure.  Two errors match under errors.Is when
// their kinds are equal, so callers compare against the Err* values even
// when the message was customised.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Errorf returns an error of kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrUnclaimedUser           = &Error{KindUnclaimedUser, "user is not claimed or not in a team"}
	ErrInvalidDeliveryDate     = &Error{KindInvalidDeliveryDate, "delivery date cannot be in the past"}
	ErrInvalidDeliveryForToday = &Error{KindInvalidDeliveryForToday, "orders for today must be placed before the cutoff"}
	ErrInsufficientBalance     = &Error{KindInsufficientBalance, "insufficient balance"}
	ErrOrderAlreadyExists      = &Error{KindOrderAlreadyExists, "an order already exists for this date"}
	ErrOrderNotFound           = &Error{KindOrderNotFound, "order not found"}
	ErrOrderDatePassed         = &Error{KindOrderDatePassed, "order date has already passed"}
	ErrTodayOrderDatePassed    = &Error{KindTodayOrderDatePassed, "today's order can no longer be changed"}
	ErrInvalidOrder            = &Error{KindInvalidOrder, "no matching order found"}
	ErrTeamNotFound            = &Error{KindTeamNotFound, "team not found"}
	ErrAddressNotFound         = &Error{KindAddressNotFound, "address not found"}
	ErrLeaderAlreadyLeading    = &Error{KindLeaderAlreadyLeading, "leader already leads a team"}
	ErrDuplicateTeamName       = &Error{KindDuplicateTeamName, "team name already exists"}
	ErrAddressMismatch         = &Error{KindAddressMismatch, "address does not match the team's address"}
	ErrAccountAlreadyClaimed   = &Error{KindAccountAlreadyClaimed, "account is already claimed"}
	ErrRefundExceedsBalance    = &Error{KindRefundExceedsBalance, "refund amount exceeds balance"}
	ErrPersistence             = &Error{KindPersistenceFailure, "failed to persist changes"}

	ErrAccountNotFound     = &Error{KindAccountNotFound, "account not found"}
	ErrMembershipNotFound  = &Error{KindMembershipNotFound, "user info not found"}
	ErrLeaderNotFound      = &Error{KindLeaderNotFound, "leader not found"}
	ErrNotTeamMember       = &Error{KindNotTeamMember, "account is not a member of this team"}
	ErrSupplierExists      = &Error{KindSupplierExists, "supplier already exists"}
	ErrSupplierNotFound    = &Error{KindSupplierNotFound, "supplier not found"}
	ErrAddressExists       = &Error{KindAddressExists, "address already exists"}
	ErrInvalidCredentials  = &Error{KindInvalidCredentials, "invalid phone or password"}
	ErrPhoneExists         = &Error{KindPhoneExists, "phone already registered"}
	ErrMinimumClaimBalance = &Error{KindMinimumClaimBalance, "balance does not cover the box cost and service fee"}
	ErrInvalidInput        = &Error{KindInvalidInput, "invalid input"}
	ErrForbidden           = &Error{KindForbidden, "forbidden"}
)

// KindOf returns the kind of the first *Error in err's chain.  Anything
// else is reported as a persistence failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistenceFailure
}
