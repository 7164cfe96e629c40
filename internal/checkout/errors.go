package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Domain-level error values returned by the checkout engine.
var (
	ErrBookingsNotEligible     = errors.New("bookings not eligible for payment")
	ErrBookingsNotPriced       = errors.New("bookings not priced yet")
	ErrSplitAmountInvalid      = errors.New("split requires a wallet or points contribution")
	ErrUnknownPaymentMethod    = errors.New("unknown payment method")
	ErrNoBookings              = errors.New("checkout requires at least one booking")
	ErrInvalidTip              = errors.New("tip must not be negative")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrNotPaymentOwner         = errors.New("payment belongs to another customer")
	ErrInvalidServiceConfig    = errors.New("invalid service config")
)

// NotEligibleError names the offending booking IDs behind ErrBookingsNotEligible.
type NotEligibleError struct {
	BookingIDs []uuid.UUID
}

// Error lists the ineligible bookings.
func (notEligible NotEligibleError) Error() string {
	ids := make([]string, 0, len(notEligible.BookingIDs))
	for _, id := range notEligible.BookingIDs {
		ids = append(ids, id.String())
	}
	return fmt.Sprintf("bookings not eligible for payment: %s", strings.Join(ids, ", "))
}

// Is matches the ErrBookingsNotEligible sentinel.
func (NotEligibleError) Is(target error) bool {
	return target == ErrBookingsNotEligible
}

// NotPricedError names the grooming bookings still awaiting condition
// ratings behind ErrBookingsNotPriced.
type NotPricedError struct {
	BookingIDs []uuid.UUID
}

// Error lists the unpriced bookings.
func (notPriced NotPricedError) Error() string {
	ids := make([]string, 0, len(notPriced.BookingIDs))
	for _, id := range notPriced.BookingIDs {
		ids = append(ids, id.String())
	}
	return fmt.Sprintf("bookings not priced yet: %s", strings.Join(ids, ", "))
}

// Is matches the ErrBookingsNotPriced sentinel.
func (NotPricedError) Is(target error) bool {
	return target == ErrBookingsNotPriced
}
