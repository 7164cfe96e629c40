package booking

import "errors"

// Domain-level error values returned by the booking service. All are local,
// recoverable failures surfaced to the caller.
var (
	ErrCapacityExceeded        = errors.New("capacity exceeded")
	ErrInvalidServiceType      = errors.New("invalid service type")
	ErrInvalidDogOwnership     = errors.New("invalid dog ownership")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrServiceTypeNotFound     = errors.New("service type not found")
	ErrDogNotFound             = errors.New("dog not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidDate             = errors.New("invalid date")
	ErrInvalidDateRange        = errors.New("invalid date range")
	ErrNoDogs                  = errors.New("booking requires at least one dog")
	ErrInvalidConditionRating  = errors.New("invalid condition rating")
	ErrDogNotOnBooking         = errors.New("dog not on booking")
	ErrBookingAlreadyPaid      = errors.New("booking already paid")
	ErrStaffOnly               = errors.New("staff-only operation")
	ErrNotBookingOwner         = errors.New("booking belongs to another customer")
	ErrInvalidServiceConfig    = errors.New("invalid service config")
)
