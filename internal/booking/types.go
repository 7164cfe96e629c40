package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Date is a calendar day in ISO YYYY-MM-DD form, the unit of capacity.
type Date struct {
	value time.Time
}

// NewDate parses an ISO date string.
func NewDate(raw string) (Date, error) {
	parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return Date{value: parsed}, nil
}

// DateOf truncates a time to its UTC calendar day.
func DateOf(at time.Time) Date {
	at = at.UTC()
	return Date{value: time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)}
}

// String returns the ISO form.
func (date Date) String() string {
	return date.value.Format(dateLayout)
}

// IsZero reports whether the date is unset.
func (date Date) IsZero() bool {
	return date.value.IsZero()
}

// Next returns the following day.
func (date Date) Next() Date {
	return Date{value: date.value.AddDate(0, 0, 1)}
}

// After reports whether date falls after other.
func (date Date) After(other Date) bool {
	return date.value.After(other.value)
}

// Days returns the inclusive day count from date through end.
func (date Date) Days(end Date) int {
	return int(end.value.Sub(date.value)/(24*time.Hour)) + 1
}

// ServiceKind enumerates the offered services.
type ServiceKind string

const (
	ServiceDaycare  ServiceKind = "daycare"
	ServiceBoarding ServiceKind = "boarding"
	ServiceGrooming ServiceKind = "grooming"
)

// ServiceType is immutable reference data describing one offered service.
type ServiceType struct {
	ServiceTypeID     uuid.UUID
	Kind              ServiceKind
	DisplayName       string
	PerDogPerDayCents int64
	Active            bool
}

// SizeCategory buckets dogs for grooming pricing.
type SizeCategory string

const (
	SizeSmall  SizeCategory = "small"
	SizeMedium SizeCategory = "medium"
	SizeLarge  SizeCategory = "large"
)

// Dog is a customer's dog.
type Dog struct {
	DogID   uuid.UUID
	OwnerID uuid.UUID
	Name    string
	Size    SizeCategory
}

// BookingStatus is the booking lifecycle state.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusCheckedIn  BookingStatus = "checked_in"
	StatusCheckedOut BookingStatus = "checked_out"
	StatusCancelled  BookingStatus = "cancelled"
	StatusNoShow     BookingStatus = "no_show"
)

// String returns the stored representation.
func (status BookingStatus) String() string {
	return string(status)
}

// ParseBookingStatus validates a stored status.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	switch BookingStatus(raw) {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled, StatusNoShow:
		return BookingStatus(raw), nil
	}
	return "", fmt.Errorf("unknown booking status %q", raw)
}

// CountsTowardCapacity reports whether bookings in this status occupy spots.
func (status BookingStatus) CountsTowardCapacity() bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
		return true
	}
	return false
}

// EligibleForPayment reports whether a booking in this status can be checked out.
func (status BookingStatus) EligibleForPayment() bool {
	return status == StatusPending || status == StatusConfirmed
}

// Terminal reports whether the status is immutable.
func (status BookingStatus) Terminal() bool {
	switch status {
	case StatusCheckedOut, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// ActiveStatuses are the statuses counted by the availability calculator.
func ActiveStatuses() []BookingStatus {
	return []BookingStatus{StatusPending, StatusConfirmed, StatusCheckedIn}
}

// BookingDog joins a dog onto a booking, optionally carrying the staff-rated
// coat condition and the quoted grooming price derived from it.
type BookingDog struct {
	BookingDogID     uuid.UUID
	BookingID        uuid.UUID
	DogID            uuid.UUID
	ConditionRating  *int
	QuotedPriceCents *int64
}

// Booking spans one or more consecutive days for one customer. A single-day
// booking has StartDate == EndDate; a multi-day span is one row, not one per
// day.
type Booking struct {
	BookingID      uuid.UUID
	CustomerID     uuid.UUID
	ServiceTypeID  uuid.UUID
	ServiceKind    ServiceKind
	StartDate      Date
	EndDate        Date
	Status         BookingStatus
	TotalCents     int64
	Notes          string
	CancelReason   string
	Dogs           []BookingDog
	CreatedUnixUTC int64
}

// Covers reports whether the booking's span contains the given day.
func (booking Booking) Covers(date Date) bool {
	return !booking.StartDate.After(date) && !date.After(booking.EndDate)
}

// DayAvailability is the advisory capacity view for one date.
type DayAvailability struct {
	Date           Date
	Available      bool
	SpotsRemaining int
	TotalCapacity  int
}

// CreateInput is the normalized booking-creation request, validated once at
// the boundary and never re-interpreted downstream.
type CreateInput struct {
	CustomerID    uuid.UUID
	ServiceTypeID uuid.UUID
	DogIDs        []uuid.UUID
	StartDate     Date
	EndDate       Date
	Notes         string
}

// AuditRecord captures a staff-initiated state change.
type AuditRecord struct {
	AuditID        uuid.UUID
	StaffID        uuid.UUID
	Action         string
	EntityKind     string
	EntityID       uuid.UUID
	Detail         string
	CreatedUnixUTC int64
}

// Store is the persistence contract for bookings and their reference data.
// Mutating methods run inside WithTx; UpdateBookingStatus is conditional on
// the current status so concurrent transitions cannot skip states.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	GetServiceType(ctx context.Context, serviceTypeID uuid.UUID) (ServiceType, error)
	GetDogs(ctx context.Context, dogIDs []uuid.UUID) ([]Dog, error)

	CountActiveDogs(ctx context.Context, date Date) (int, error)
	InsertBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, bookingID uuid.UUID) (Booking, error)
	ListBookingsByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]Booking, error)
	ListBookingsOnDate(ctx context.Context, date Date) ([]Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, from []BookingStatus, to BookingStatus, reason string) error
	UpdateBookingDogRating(ctx context.Context, bookingID uuid.UUID, dogID uuid.UUID, rating int, quotedPriceCents int64) error
	UpdateBookingTotal(ctx context.Context, bookingID uuid.UUID, totalCents int64) error
	BookingHasPayment(ctx context.Context, bookingID uuid.UUID) (bool, error)

	AppendAudit(ctx context.Context, record AuditRecord) error
}
