package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawloft/daycare/pkg/identity"
)

const (
	auditEntityBooking = "booking"

	// DefaultDailyCapacity is the facility-wide dog cap shared by every
	// service type using the same physical space.
	DefaultDailyCapacity = 40
)

// Service implements availability math and the booking lifecycle over a Store.
type Service struct {
	store         Store
	dailyCapacity int
	nowFn         func() int64
	logger        *zap.Logger
}

// NewService wires a Service. A nil logger disables operation logging.
func NewService(store Store, dailyCapacity int, now func() int64, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	if dailyCapacity <= 0 {
		dailyCapacity = DefaultDailyCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, dailyCapacity: dailyCapacity, nowFn: now, logger: logger}, nil
}

// CheckAvailability computes remaining capacity per date in the range. The
// result is advisory; CreateBooking re-validates inside its transaction.
func (service *Service) CheckAvailability(ctx context.Context, serviceTypeID uuid.UUID, startDate Date, endDate Date) ([]DayAvailability, error) {
	if err := validateRange(startDate, endDate); err != nil {
		return nil, err
	}
	serviceType, err := service.store.GetServiceType(ctx, serviceTypeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidServiceType, err)
	}
	if !serviceType.Active {
		return nil, fmt.Errorf("%w: %s is inactive", ErrInvalidServiceType, serviceType.DisplayName)
	}

	var days []DayAvailability
	for date := startDate; !date.After(endDate); date = date.Next() {
		booked, err := service.store.CountActiveDogs(ctx, date)
		if err != nil {
			return nil, err
		}
		remaining := service.dailyCapacity - booked
		if remaining < 0 {
			remaining = 0
		}
		days = append(days, DayAvailability{
			Date:           date,
			Available:      remaining > 0,
			SpotsRemaining: remaining,
			TotalCapacity:  service.dailyCapacity,
		})
	}
	return days, nil
}

// CreateBooking validates ownership, service type, and capacity, then creates
// one booking row spanning the requested range. Capacity is re-counted inside
// the transaction so two concurrent creations cannot jointly exceed the cap.
// Staff-created bookings start confirmed; customer-created ones start pending.
func (service *Service) CreateBooking(ctx context.Context, actor identity.Actor, input CreateInput) (Booking, error) {
	if len(input.DogIDs) == 0 {
		return Booking{}, ErrNoDogs
	}
	if err := validateRange(input.StartDate, input.EndDate); err != nil {
		return Booking{}, err
	}
	if !actor.IsStaff() && actor.ID != input.CustomerID {
		return Booking{}, ErrNotBookingOwner
	}

	var created Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		serviceType, err := tx.GetServiceType(ctx, input.ServiceTypeID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidServiceType, err)
		}
		if !serviceType.Active {
			return fmt.Errorf("%w: %s is inactive", ErrInvalidServiceType, serviceType.DisplayName)
		}

		dogs, err := tx.GetDogs(ctx, input.DogIDs)
		if err != nil {
			return err
		}
		if len(dogs) != len(input.DogIDs) {
			return fmt.Errorf("%w: %d of %d dogs found", ErrDogNotFound, len(dogs), len(input.DogIDs))
		}
		for _, dog := range dogs {
			if dog.OwnerID != input.CustomerID {
				return fmt.Errorf("%w: dog %s", ErrInvalidDogOwnership, dog.DogID)
			}
		}

		for date := input.StartDate; !date.After(input.EndDate); date = date.Next() {
			booked, err := tx.CountActiveDogs(ctx, date)
			if err != nil {
				return err
			}
			if booked+len(dogs) > service.dailyCapacity {
				return fmt.Errorf("%w: %d spots remaining on %s, %d requested",
					ErrCapacityExceeded, service.dailyCapacity-booked, date, len(dogs))
			}
		}

		status := StatusPending
		if actor.IsStaff() {
			status = StatusConfirmed
		}
		booking := Booking{
			BookingID:      uuid.New(),
			CustomerID:     input.CustomerID,
			ServiceTypeID:  serviceType.ServiceTypeID,
			ServiceKind:    serviceType.Kind,
			StartDate:      input.StartDate,
			EndDate:        input.EndDate,
			Status:         status,
			TotalCents:     priceAtCreation(serviceType, len(dogs), input.StartDate.Days(input.EndDate)),
			Notes:          input.Notes,
			CreatedUnixUTC: service.nowFn(),
		}
		for _, dog := range dogs {
			booking.Dogs = append(booking.Dogs, BookingDog{
				BookingDogID: uuid.New(),
				BookingID:    booking.BookingID,
				DogID:        dog.DogID,
			})
		}
		if err := tx.InsertBooking(ctx, booking); err != nil {
			return err
		}
		created = booking
		return nil
	})
	if operationError != nil {
		service.logger.Warn("booking creation failed",
			zap.String("customer_id", input.CustomerID.String()),
			zap.Error(operationError))
		return Booking{}, operationError
	}
	service.logger.Info("booking created",
		zap.String("booking_id", created.BookingID.String()),
		zap.String("customer_id", created.CustomerID.String()),
		zap.String("status", created.Status.String()),
		zap.Int64("total_cents", created.TotalCents))
	return created, nil
}

// GetBooking fetches one booking; customers may only read their own.
func (service *Service) GetBooking(ctx context.Context, actor identity.Actor, bookingID uuid.UUID) (Booking, error) {
	booking, err := service.store.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if !actor.IsStaff() && booking.CustomerID != actor.ID {
		return Booking{}, ErrNotBookingOwner
	}
	return booking, nil
}

// ListCustomerBookings lists a customer's bookings, newest first.
func (service *Service) ListCustomerBookings(ctx context.Context, actor identity.Actor, customerID uuid.UUID, limit int) ([]Booking, error) {
	if !actor.IsStaff() && actor.ID != customerID {
		return nil, ErrNotBookingOwner
	}
	return service.store.ListBookingsByCustomer(ctx, customerID, limit)
}

// Schedule lists every booking covering the given date.
func (service *Service) Schedule(ctx context.Context, date Date) ([]Booking, error) {
	if date.IsZero() {
		return nil, ErrInvalidDate
	}
	return service.store.ListBookingsOnDate(ctx, date)
}

// Confirm marks a pending booking confirmed without payment (staff only).
func (service *Service) Confirm(ctx context.Context, actor identity.Actor, bookingID uuid.UUID) error {
	return service.transition(ctx, actor, bookingID, []BookingStatus{StatusPending}, StatusConfirmed, "", true)
}

// CheckIn marks a confirmed booking as arrived (staff only).
func (service *Service) CheckIn(ctx context.Context, actor identity.Actor, bookingID uuid.UUID) error {
	return service.transition(ctx, actor, bookingID, []BookingStatus{StatusConfirmed}, StatusCheckedIn, "", true)
}

// CheckOut marks a checked-in booking as departed (staff only).
func (service *Service) CheckOut(ctx context.Context, actor identity.Actor, bookingID uuid.UUID) error {
	return service.transition(ctx, actor, bookingID, []BookingStatus{StatusCheckedIn}, StatusCheckedOut, "", true)
}

// Cancel moves a pending or confirmed booking to the terminal cancelled
// state. Customers may cancel their own bookings; staff may cancel any.
func (service *Service) Cancel(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, reason string) error {
	return service.transition(ctx, actor, bookingID, []BookingStatus{StatusPending, StatusConfirmed}, StatusCancelled, reason, false)
}

// NoShow marks a booking whose customer never arrived (staff only).
func (service *Service) NoShow(ctx context.Context, actor identity.Actor, bookingID uuid.UUID) error {
	return service.transition(ctx, actor, bookingID, []BookingStatus{StatusPending, StatusConfirmed}, StatusNoShow, "", true)
}

func (service *Service) transition(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, from []BookingStatus, to BookingStatus, reason string, staffOnly bool) error {
	if staffOnly && !actor.IsStaff() {
		return ErrStaffOnly
	}
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		booking, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !actor.IsStaff() && booking.CustomerID != actor.ID {
			return ErrNotBookingOwner
		}
		if err := tx.UpdateBookingStatus(ctx, bookingID, from, to, reason); err != nil {
			return err
		}
		if staffID := actor.StaffID(); staffID != nil {
			return tx.AppendAudit(ctx, AuditRecord{
				AuditID:        uuid.New(),
				StaffID:        *staffID,
				Action:         "status:" + to.String(),
				EntityKind:     auditEntityBooking,
				EntityID:       bookingID,
				Detail:         reason,
				CreatedUnixUTC: service.nowFn(),
			})
		}
		return nil
	})
	if operationError != nil {
		return operationError
	}
	service.logger.Info("booking status changed",
		zap.String("booking_id", bookingID.String()),
		zap.String("status", to.String()))
	return nil
}

// RateDog records a grooming condition rating for one dog on a booking and
// quotes its price from the size x condition matrix. Once every dog on the
// booking carries a quote the booking total is recomputed. Totals are only
// mutable before payment, so rating is rejected after checkout.
func (service *Service) RateDog(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, dogID uuid.UUID, rating int) (Booking, error) {
	if !actor.IsStaff() {
		return Booking{}, ErrStaffOnly
	}
	var rated Booking
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		booking, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.ServiceKind != ServiceGrooming {
			return fmt.Errorf("%w: condition ratings apply to grooming bookings", ErrInvalidServiceType)
		}
		if !booking.Status.EligibleForPayment() {
			return fmt.Errorf("%w: booking is %s", ErrInvalidStatusTransition, booking.Status)
		}
		// Lifecycle status alone is not enough: checkout confirms the
		// booking, so the paid state is what freezes the total.
		paid, err := tx.BookingHasPayment(ctx, bookingID)
		if err != nil {
			return err
		}
		if paid {
			return fmt.Errorf("%w: totals are immutable after payment", ErrBookingAlreadyPaid)
		}
		onBooking := false
		for _, bookingDog := range booking.Dogs {
			if bookingDog.DogID == dogID {
				onBooking = true
				break
			}
		}
		if !onBooking {
			return fmt.Errorf("%w: dog %s", ErrDogNotOnBooking, dogID)
		}
		dogs, err := tx.GetDogs(ctx, []uuid.UUID{dogID})
		if err != nil {
			return err
		}
		if len(dogs) != 1 {
			return fmt.Errorf("%w: dog %s", ErrDogNotFound, dogID)
		}
		quote, err := GroomingPriceCents(dogs[0].Size, rating)
		if err != nil {
			return err
		}
		if err := tx.UpdateBookingDogRating(ctx, bookingID, dogID, rating, quote); err != nil {
			return err
		}
		booking, err = tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if total, allRated := groomingTotal(booking.Dogs); allRated {
			if err := tx.UpdateBookingTotal(ctx, bookingID, total); err != nil {
				return err
			}
			booking.TotalCents = total
		}
		rated = booking
		return tx.AppendAudit(ctx, AuditRecord{
			AuditID:        uuid.New(),
			StaffID:        actor.ID,
			Action:         "rate_dog",
			EntityKind:     auditEntityBooking,
			EntityID:       bookingID,
			Detail:         fmt.Sprintf("dog %s rated %d", dogID, rating),
			CreatedUnixUTC: service.nowFn(),
		})
	})
	if operationError != nil {
		return Booking{}, operationError
	}
	return rated, nil
}

func validateRange(startDate Date, endDate Date) error {
	if startDate.IsZero() || endDate.IsZero() {
		return ErrInvalidDate
	}
	if startDate.After(endDate) {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidDateRange, startDate, endDate)
	}
	return nil
}
