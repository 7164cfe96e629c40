package booking

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/pawloft/daycare/pkg/identity"
)

type stubStore struct {
	serviceTypes map[uuid.UUID]ServiceType
	dogs         map[uuid.UUID]Dog
	bookings     map[uuid.UUID]*Booking
	paid         map[uuid.UUID]bool
	audits       []AuditRecord
}

func newStubStore() *stubStore {
	return &stubStore{
		serviceTypes: map[uuid.UUID]ServiceType{},
		dogs:         map[uuid.UUID]Dog{},
		bookings:     map[uuid.UUID]*Booking{},
		paid:         map[uuid.UUID]bool{},
	}
}

func (store *stubStore) addServiceType(kind ServiceKind, perDayCents int64, active bool) ServiceType {
	serviceType := ServiceType{
		ServiceTypeID:     uuid.New(),
		Kind:              kind,
		DisplayName:       string(kind),
		PerDogPerDayCents: perDayCents,
		Active:            active,
	}
	store.serviceTypes[serviceType.ServiceTypeID] = serviceType
	return serviceType
}

func (store *stubStore) addDog(ownerID uuid.UUID, size SizeCategory) Dog {
	dog := Dog{DogID: uuid.New(), OwnerID: ownerID, Name: "dog", Size: size}
	store.dogs[dog.DogID] = dog
	return dog
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, store)
}

func (store *stubStore) GetServiceType(_ context.Context, serviceTypeID uuid.UUID) (ServiceType, error) {
	serviceType, ok := store.serviceTypes[serviceTypeID]
	if !ok {
		return ServiceType{}, ErrServiceTypeNotFound
	}
	return serviceType, nil
}

func (store *stubStore) GetDogs(_ context.Context, dogIDs []uuid.UUID) ([]Dog, error) {
	var dogs []Dog
	for _, dogID := range dogIDs {
		if dog, ok := store.dogs[dogID]; ok {
			dogs = append(dogs, dog)
		}
	}
	return dogs, nil
}

func (store *stubStore) CountActiveDogs(_ context.Context, date Date) (int, error) {
	count := 0
	for _, booking := range store.bookings {
		if booking.Status.CountsTowardCapacity() && booking.Covers(date) {
			count += len(booking.Dogs)
		}
	}
	return count, nil
}

func (store *stubStore) InsertBooking(_ context.Context, booking Booking) error {
	copied := booking
	store.bookings[booking.BookingID] = &copied
	return nil
}

func (store *stubStore) GetBooking(_ context.Context, bookingID uuid.UUID) (Booking, error) {
	booking, ok := store.bookings[bookingID]
	if !ok {
		return Booking{}, ErrBookingNotFound
	}
	return *booking, nil
}

func (store *stubStore) ListBookingsByCustomer(_ context.Context, customerID uuid.UUID, limit int) ([]Booking, error) {
	var bookings []Booking
	for _, booking := range store.bookings {
		if booking.CustomerID == customerID {
			bookings = append(bookings, *booking)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedUnixUTC > bookings[j].CreatedUnixUTC
	})
	if limit > 0 && len(bookings) > limit {
		bookings = bookings[:limit]
	}
	return bookings, nil
}

func (store *stubStore) ListBookingsOnDate(_ context.Context, date Date) ([]Booking, error) {
	var bookings []Booking
	for _, booking := range store.bookings {
		if booking.Covers(date) {
			bookings = append(bookings, *booking)
		}
	}
	return bookings, nil
}

func (store *stubStore) UpdateBookingStatus(_ context.Context, bookingID uuid.UUID, from []BookingStatus, to BookingStatus, reason string) error {
	booking, ok := store.bookings[bookingID]
	if !ok {
		return ErrBookingNotFound
	}
	for _, status := range from {
		if booking.Status == status {
			booking.Status = to
			booking.CancelReason = reason
			return nil
		}
	}
	return ErrInvalidStatusTransition
}

func (store *stubStore) UpdateBookingDogRating(_ context.Context, bookingID uuid.UUID, dogID uuid.UUID, rating int, quotedPriceCents int64) error {
	booking, ok := store.bookings[bookingID]
	if !ok {
		return ErrBookingNotFound
	}
	for index := range booking.Dogs {
		if booking.Dogs[index].DogID == dogID {
			ratingCopy := rating
			quoteCopy := quotedPriceCents
			booking.Dogs[index].ConditionRating = &ratingCopy
			booking.Dogs[index].QuotedPriceCents = &quoteCopy
			return nil
		}
	}
	return ErrDogNotOnBooking
}

func (store *stubStore) UpdateBookingTotal(_ context.Context, bookingID uuid.UUID, totalCents int64) error {
	booking, ok := store.bookings[bookingID]
	if !ok {
		return ErrBookingNotFound
	}
	booking.TotalCents = totalCents
	return nil
}

func (store *stubStore) BookingHasPayment(_ context.Context, bookingID uuid.UUID) (bool, error) {
	return store.paid[bookingID], nil
}

func (store *stubStore) AppendAudit(_ context.Context, record AuditRecord) error {
	store.audits = append(store.audits, record)
	return nil
}

func mustNewService(test *testing.T, store Store, dailyCapacity int) *Service {
	test.Helper()
	service, err := NewService(store, dailyCapacity, func() int64 { return 1_700_000_000 }, nil)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustDate(test *testing.T, raw string) Date {
	test.Helper()
	date, err := NewDate(raw)
	if err != nil {
		test.Fatalf("date %q: %v", raw, err)
	}
	return date
}

func customerActor(test *testing.T, id uuid.UUID) identity.Actor {
	test.Helper()
	actor, err := identity.NewCustomerActor(id)
	if err != nil {
		test.Fatalf("customer actor: %v", err)
	}
	return actor
}

func staffActor(test *testing.T) identity.Actor {
	test.Helper()
	actor, err := identity.NewStaffActor(uuid.New())
	if err != nil {
		test.Fatalf("staff actor: %v", err)
	}
	return actor
}
