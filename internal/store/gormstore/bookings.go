package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawloft/daycare/internal/booking"
)

const (
	errorSubjectServiceType = "service_type"
	errorSubjectDog         = "dog"
	errorSubjectBooking     = "booking"
	errorSubjectAudit       = "audit"
)

func (store core) GetServiceType(ctx context.Context, serviceTypeID uuid.UUID) (booking.ServiceType, error) {
	var model ServiceType
	err := store.db.WithContext(ctx).
		Where("service_type_id = ?", serviceTypeID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.ServiceType{}, wrapStoreError(errorSubjectServiceType, errorCodeGet, booking.ErrServiceTypeNotFound)
		}
		return booking.ServiceType{}, wrapStoreError(errorSubjectServiceType, errorCodeGet, err)
	}
	return mapServiceType(model)
}

func (store core) GetDogs(ctx context.Context, dogIDs []uuid.UUID) ([]booking.Dog, error) {
	ids := make([]string, 0, len(dogIDs))
	for _, dogID := range dogIDs {
		ids = append(ids, dogID.String())
	}
	var rows []Dog
	err := store.db.WithContext(ctx).
		Where("dog_id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectDog, errorCodeList, err)
	}
	dogs := make([]booking.Dog, 0, len(rows))
	for _, row := range rows {
		dog, err := mapDog(row)
		if err != nil {
			return nil, err
		}
		dogs = append(dogs, dog)
	}
	return dogs, nil
}

// CountActiveDogs counts dogs on bookings whose span covers the date and
// whose status still occupies capacity. Called inside the booking-creation
// transaction so the admission decision sees committed state.
func (store core) CountActiveDogs(ctx context.Context, date booking.Date) (int, error) {
	statuses := make([]string, 0, len(booking.ActiveStatuses()))
	for _, status := range booking.ActiveStatuses() {
		statuses = append(statuses, status.String())
	}
	var count sqlCount
	err := store.db.WithContext(ctx).
		Model(&BookingDog{}).
		Select("count(*) as total").
		Joins("JOIN bookings ON bookings.booking_id = booking_dogs.booking_id").
		Where("bookings.status IN ?", statuses).
		Where("bookings.start_date <= ? AND bookings.end_date >= ?", date.String(), date.String()).
		Scan(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectBooking, errorCodeCount, err)
	}
	return int(count.Total), nil
}

func (store core) InsertBooking(ctx context.Context, record booking.Booking) error {
	model := Booking{
		BookingID:     record.BookingID.String(),
		CustomerID:    record.CustomerID.String(),
		ServiceTypeID: record.ServiceTypeID.String(),
		ServiceKind:   string(record.ServiceKind),
		StartDate:     record.StartDate.String(),
		EndDate:       record.EndDate.String(),
		Status:        record.Status.String(),
		TotalCents:    record.TotalCents,
		Notes:         record.Notes,
		CancelReason:  record.CancelReason,
		CreatedAt:     time.Unix(record.CreatedUnixUTC, 0).UTC(),
	}
	if record.CreatedUnixUTC == 0 {
		model.CreatedAt = time.Now().UTC()
	}
	for _, bookingDog := range record.Dogs {
		bookingDogID := bookingDog.BookingDogID
		if bookingDogID == uuid.Nil {
			bookingDogID = uuid.New()
		}
		model.Dogs = append(model.Dogs, BookingDog{
			BookingDogID:     bookingDogID.String(),
			BookingID:        record.BookingID.String(),
			DogID:            bookingDog.DogID.String(),
			ConditionRating:  bookingDog.ConditionRating,
			QuotedPriceCents: bookingDog.QuotedPriceCents,
		})
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeInsert, err)
	}
	return nil
}

func (store core) GetBooking(ctx context.Context, bookingID uuid.UUID) (booking.Booking, error) {
	var model Booking
	err := store.db.WithContext(ctx).
		Preload("Dogs").
		Where("booking_id = ?", bookingID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, booking.ErrBookingNotFound)
		}
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, err)
	}
	return mapBooking(model)
}

func (store core) ListBookingsByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]booking.Booking, error) {
	var rows []Booking
	err := store.db.WithContext(ctx).
		Preload("Dogs").
		Where("customer_id = ?", customerID.String()).
		Order("start_date DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return mapBookings(rows)
}

func (store core) ListBookingsOnDate(ctx context.Context, date booking.Date) ([]booking.Booking, error) {
	var rows []Booking
	err := store.db.WithContext(ctx).
		Preload("Dogs").
		Where("start_date <= ? AND end_date >= ?", date.String(), date.String()).
		Order("start_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return mapBookings(rows)
}

// UpdateBookingStatus is conditional on the current status so concurrent
// transitions cannot skip lifecycle states.
func (store core) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, from []booking.BookingStatus, to booking.BookingStatus, reason string) error {
	allowed := make([]string, 0, len(from))
	for _, status := range from {
		allowed = append(allowed, status.String())
	}
	updates := map[string]interface{}{"status": to.String()}
	if reason != "" {
		updates["cancel_reason"] = reason
	}
	result := store.db.WithContext(ctx).
		Model(&Booking{}).
		Where("booking_id = ? AND status IN ?", bookingID.String(), allowed).
		Updates(updates)
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeTransition, result.Error)
	}
	if result.RowsAffected == 0 {
		var count sqlCount
		err := store.db.WithContext(ctx).
			Model(&Booking{}).
			Select("count(*) as total").
			Where("booking_id = ?", bookingID.String()).
			Scan(&count).Error
		if err != nil {
			return wrapStoreError(errorSubjectBooking, errorCodeTransition, err)
		}
		if count.Total == 0 {
			return wrapStoreError(errorSubjectBooking, errorCodeTransition, booking.ErrBookingNotFound)
		}
		return wrapStoreError(errorSubjectBooking, errorCodeTransition, booking.ErrInvalidStatusTransition)
	}
	return nil
}

func (store core) UpdateBookingDogRating(ctx context.Context, bookingID uuid.UUID, dogID uuid.UUID, rating int, quotedPriceCents int64) error {
	result := store.db.WithContext(ctx).
		Model(&BookingDog{}).
		Where("booking_id = ? AND dog_id = ?", bookingID.String(), dogID.String()).
		Updates(map[string]interface{}{
			"condition_rating":   rating,
			"quoted_price_cents": quotedPriceCents,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeRatingSet, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeRatingSet, booking.ErrDogNotOnBooking)
	}
	return nil
}

func (store core) UpdateBookingTotal(ctx context.Context, bookingID uuid.UUID, totalCents int64) error {
	result := store.db.WithContext(ctx).
		Model(&Booking{}).
		Where("booking_id = ?", bookingID.String()).
		Update("total_cents", totalCents)
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdate, booking.ErrBookingNotFound)
	}
	return nil
}

func (store core) BookingHasPayment(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&PaymentBooking{}).
		Where("booking_id = ?", bookingID.String()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectBooking, errorCodeCount, err)
	}
	return count > 0, nil
}

func (store core) AppendAudit(ctx context.Context, record booking.AuditRecord) error {
	model := AuditLog{
		AuditID:    record.AuditID.String(),
		StaffID:    record.StaffID.String(),
		Action:     record.Action,
		EntityKind: record.EntityKind,
		EntityID:   record.EntityID.String(),
		Detail:     record.Detail,
		CreatedAt:  time.Unix(record.CreatedUnixUTC, 0).UTC(),
	}
	if record.AuditID == uuid.Nil {
		model.AuditID = uuid.NewString()
	}
	if record.CreatedUnixUTC == 0 {
		model.CreatedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectAudit, errorCodeInsert, err)
	}
	return nil
}

func mapServiceType(model ServiceType) (booking.ServiceType, error) {
	serviceTypeID, err := parseUUID(errorSubjectServiceType, model.ServiceTypeID)
	if err != nil {
		return booking.ServiceType{}, err
	}
	return booking.ServiceType{
		ServiceTypeID:     serviceTypeID,
		Kind:              booking.ServiceKind(model.Kind),
		DisplayName:       model.DisplayName,
		PerDogPerDayCents: model.PerDogPerDayCents,
		Active:            model.Active,
	}, nil
}

func mapDog(model Dog) (booking.Dog, error) {
	dogID, err := parseUUID(errorSubjectDog, model.DogID)
	if err != nil {
		return booking.Dog{}, err
	}
	ownerID, err := parseUUID(errorSubjectDog, model.OwnerID)
	if err != nil {
		return booking.Dog{}, err
	}
	return booking.Dog{
		DogID:   dogID,
		OwnerID: ownerID,
		Name:    model.Name,
		Size:    booking.SizeCategory(model.SizeCategory),
	}, nil
}

func mapBooking(model Booking) (booking.Booking, error) {
	bookingID, err := parseUUID(errorSubjectBooking, model.BookingID)
	if err != nil {
		return booking.Booking{}, err
	}
	customerID, err := parseUUID(errorSubjectBooking, model.CustomerID)
	if err != nil {
		return booking.Booking{}, err
	}
	serviceTypeID, err := parseUUID(errorSubjectBooking, model.ServiceTypeID)
	if err != nil {
		return booking.Booking{}, err
	}
	startDate, err := booking.NewDate(model.StartDate)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	endDate, err := booking.NewDate(model.EndDate)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	status, err := booking.ParseBookingStatus(model.Status)
	if err != nil {
		return booking.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	dogs := make([]booking.BookingDog, 0, len(model.Dogs))
	for _, row := range model.Dogs {
		bookingDogID, err := parseUUID(errorSubjectBooking, row.BookingDogID)
		if err != nil {
			return booking.Booking{}, err
		}
		dogID, err := parseUUID(errorSubjectBooking, row.DogID)
		if err != nil {
			return booking.Booking{}, err
		}
		dogs = append(dogs, booking.BookingDog{
			BookingDogID:     bookingDogID,
			BookingID:        bookingID,
			DogID:            dogID,
			ConditionRating:  row.ConditionRating,
			QuotedPriceCents: row.QuotedPriceCents,
		})
	}
	return booking.Booking{
		BookingID:      bookingID,
		CustomerID:     customerID,
		ServiceTypeID:  serviceTypeID,
		ServiceKind:    booking.ServiceKind(model.ServiceKind),
		StartDate:      startDate,
		EndDate:        endDate,
		Status:         status,
		TotalCents:     model.TotalCents,
		Notes:          model.Notes,
		CancelReason:   model.CancelReason,
		Dogs:           dogs,
		CreatedUnixUTC: model.CreatedAt.Unix(),
	}, nil
}

func mapBookings(rows []Booking) ([]booking.Booking, error) {
	bookings := make([]booking.Booking, 0, len(rows))
	for _, row := range rows {
		mapped, err := mapBooking(row)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, mapped)
	}
	return bookings, nil
}
