package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawloft/daycare/internal/booking"
	"github.com/pawloft/daycare/internal/checkout"
)

const (
	errorSubjectPayment = "payment"
	errorSubjectReceipt = "receipt"
)

func (store core) FindPaymentByIdempotencyKey(ctx context.Context, customerID uuid.UUID, key string) (checkout.Payment, error) {
	var model Payment
	err := store.db.WithContext(ctx).
		Where("customer_id = ? AND idempotency_key = ?", customerID.String(), key).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return checkout.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, checkout.ErrPaymentNotFound)
		}
		return checkout.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, err)
	}
	return store.mapPayment(ctx, model)
}

// InsertPayment writes the payment row plus its booking join rows. A second
// insert under the same idempotency key loses on the unique index and is
// reported as ErrDuplicateIdempotencyKey for the caller to replay.
func (store core) InsertPayment(ctx context.Context, payment checkout.Payment) error {
	var idempotencyKey *string
	if payment.IdempotencyKey != "" {
		value := payment.IdempotencyKey
		idempotencyKey = &value
	}
	model := Payment{
		PaymentID:         payment.PaymentID.String(),
		CustomerID:        payment.CustomerID.String(),
		StaffID:           uuidPtrToString(payment.StaffID),
		Method:            string(payment.Method),
		Status:            string(payment.Status),
		TotalCents:        payment.TotalCents,
		WalletAmountCents: payment.WalletAmountCents,
		CardAmountCents:   payment.CardAmountCents,
		PointsRedeemed:    payment.PointsRedeemed,
		PointsAmountCents: payment.PointsAmountCents,
		TipCents:          payment.TipCents,
		PointsEarned:      payment.PointsEarned,
		PointsCapped:      payment.PointsCapped,
		IdempotencyKey:    idempotencyKey,
		TransactionID:     payment.TransactionID,
		CreatedAt:         time.Unix(payment.CreatedUnixUTC, 0).UTC(),
	}
	if payment.CreatedUnixUTC == 0 {
		model.CreatedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectPayment, errorCodeDuplicate, checkout.ErrDuplicateIdempotencyKey)
	}
	if err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeInsert, err)
	}
	for position, bookingID := range payment.BookingIDs {
		join := PaymentBooking{
			PaymentID: payment.PaymentID.String(),
			BookingID: bookingID.String(),
			Position:  position,
		}
		if err := store.db.WithContext(ctx).Create(&join).Error; err != nil {
			return wrapStoreError(errorSubjectPayment, errorCodeInsert, err)
		}
	}
	return nil
}

func (store core) GetPayment(ctx context.Context, paymentID uuid.UUID) (checkout.Payment, error) {
	var model Payment
	err := store.db.WithContext(ctx).
		Where("payment_id = ?", paymentID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return checkout.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, checkout.ErrPaymentNotFound)
		}
		return checkout.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, err)
	}
	return store.mapPayment(ctx, model)
}

func (store core) GetBookingsForPayment(ctx context.Context, bookingIDs []uuid.UUID) ([]booking.Booking, error) {
	ids := make([]string, 0, len(bookingIDs))
	for _, bookingID := range bookingIDs {
		ids = append(ids, bookingID.String())
	}
	var rows []Booking
	err := store.db.WithContext(ctx).
		Preload("Dogs").
		Where("booking_id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return mapBookings(rows)
}

// ConfirmBookings settles the paid bookings. Eligibility was decided by the
// caller earlier in the same transaction.
func (store core) ConfirmBookings(ctx context.Context, bookingIDs []uuid.UUID) error {
	ids := make([]string, 0, len(bookingIDs))
	for _, bookingID := range bookingIDs {
		ids = append(ids, bookingID.String())
	}
	result := store.db.WithContext(ctx).
		Model(&Booking{}).
		Where("booking_id IN ? AND status = ?", ids, booking.StatusPending.String()).
		Update("status", booking.StatusConfirmed.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeTransition, result.Error)
	}
	return nil
}

func (store core) LoadReceipt(ctx context.Context, paymentID uuid.UUID) (checkout.Receipt, error) {
	payment, err := store.GetPayment(ctx, paymentID)
	if err != nil {
		return checkout.Receipt{}, err
	}
	bookings, err := store.GetBookingsForPayment(ctx, payment.BookingIDs)
	if err != nil {
		return checkout.Receipt{}, err
	}
	byID := make(map[uuid.UUID]booking.Booking, len(bookings))
	for _, row := range bookings {
		byID[row.BookingID] = row
	}
	lines := make([]checkout.ReceiptLine, 0, len(payment.BookingIDs))
	for _, bookingID := range payment.BookingIDs {
		row, present := byID[bookingID]
		if !present {
			return checkout.Receipt{}, wrapStoreError(errorSubjectReceipt, errorCodeGet, booking.ErrBookingNotFound)
		}
		serviceType, err := store.GetServiceType(ctx, row.ServiceTypeID)
		if err != nil {
			return checkout.Receipt{}, err
		}
		dogIDs := make([]uuid.UUID, 0, len(row.Dogs))
		for _, bookingDog := range row.Dogs {
			dogIDs = append(dogIDs, bookingDog.DogID)
		}
		dogs, err := store.GetDogs(ctx, dogIDs)
		if err != nil {
			return checkout.Receipt{}, err
		}
		dogNames := make([]string, 0, len(dogs))
		for _, dog := range dogs {
			dogNames = append(dogNames, dog.Name)
		}
		lines = append(lines, checkout.ReceiptLine{
			BookingID:   bookingID,
			ServiceName: serviceType.DisplayName,
			StartDate:   row.StartDate.String(),
			EndDate:     row.EndDate.String(),
			DogNames:    dogNames,
			TotalCents:  row.TotalCents,
		})
	}
	return checkout.Receipt{Payment: payment, Lines: lines}, nil
}

func (store core) mapPayment(ctx context.Context, model Payment) (checkout.Payment, error) {
	paymentID, err := parseUUID(errorSubjectPayment, model.PaymentID)
	if err != nil {
		return checkout.Payment{}, err
	}
	customerID, err := parseUUID(errorSubjectPayment, model.CustomerID)
	if err != nil {
		return checkout.Payment{}, err
	}
	staffID, err := stringPtrToUUID(errorSubjectPayment, model.StaffID)
	if err != nil {
		return checkout.Payment{}, err
	}
	method, err := checkout.ParsePaymentMethod(model.Method)
	if err != nil {
		return checkout.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	var joins []PaymentBooking
	err = store.db.WithContext(ctx).
		Where("payment_id = ?", model.PaymentID).
		Order("position ASC").
		Find(&joins).Error
	if err != nil {
		return checkout.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeList, err)
	}
	bookingIDs := make([]uuid.UUID, 0, len(joins))
	for _, join := range joins {
		bookingID, err := parseUUID(errorSubjectPayment, join.BookingID)
		if err != nil {
			return checkout.Payment{}, err
		}
		bookingIDs = append(bookingIDs, bookingID)
	}
	idempotencyKey := ""
	if model.IdempotencyKey != nil {
		idempotencyKey = *model.IdempotencyKey
	}
	return checkout.Payment{
		PaymentID:         paymentID,
		CustomerID:        customerID,
		StaffID:           staffID,
		Method:            method,
		Status:            checkout.PaymentStatus(model.Status),
		TotalCents:        model.TotalCents,
		WalletAmountCents: model.WalletAmountCents,
		CardAmountCents:   model.CardAmountCents,
		PointsRedeemed:    model.PointsRedeemed,
		PointsAmountCents: model.PointsAmountCents,
		TipCents:          model.TipCents,
		PointsEarned:      model.PointsEarned,
		PointsCapped:      model.PointsCapped,
		IdempotencyKey:    idempotencyKey,
		TransactionID:     model.TransactionID,
		BookingIDs:        bookingIDs,
		CreatedUnixUTC:    model.CreatedAt.Unix(),
	}, nil
}
