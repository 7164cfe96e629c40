package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/pawloft/daycare/internal/booking"
	"github.com/pawloft/daycare/pkg/identity"
	"github.com/pawloft/daycare/pkg/ledger"
)

// ledgerStub is a minimal in-memory ledger.Store for checkout tests.
type ledgerStub struct {
	wallets            map[uuid.UUID]int64
	points             map[uuid.UUID]int64
	walletTransactions []ledger.WalletTransaction
	pointsTransactions []ledger.PointsTransaction
}

func (stub *ledgerStub) WithTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Store) error) error {
	return fn(ctx, stub)
}

func (stub *ledgerStub) GetWallet(_ context.Context, customerID uuid.UUID) (ledger.Wallet, error) {
	balance, ok := stub.wallets[customerID]
	if !ok {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	return ledger.Wallet{CustomerID: customerID, BalanceCents: ledger.AmountCents(balance), Tier: ledger.TierStandard}, nil
}

func (stub *ledgerStub) DebitWallet(_ context.Context, customerID uuid.UUID, amountCents int64) (int64, error) {
	if stub.wallets[customerID] < amountCents {
		return 0, ledger.ErrInsufficientWalletBalance
	}
	stub.wallets[customerID] -= amountCents
	return stub.wallets[customerID], nil
}

func (stub *ledgerStub) CreditWallet(_ context.Context, customerID uuid.UUID, amountCents int64) (int64, error) {
	stub.wallets[customerID] += amountCents
	return stub.wallets[customerID], nil
}

func (stub *ledgerStub) AppendWalletTransaction(_ context.Context, transaction ledger.WalletTransaction) error {
	stub.walletTransactions = append(stub.walletTransactions, transaction)
	return nil
}

func (stub *ledgerStub) SumWalletLoads(_ context.Context, _ uuid.UUID, _ int64, _ int64) (int64, error) {
	return 0, nil
}

func (stub *ledgerStub) ListWalletTransactions(_ context.Context, _ uuid.UUID, _ int) ([]ledger.WalletTransaction, error) {
	return stub.walletTransactions, nil
}

func (stub *ledgerStub) GetPointsBalance(_ context.Context, customerID uuid.UUID) (int64, error) {
	return stub.points[customerID], nil
}

func (stub *ledgerStub) DebitPoints(_ context.Context, customerID uuid.UUID, amount int64) (int64, error) {
	if stub.points[customerID] < amount {
		return 0, ledger.ErrInsufficientPoints
	}
	stub.points[customerID] -= amount
	return stub.points[customerID], nil
}

func (stub *ledgerStub) CreditPoints(_ context.Context, customerID uuid.UUID, amount int64) (int64, error) {
	stub.points[customerID] += amount
	return stub.points[customerID], nil
}

func (stub *ledgerStub) AppendPointsTransaction(_ context.Context, transaction ledger.PointsTransaction) error {
	stub.pointsTransactions = append(stub.pointsTransactions, transaction)
	return nil
}

func (stub *ledgerStub) ListPointsTransactions(_ context.Context, _ uuid.UUID, _ int) ([]ledger.PointsTransaction, error) {
	return stub.pointsTransactions, nil
}

func (stub *ledgerStub) AppendWalletAudit(_ context.Context, _ ledger.AuditRecord) error {
	return nil
}

// stubStore is an in-memory checkout.Store.
type stubStore struct {
	ledgerStub *ledgerStub
	payments   map[uuid.UUID]Payment
	bookings   map[uuid.UUID]*booking.Booking
	audits     []booking.AuditRecord
}

func newStubStore() *stubStore {
	return &stubStore{
		ledgerStub: &ledgerStub{wallets: map[uuid.UUID]int64{}, points: map[uuid.UUID]int64{}},
		payments:   map[uuid.UUID]Payment{},
		bookings:   map[uuid.UUID]*booking.Booking{},
	}
}

func (store *stubStore) addBooking(customerID uuid.UUID, kind booking.ServiceKind, status booking.BookingStatus, totalCents int64) uuid.UUID {
	bookingID := uuid.New()
	store.bookings[bookingID] = &booking.Booking{
		BookingID:   bookingID,
		CustomerID:  customerID,
		ServiceKind: kind,
		Status:      status,
		TotalCents:  totalCents,
	}
	return bookingID
}

func (store *stubStore) addUnratedGroomingBooking(customerID uuid.UUID) uuid.UUID {
	bookingID := store.addBooking(customerID, booking.ServiceGrooming, booking.StatusPending, 0)
	record := store.bookings[bookingID]
	record.Dogs = []booking.BookingDog{{
		BookingDogID: uuid.New(),
		BookingID:    bookingID,
		DogID:        uuid.New(),
	}}
	return bookingID
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, store)
}

func (store *stubStore) Ledger() ledger.Store {
	return store.ledgerStub
}

func (store *stubStore) FindPaymentByIdempotencyKey(_ context.Context, customerID uuid.UUID, key string) (Payment, error) {
	for _, payment := range store.payments {
		if payment.CustomerID == customerID && payment.IdempotencyKey == key {
			return payment, nil
		}
	}
	return Payment{}, ErrPaymentNotFound
}

func (store *stubStore) InsertPayment(_ context.Context, payment Payment) error {
	if payment.IdempotencyKey != "" {
		for _, existing := range store.payments {
			if existing.IdempotencyKey == payment.IdempotencyKey {
				return ErrDuplicateIdempotencyKey
			}
		}
	}
	store.payments[payment.PaymentID] = payment
	return nil
}

func (store *stubStore) GetPayment(_ context.Context, paymentID uuid.UUID) (Payment, error) {
	payment, ok := store.payments[paymentID]
	if !ok {
		return Payment{}, ErrPaymentNotFound
	}
	return payment, nil
}

func (store *stubStore) GetBookingsForPayment(_ context.Context, bookingIDs []uuid.UUID) ([]booking.Booking, error) {
	var bookings []booking.Booking
	for _, bookingID := range bookingIDs {
		if candidate, ok := store.bookings[bookingID]; ok {
			bookings = append(bookings, *candidate)
		}
	}
	return bookings, nil
}

func (store *stubStore) ConfirmBookings(_ context.Context, bookingIDs []uuid.UUID) error {
	for _, bookingID := range bookingIDs {
		candidate, ok := store.bookings[bookingID]
		if !ok || !candidate.Status.EligibleForPayment() {
			return booking.ErrInvalidStatusTransition
		}
		candidate.Status = booking.StatusConfirmed
	}
	return nil
}

func (store *stubStore) LoadReceipt(_ context.Context, paymentID uuid.UUID) (Receipt, error) {
	payment, ok := store.payments[paymentID]
	if !ok {
		return Receipt{}, ErrPaymentNotFound
	}
	receipt := Receipt{Payment: payment}
	for _, bookingID := range payment.BookingIDs {
		if candidate, ok := store.bookings[bookingID]; ok {
			receipt.Lines = append(receipt.Lines, ReceiptLine{
				BookingID:   candidate.BookingID,
				ServiceName: string(candidate.ServiceKind),
				TotalCents:  candidate.TotalCents,
			})
		}
	}
	return receipt, nil
}

func (store *stubStore) AppendAudit(_ context.Context, record booking.AuditRecord) error {
	store.audits = append(store.audits, record)
	return nil
}

func mustNewService(test *testing.T, store Store) *Service {
	test.Helper()
	service, err := NewService(store, func() int64 { return 1_700_000_000 }, nil)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
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
