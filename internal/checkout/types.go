package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pawloft/daycare/internal/booking"
	"github.com/pawloft/daycare/pkg/ledger"
)

// PaymentMethod enumerates how a checkout is funded.
type PaymentMethod string

const (
	MethodWallet PaymentMethod = "wallet"
	MethodCard   PaymentMethod = "card"
	MethodCash   PaymentMethod = "cash"
	MethodSplit  PaymentMethod = "split"
	MethodPoints PaymentMethod = "points"
)

// ParsePaymentMethod validates a requested method.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(raw) {
	case MethodWallet, MethodCard, MethodCash, MethodSplit, MethodPoints:
		return PaymentMethod(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, raw)
}

// PaymentStatus is the payment lifecycle state. Simulated card charges
// complete synchronously, so completed is the only post-commit status.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
)

// Request is the normalized checkout input, validated once at the boundary.
type Request struct {
	BookingIDs        []uuid.UUID
	Method            PaymentMethod
	WalletAmountCents int64
	PointsToRedeem    int64
	TipCents          int64
	IdempotencyKey    string
}

// Split is the deterministic division of a checkout total across funding
// sources. WalletCents + CardCents + PointsCents always equals TotalCents.
type Split struct {
	TotalCents     int64
	WalletCents    int64
	CardCents      int64
	PointsCents    int64
	PointsRedeemed int64
	TipCents       int64
}

// Payment is one committed checkout.
type Payment struct {
	PaymentID         uuid.UUID
	CustomerID        uuid.UUID
	StaffID           *uuid.UUID
	Method            PaymentMethod
	Status            PaymentStatus
	TotalCents        int64
	WalletAmountCents int64
	CardAmountCents   int64
	PointsRedeemed    int64
	PointsAmountCents int64
	TipCents          int64
	PointsEarned      int64
	PointsCapped      int64
	IdempotencyKey    string
	TransactionID     string
	BookingIDs        []uuid.UUID
	CreatedUnixUTC    int64
}

// Result is returned to the caller; a replayed result is byte-identical to
// the original commit.
type Result struct {
	PaymentID     uuid.UUID
	TransactionID string
	Method        PaymentMethod
	Split         Split
	BookingIDs    []uuid.UUID
	PointsEarned  int64
	PointsCapped  int64
	Replayed      bool
}

// ReceiptLine describes one booking on a receipt.
type ReceiptLine struct {
	BookingID   uuid.UUID
	ServiceName string
	StartDate   string
	EndDate     string
	DogNames    []string
	TotalCents  int64
}

// Receipt assembles a completed payment with its booking details.
type Receipt struct {
	Payment Payment
	Lines   []ReceiptLine
}

// Store is the persistence contract for checkout. Ledger exposes the
// tx-bound wallet/points primitives so money movement joins the same atomic
// unit of work as the payment row and the booking transitions.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Ledger() ledger.Store

	FindPaymentByIdempotencyKey(ctx context.Context, customerID uuid.UUID, key string) (Payment, error)
	InsertPayment(ctx context.Context, payment Payment) error
	GetPayment(ctx context.Context, paymentID uuid.UUID) (Payment, error)

	GetBookingsForPayment(ctx context.Context, bookingIDs []uuid.UUID) ([]booking.Booking, error)
	ConfirmBookings(ctx context.Context, bookingIDs []uuid.UUID) error
	LoadReceipt(ctx context.Context, paymentID uuid.UUID) (Receipt, error)

	AppendAudit(ctx context.Context, record booking.AuditRecord) error
}
