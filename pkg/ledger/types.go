package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AmountCents is an integer currency amount in cents. Balances and stored
// transaction amounts use it directly; operation inputs go through
// PositiveAmountCents so a non-positive charge is rejected at the boundary.
type AmountCents int64

// Int64 returns the raw cents value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// PositiveAmountCents is a validated, strictly positive amount.
type PositiveAmountCents struct {
	value int64
}

// NewPositiveAmountCents validates an amount and ensures it is strictly positive.
func NewPositiveAmountCents(raw int64) (PositiveAmountCents, error) {
	if raw <= 0 {
		return PositiveAmountCents{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmountCents)
	}
	return PositiveAmountCents{value: raw}, nil
}

// Cents returns the validated cents value.
func (amount PositiveAmountCents) Cents() int64 {
	return amount.value
}

// MetadataJSON stores arbitrary request metadata.
type MetadataJSON struct {
	value string
}

// NewMetadataJSON validates metadata (defaulting to "{}" for empty inputs).
func NewMetadataJSON(raw string) (MetadataJSON, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		normalized = "{}"
	}
	if !json.Valid([]byte(normalized)) {
		return MetadataJSON{}, fmt.Errorf("%w: must be valid json", ErrInvalidMetadataJSON)
	}
	return MetadataJSON{value: normalized}, nil
}

// String returns the normalized JSON blob.
func (metadata MetadataJSON) String() string {
	return metadata.value
}

// WalletTransactionType enumerates wallet ledger entry kinds.
type WalletTransactionType string

const (
	WalletTransactionLoad       WalletTransactionType = "load"
	WalletTransactionPayment    WalletTransactionType = "payment"
	WalletTransactionRefund     WalletTransactionType = "refund"
	WalletTransactionAdjustment WalletTransactionType = "adjustment"
)

// String returns the stored representation.
func (transactionType WalletTransactionType) String() string {
	return string(transactionType)
}

// ParseWalletTransactionType validates a stored transaction type.
func ParseWalletTransactionType(raw string) (WalletTransactionType, error) {
	switch WalletTransactionType(raw) {
	case WalletTransactionLoad, WalletTransactionPayment, WalletTransactionRefund, WalletTransactionAdjustment:
		return WalletTransactionType(raw), nil
	}
	return "", fmt.Errorf("unknown wallet transaction type %q", raw)
}

// PointsTransactionType enumerates points ledger entry kinds.
type PointsTransactionType string

const (
	PointsTransactionPurchase   PointsTransactionType = "purchase"
	PointsTransactionRedemption PointsTransactionType = "redemption"
)

// String returns the stored representation.
func (transactionType PointsTransactionType) String() string {
	return string(transactionType)
}

// WalletTier labels the customer's wallet tier. The points cap is currently
// global; the tier is carried for display and future differentiation.
type WalletTier string

const (
	TierStandard WalletTier = "standard"
	TierPremium  WalletTier = "premium"
)

// Wallet is the stored-value balance attached to one customer.
type Wallet struct {
	CustomerID               uuid.UUID
	BalanceCents             AmountCents
	Tier                     WalletTier
	AutoReloadThresholdCents *int64
	AutoReloadAmountCents    *int64
}

// BelowReloadThreshold reports whether the balance has dropped under the
// customer's configured auto-reload threshold. No reload is performed here;
// the caller surfaces the hint.
func (wallet Wallet) BelowReloadThreshold() bool {
	if wallet.AutoReloadThresholdCents == nil {
		return false
	}
	return wallet.BalanceCents.Int64() < *wallet.AutoReloadThresholdCents
}

// TransactionRef links a ledger mutation back to the business event that
// caused it. Either reference may be nil.
type TransactionRef struct {
	BookingID   *uuid.UUID
	PaymentID   *uuid.UUID
	Description string
	Metadata    MetadataJSON
}

// WalletTransaction is one immutable line in the wallet ledger. AmountCents
// is signed; summing every row for a wallet must equal its current balance.
type WalletTransaction struct {
	TransactionID     uuid.UUID
	CustomerID        uuid.UUID
	Type              WalletTransactionType
	AmountCents       AmountCents
	BalanceAfterCents AmountCents
	BookingID         *uuid.UUID
	PaymentID         *uuid.UUID
	Description       string
	MetadataJSON      string
	CreatedUnixUTC    int64
}

// PointsTransaction is one immutable line in the points ledger. Amount is
// signed; the same summation invariant holds against the points balance.
type PointsTransaction struct {
	TransactionID  uuid.UUID
	CustomerID     uuid.UUID
	Type           PointsTransactionType
	Amount         int64
	BalanceAfter   int64
	BookingID      *uuid.UUID
	PaymentID      *uuid.UUID
	Description    string
	CreatedUnixUTC int64
}

// AuditRecord captures a staff-initiated wallet mutation.
type AuditRecord struct {
	AuditID        uuid.UUID
	StaffID        uuid.UUID
	Action         string
	EntityKind     string
	EntityID       uuid.UUID
	Detail         string
	CreatedUnixUTC int64
}

// BalanceView combines both balances for a customer.
type BalanceView struct {
	WalletBalanceCents AmountCents
	PointsBalance      int64
	Tier               WalletTier
	ReloadSuggested    bool
}

// LoadResult reports the outcome of a wallet load.
type LoadResult struct {
	BalanceAfterCents AmountCents
}

// DeductResult reports the outcome of a wallet-funded payment.
type DeductResult struct {
	BalanceAfterCents AmountCents
	PointsEarned      int64
	PointsCapped      int64
}

// RefundResult reports the outcome of a wallet refund.
type RefundResult struct {
	BalanceAfterCents AmountCents
}

// AccrualResult reports granted versus capped points for one accrual.
type AccrualResult struct {
	Granted      int64
	Capped       int64
	BalanceAfter int64
}

// Store is the persistence contract used by the ledger. Mutating methods must
// be called inside WithTx; the conditional debits fail with the matching
// insufficient-balance sentinel when the precondition no longer holds at
// commit time.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	GetWallet(ctx context.Context, customerID uuid.UUID) (Wallet, error)
	DebitWallet(ctx context.Context, customerID uuid.UUID, amountCents int64) (int64, error)
	CreditWallet(ctx context.Context, customerID uuid.UUID, amountCents int64) (int64, error)
	AppendWalletTransaction(ctx context.Context, transaction WalletTransaction) error
	SumWalletLoads(ctx context.Context, customerID uuid.UUID, fromUnixUTC int64, toUnixUTC int64) (int64, error)
	ListWalletTransactions(ctx context.Context, customerID uuid.UUID, limit int) ([]WalletTransaction, error)

	GetPointsBalance(ctx context.Context, customerID uuid.UUID) (int64, error)
	DebitPoints(ctx context.Context, customerID uuid.UUID, amount int64) (int64, error)
	CreditPoints(ctx context.Context, customerID uuid.UUID, amount int64) (int64, error)
	AppendPointsTransaction(ctx context.Context, transaction PointsTransaction) error
	ListPointsTransactions(ctx context.Context, customerID uuid.UUID, limit int) ([]PointsTransaction, error)

	AppendWalletAudit(ctx context.Context, record AuditRecord) error
}
