package ledger

import (
	"context"

	"github.com/google/uuid"
)

// The Apply functions are the transaction-scoped ledger primitives. Each one
// performs a conditional balance mutation and appends the matching immutable
// transaction row. Callers (the Service operations and the checkout engine)
// invoke them with a tx-bound Store so the mutation, its precondition check,
// and the rest of the business commit share one atomic unit of work.

// ApplyWalletDebit decrements the wallet balance and appends a payment row.
// The decrement is conditional: it fails with ErrInsufficientWalletBalance if
// a concurrent debit has since dropped the balance below the amount.
func ApplyWalletDebit(ctx context.Context, store Store, customerID uuid.UUID, amount PositiveAmountCents, ref TransactionRef, nowUnixUTC int64) (AmountCents, error) {
	balanceAfter, err := store.DebitWallet(ctx, customerID, amount.Cents())
	if err != nil {
		return 0, err
	}
	transaction := WalletTransaction{
		TransactionID:     uuid.New(),
		CustomerID:        customerID,
		Type:              WalletTransactionPayment,
		AmountCents:       AmountCents(-amount.Cents()),
		BalanceAfterCents: AmountCents(balanceAfter),
		BookingID:         ref.BookingID,
		PaymentID:         ref.PaymentID,
		Description:       ref.Description,
		MetadataJSON:      ref.Metadata.String(),
		CreatedUnixUTC:    nowUnixUTC,
	}
	if err := store.AppendWalletTransaction(ctx, transaction); err != nil {
		return 0, err
	}
	return AmountCents(balanceAfter), nil
}

// ApplyWalletCredit increments the wallet balance and appends a row of the
// given type (load, refund, or adjustment).
func ApplyWalletCredit(ctx context.Context, store Store, customerID uuid.UUID, amount PositiveAmountCents, transactionType WalletTransactionType, ref TransactionRef, nowUnixUTC int64) (AmountCents, error) {
	balanceAfter, err := store.CreditWallet(ctx, customerID, amount.Cents())
	if err != nil {
		return 0, err
	}
	transaction := WalletTransaction{
		TransactionID:     uuid.New(),
		CustomerID:        customerID,
		Type:              transactionType,
		AmountCents:       AmountCents(amount.Cents()),
		BalanceAfterCents: AmountCents(balanceAfter),
		BookingID:         ref.BookingID,
		PaymentID:         ref.PaymentID,
		Description:       ref.Description,
		MetadataJSON:      ref.Metadata.String(),
		CreatedUnixUTC:    nowUnixUTC,
	}
	if err := store.AppendWalletTransaction(ctx, transaction); err != nil {
		return 0, err
	}
	return AmountCents(balanceAfter), nil
}

// ApplyPointsRedemption decrements the points balance and appends a
// redemption row. The decrement fails with ErrInsufficientPoints when the
// balance no longer covers the amount at commit time.
func ApplyPointsRedemption(ctx context.Context, store Store, customerID uuid.UUID, points int64, ref TransactionRef, nowUnixUTC int64) (int64, error) {
	if points <= 0 {
		return 0, WrapError(operationRedeem, "points", "invalid_amount", ErrInvalidPoints)
	}
	balanceAfter, err := store.DebitPoints(ctx, customerID, points)
	if err != nil {
		return 0, err
	}
	transaction := PointsTransaction{
		TransactionID:  uuid.New(),
		CustomerID:     customerID,
		Type:           PointsTransactionRedemption,
		Amount:         -points,
		BalanceAfter:   balanceAfter,
		BookingID:      ref.BookingID,
		PaymentID:      ref.PaymentID,
		Description:    ref.Description,
		CreatedUnixUTC: nowUnixUTC,
	}
	if err := store.AppendPointsTransaction(ctx, transaction); err != nil {
		return 0, err
	}
	return balanceAfter, nil
}

// ApplyPointsAccrual grants points up to the global balance cap. Points that
// would push the balance above the cap are dropped and reported as capped,
// never surfaced as an error. A fully capped accrual writes no row.
func ApplyPointsAccrual(ctx context.Context, store Store, customerID uuid.UUID, points int64, ref TransactionRef, nowUnixUTC int64) (AccrualResult, error) {
	if points < 0 {
		return AccrualResult{}, WrapError(operationAccrue, "points", "invalid_amount", ErrInvalidPoints)
	}
	balance, err := store.GetPointsBalance(ctx, customerID)
	if err != nil {
		return AccrualResult{}, err
	}
	granted := points
	if balance+granted > PointsBalanceCap {
		granted = PointsBalanceCap - balance
	}
	if granted < 0 {
		granted = 0
	}
	result := AccrualResult{
		Granted:      granted,
		Capped:       points - granted,
		BalanceAfter: balance,
	}
	if granted == 0 {
		return result, nil
	}
	balanceAfter, err := store.CreditPoints(ctx, customerID, granted)
	if err != nil {
		return AccrualResult{}, err
	}
	result.BalanceAfter = balanceAfter
	transaction := PointsTransaction{
		TransactionID:  uuid.New(),
		CustomerID:     customerID,
		Type:           PointsTransactionPurchase,
		Amount:         granted,
		BalanceAfter:   balanceAfter,
		BookingID:      ref.BookingID,
		PaymentID:      ref.PaymentID,
		Description:    ref.Description,
		CreatedUnixUTC: nowUnixUTC,
	}
	if err := store.AppendPointsTransaction(ctx, transaction); err != nil {
		return AccrualResult{}, err
	}
	return result, nil
}

// CardAccrualPoints computes loyalty points for a card- or cash-funded
// amount: one point per whole dollar, 1.5x when the checkout includes a
// grooming service. Integer math rounds down.
func CardAccrualPoints(cardCents int64, grooming bool) int64 {
	points := cardCents / centsPerDollar * cardPointsPerDollar
	if grooming {
		points = points * groomingBonusNumerator / groomingBonusDenominator
	}
	return points
}

// WalletAccrualPoints computes loyalty points for a wallet-funded amount:
// two points per whole dollar, 1.5x when grooming is included.
func WalletAccrualPoints(walletCents int64, grooming bool) int64 {
	points := walletCents / centsPerDollar * walletPointsPerDollar
	if grooming {
		points = points * groomingBonusNumerator / groomingBonusDenominator
	}
	return points
}

// PointsToCents converts points to their cents equivalent.
func PointsToCents(points int64) int64 {
	return points * CentsPerPoint
}

// PointsToCoverCents returns the fewest points whose value covers the given
// cents amount. Rounding goes against the payer: the points redeemed may be
// worth up to CentsPerPoint-1 more than the amount they cover.
func PointsToCoverCents(cents int64) int64 {
	if cents <= 0 {
		return 0
	}
	return (cents + CentsPerPoint - 1) / CentsPerPoint
}
