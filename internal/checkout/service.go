package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawloft/daycare/internal/booking"
	"github.com/pawloft/daycare/pkg/identity"
	"github.com/pawloft/daycare/pkg/ledger"
)

// Service commits checkouts: it computes the payment split, validates
// balances, and moves money, points, the payment row, and the booking
// transitions in one atomic unit of work.
type Service struct {
	store  Store
	nowFn  func() int64
	logger *zap.Logger
}

// NewService wires a Service. A nil logger disables operation logging.
func NewService(store Store, now func() int64, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, nowFn: now, logger: logger}, nil
}

// ProcessCheckout pays for one or more eligible bookings. When the request
// carries an idempotency key already seen, the originally committed result is
// returned verbatim and nothing is re-validated or re-mutated. A concurrent
// duplicate submission loses the unique-key race at commit time, rolls back
// completely, and is answered with the winner's result.
func (service *Service) ProcessCheckout(ctx context.Context, actor identity.Actor, customerID uuid.UUID, request Request) (Result, error) {
	if !actor.IsStaff() && actor.ID != customerID {
		return Result{}, identity.ErrInvalidActor
	}
	if len(request.BookingIDs) == 0 {
		return Result{}, ErrNoBookings
	}
	if request.TipCents < 0 {
		return Result{}, ErrInvalidTip
	}
	if _, err := ParsePaymentMethod(string(request.Method)); err != nil {
		return Result{}, err
	}

	var result Result
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		// The idempotency lookup happens before any balance read or
		// mutation so a retried submission can never double-charge.
		if request.IdempotencyKey != "" {
			existing, err := tx.FindPaymentByIdempotencyKey(ctx, customerID, request.IdempotencyKey)
			if err == nil {
				result = resultFromPayment(existing, true)
				return nil
			}
			if !errors.Is(err, ErrPaymentNotFound) {
				return err
			}
		}

		bookings, err := tx.GetBookingsForPayment(ctx, request.BookingIDs)
		if err != nil {
			return err
		}
		eligible, offenders := partitionEligible(customerID, request.BookingIDs, bookings)
		if len(offenders) > 0 {
			return NotEligibleError{BookingIDs: offenders}
		}
		// A grooming booking is priced only once every dog carries a
		// condition quote; paying an unpriced one would freeze its
		// total at zero.
		var unpriced []uuid.UUID
		for _, eligibleBooking := range eligible {
			if groomingUnpriced(eligibleBooking) {
				unpriced = append(unpriced, eligibleBooking.BookingID)
			}
		}
		if len(unpriced) > 0 {
			return NotPricedError{BookingIDs: unpriced}
		}

		var totalCents int64
		grooming := false
		for _, eligibleBooking := range eligible {
			totalCents += eligibleBooking.TotalCents
			if eligibleBooking.ServiceKind == booking.ServiceGrooming {
				grooming = true
			}
		}
		totalCents += request.TipCents

		split, err := ComputeSplit(request.Method, totalCents, request.WalletAmountCents, request.PointsToRedeem, request.TipCents)
		if err != nil {
			return err
		}

		// Advisory balance checks. The conditional decrements below
		// re-check inside the same transaction; if a concurrent
		// checkout drained the balance in between, they fail and the
		// whole unit rolls back.
		ledgerStore := tx.Ledger()
		if split.WalletCents > 0 {
			wallet, err := ledgerStore.GetWallet(ctx, customerID)
			if err != nil {
				return err
			}
			if wallet.BalanceCents.Int64() < split.WalletCents {
				return fmt.Errorf("%w: balance %d cents, need %d", ledger.ErrInsufficientWalletBalance, wallet.BalanceCents, split.WalletCents)
			}
		}
		if split.PointsRedeemed > 0 {
			points, err := ledgerStore.GetPointsBalance(ctx, customerID)
			if err != nil {
				return err
			}
			if points < split.PointsRedeemed {
				return fmt.Errorf("%w: balance %d points, need %d", ledger.ErrInsufficientPoints, points, split.PointsRedeemed)
			}
		}

		nowUnixUTC := service.nowFn()
		paymentID := uuid.New()
		ref := ledger.TransactionRef{PaymentID: &paymentID, Description: "booking checkout"}

		if split.WalletCents > 0 {
			amount, err := ledger.NewPositiveAmountCents(split.WalletCents)
			if err != nil {
				return err
			}
			if _, err := ledger.ApplyWalletDebit(ctx, ledgerStore, customerID, amount, ref, nowUnixUTC); err != nil {
				return err
			}
		}
		if split.PointsRedeemed > 0 {
			if _, err := ledger.ApplyPointsRedemption(ctx, ledgerStore, customerID, split.PointsRedeemed, ref, nowUnixUTC); err != nil {
				return err
			}
		}

		// Accrual paths are mutually exclusive per checkout: any wallet
		// contribution routes the whole accrual through the 2x wallet
		// rate on the wallet amount; otherwise card/cash funding earns
		// at the 1x rate. Pure points checkouts earn nothing.
		var accrual ledger.AccrualResult
		accruedPoints := int64(0)
		if split.WalletCents > 0 {
			accruedPoints = ledger.WalletAccrualPoints(split.WalletCents, grooming)
		} else if split.CardCents > 0 {
			accruedPoints = ledger.CardAccrualPoints(split.CardCents, grooming)
		}
		if accruedPoints > 0 {
			accrual, err = ledger.ApplyPointsAccrual(ctx, ledgerStore, customerID, accruedPoints, ref, nowUnixUTC)
			if err != nil {
				return err
			}
		}

		payment := Payment{
			PaymentID:         paymentID,
			CustomerID:        customerID,
			StaffID:           actor.StaffID(),
			Method:            request.Method,
			Status:            PaymentCompleted,
			TotalCents:        split.TotalCents,
			WalletAmountCents: split.WalletCents,
			CardAmountCents:   split.CardCents,
			PointsRedeemed:    split.PointsRedeemed,
			PointsAmountCents: split.PointsCents,
			TipCents:          split.TipCents,
			PointsEarned:      accrual.Granted,
			PointsCapped:      accrual.Capped,
			IdempotencyKey:    request.IdempotencyKey,
			TransactionID:     "sim_" + uuid.NewString(),
			BookingIDs:        request.BookingIDs,
			CreatedUnixUTC:    nowUnixUTC,
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}
		if err := tx.ConfirmBookings(ctx, request.BookingIDs); err != nil {
			return err
		}
		if staffID := actor.StaffID(); staffID != nil {
			auditRecord := booking.AuditRecord{
				AuditID:        uuid.New(),
				StaffID:        *staffID,
				Action:         "checkout",
				EntityKind:     "payment",
				EntityID:       paymentID,
				Detail:         fmt.Sprintf("%d cents via %s", split.TotalCents, request.Method),
				CreatedUnixUTC: nowUnixUTC,
			}
			if err := tx.AppendAudit(ctx, auditRecord); err != nil {
				return err
			}
		}
		result = resultFromPayment(payment, false)
		return nil
	})
	if errors.Is(operationError, ErrDuplicateIdempotencyKey) && request.IdempotencyKey != "" {
		existing, err := service.store.FindPaymentByIdempotencyKey(ctx, customerID, request.IdempotencyKey)
		if err != nil {
			return Result{}, operationError
		}
		result = resultFromPayment(existing, true)
		operationError = nil
	}
	if operationError != nil {
		service.logger.Warn("checkout failed",
			zap.String("customer_id", customerID.String()),
			zap.String("method", string(request.Method)),
			zap.Error(operationError))
		return Result{}, operationError
	}
	service.logger.Info("checkout committed",
		zap.String("payment_id", result.PaymentID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int64("total_cents", result.Split.TotalCents),
		zap.Bool("replayed", result.Replayed))
	return result, nil
}

// Receipt assembles the receipt for a completed payment; customers may only
// read their own.
func (service *Service) Receipt(ctx context.Context, actor identity.Actor, paymentID uuid.UUID) (Receipt, error) {
	receipt, err := service.store.LoadReceipt(ctx, paymentID)
	if err != nil {
		return Receipt{}, err
	}
	if !actor.IsStaff() && receipt.Payment.CustomerID != actor.ID {
		return Receipt{}, ErrNotPaymentOwner
	}
	return receipt, nil
}

// partitionEligible splits requested bookings into payable ones and
// offenders: missing, foreign-owned, or in a non-payable status.
func partitionEligible(customerID uuid.UUID, requestedIDs []uuid.UUID, bookings []booking.Booking) ([]booking.Booking, []uuid.UUID) {
	byID := make(map[uuid.UUID]booking.Booking, len(bookings))
	for _, candidate := range bookings {
		byID[candidate.BookingID] = candidate
	}
	var eligible []booking.Booking
	var offenders []uuid.UUID
	for _, requestedID := range requestedIDs {
		candidate, ok := byID[requestedID]
		if !ok || candidate.CustomerID != customerID || !candidate.Status.EligibleForPayment() {
			offenders = append(offenders, requestedID)
			continue
		}
		eligible = append(eligible, candidate)
	}
	return eligible, offenders
}

// groomingUnpriced reports whether a grooming booking still awaits condition
// ratings, either directly (a dog without a quote) or by its zero total.
func groomingUnpriced(record booking.Booking) bool {
	if record.ServiceKind != booking.ServiceGrooming {
		return false
	}
	for _, bookingDog := range record.Dogs {
		if bookingDog.QuotedPriceCents == nil {
			return true
		}
	}
	return record.TotalCents == 0
}

func resultFromPayment(payment Payment, replayed bool) Result {
	return Result{
		PaymentID:     payment.PaymentID,
		TransactionID: payment.TransactionID,
		Method:        payment.Method,
		Split: Split{
			TotalCents:     payment.TotalCents,
			WalletCents:    payment.WalletAmountCents,
			CardCents:      payment.CardAmountCents,
			PointsCents:    payment.PointsAmountCents,
			PointsRedeemed: payment.PointsRedeemed,
			TipCents:       payment.TipCents,
		},
		BookingIDs:   payment.BookingIDs,
		PointsEarned: payment.PointsEarned,
		PointsCapped: payment.PointsCapped,
		Replayed:     replayed,
	}
}
