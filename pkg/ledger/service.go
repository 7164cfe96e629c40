package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pawloft/daycare/pkg/identity"
)

// Service contains the wallet and points ledger logic over a Store.
type Service struct {
	store  Store
	nowFn  func() int64
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Balance returns the wallet and points balances plus the auto-reload hint.
func (service *Service) Balance(ctx context.Context, customerID uuid.UUID) (BalanceView, error) {
	wallet, err := service.store.GetWallet(ctx, customerID)
	if err != nil {
		return BalanceView{}, err
	}
	points, err := service.store.GetPointsBalance(ctx, customerID)
	if err != nil {
		return BalanceView{}, err
	}
	return BalanceView{
		WalletBalanceCents: wallet.BalanceCents,
		PointsBalance:      points,
		Tier:               wallet.Tier,
		ReloadSuggested:    wallet.BelowReloadThreshold(),
	}, nil
}

// LoadFunds credits the wallet. A single load must fall inside the
// per-transaction range, and the sum of same-UTC-day loads must stay under
// the rolling daily cap.
func (service *Service) LoadFunds(ctx context.Context, actor identity.Actor, customerID uuid.UUID, amount PositiveAmountCents, metadata MetadataJSON) (LoadResult, error) {
	var result LoadResult
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		if amount.Cents() < MinLoadCents || amount.Cents() > MaxLoadCents {
			return fmt.Errorf("%w: %d cents outside [%d, %d]", ErrLoadAmountOutOfRange, amount.Cents(), MinLoadCents, MaxLoadCents)
		}
		nowUnixUTC := service.nowFn()
		dayStart, dayEnd := utcDayBounds(nowUnixUTC)
		loadedToday, err := tx.SumWalletLoads(ctx, customerID, dayStart, dayEnd)
		if err != nil {
			return err
		}
		if loadedToday+amount.Cents() > DailyLoadCapCents {
			return fmt.Errorf("%w: %d cents already loaded today", ErrDailyLoadCapExceeded, loadedToday)
		}
		ref := TransactionRef{Description: "wallet load", Metadata: metadata}
		balanceAfter, err := ApplyWalletCredit(ctx, tx, customerID, amount, WalletTransactionLoad, ref, nowUnixUTC)
		if err != nil {
			return err
		}
		result.BalanceAfterCents = balanceAfter
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:   operationLoad,
		CustomerID:  customerID,
		ActorID:     actor.ID,
		AmountCents: amount.Cents(),
		Error:       operationError,
	})
	if operationError != nil {
		return LoadResult{}, operationError
	}
	return result, nil
}

// DeductFunds charges the wallet directly (the wallet-only payment path) and
// accrues loyalty points at the 2x wallet rate, 1.5x again for grooming.
// Points above the global cap are dropped and reported, not granted.
func (service *Service) DeductFunds(ctx context.Context, actor identity.Actor, customerID uuid.UUID, amount PositiveAmountCents, grooming bool, ref TransactionRef) (DeductResult, error) {
	var result DeductResult
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		nowUnixUTC := service.nowFn()
		balanceAfter, err := ApplyWalletDebit(ctx, tx, customerID, amount, ref, nowUnixUTC)
		if err != nil {
			return err
		}
		accrual, err := ApplyPointsAccrual(ctx, tx, customerID, WalletAccrualPoints(amount.Cents(), grooming), ref, nowUnixUTC)
		if err != nil {
			return err
		}
		result = DeductResult{
			BalanceAfterCents: balanceAfter,
			PointsEarned:      accrual.Granted,
			PointsCapped:      accrual.Capped,
		}
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:   operationDeduct,
		CustomerID:  customerID,
		ActorID:     actor.ID,
		AmountCents: amount.Cents(),
		Points:      result.PointsEarned,
		Error:       operationError,
	})
	if operationError != nil {
		return DeductResult{}, operationError
	}
	return result, nil
}

// Refund credits the wallet back with an audit description. Refunds bypass
// the load bounds and the daily cap, so only staff may issue them; the acting
// staff member is recorded in the audit log.
func (service *Service) Refund(ctx context.Context, actor identity.Actor, customerID uuid.UUID, amount PositiveAmountCents, description string, bookingID *uuid.UUID) (RefundResult, error) {
	if !actor.IsStaff() {
		return RefundResult{}, fmt.Errorf("%w: refunds are staff-initiated", ErrStaffOnly)
	}
	var result RefundResult
	operationError := service.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		if description == "" {
			description = "wallet refund"
		}
		nowUnixUTC := service.nowFn()
		ref := TransactionRef{BookingID: bookingID, Description: description}
		balanceAfter, err := ApplyWalletCredit(ctx, tx, customerID, amount, WalletTransactionRefund, ref, nowUnixUTC)
		if err != nil {
			return err
		}
		result.BalanceAfterCents = balanceAfter
		return tx.AppendWalletAudit(ctx, AuditRecord{
			AuditID:        uuid.New(),
			StaffID:        actor.ID,
			Action:         "refund",
			EntityKind:     "wallet",
			EntityID:       customerID,
			Detail:         fmt.Sprintf("%d cents: %s", amount.Cents(), description),
			CreatedUnixUTC: nowUnixUTC,
		})
	})
	service.logOperation(ctx, OperationLog{
		Operation:   operationRefund,
		CustomerID:  customerID,
		ActorID:     actor.ID,
		AmountCents: amount.Cents(),
		Error:       operationError,
	})
	if operationError != nil {
		return RefundResult{}, operationError
	}
	return result, nil
}

// Statement lists recent wallet and points transactions, newest first.
func (service *Service) Statement(ctx context.Context, customerID uuid.UUID, limit int) ([]WalletTransaction, []PointsTransaction, error) {
	walletTransactions, err := service.store.ListWalletTransactions(ctx, customerID, limit)
	if err != nil {
		return nil, nil, err
	}
	pointsTransactions, err := service.store.ListPointsTransactions(ctx, customerID, limit)
	if err != nil {
		return nil, nil, err
	}
	return walletTransactions, pointsTransactions, nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func utcDayBounds(nowUnixUTC int64) (int64, int64) {
	now := time.Unix(nowUnixUTC, 0).UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return dayStart.Unix(), dayStart.Add(24 * time.Hour).Unix()
}
