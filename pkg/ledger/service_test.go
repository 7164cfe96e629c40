package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestLoadFundsCreditsWalletAndAppendsRow(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 1_000, 0)
	service := mustNewService(test, store)
	actor := mustCustomerActor(test, customerID)

	result, err := service.LoadFunds(context.Background(), actor, customerID, mustPositiveAmount(test, 2_500), mustMetadata(test, "{}"))
	if err != nil {
		test.Fatalf("load funds: %v", err)
	}
	if result.BalanceAfterCents != 3_500 {
		test.Fatalf("expected balance 3500, got %d", result.BalanceAfterCents)
	}
	if len(store.walletTransactions) != 1 {
		test.Fatalf("expected 1 wallet transaction, got %d", len(store.walletTransactions))
	}
	transaction := store.walletTransactions[0]
	if transaction.Type != WalletTransactionLoad {
		test.Fatalf("expected load transaction, got %s", transaction.Type)
	}
	if transaction.AmountCents != 2_500 || transaction.BalanceAfterCents != 3_500 {
		test.Fatalf("unexpected transaction amounts: %d after %d", transaction.AmountCents, transaction.BalanceAfterCents)
	}
}

func TestLoadFundsRejectsAmountOutOfRange(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 0, 0)
	service := mustNewService(test, store)
	actor := mustCustomerActor(test, customerID)

	for _, cents := range []int64{MinLoadCents - 1, MaxLoadCents + 1} {
		_, err := service.LoadFunds(context.Background(), actor, customerID, mustPositiveAmount(test, cents), mustMetadata(test, "{}"))
		if !errors.Is(err, ErrLoadAmountOutOfRange) {
			test.Fatalf("expected ErrLoadAmountOutOfRange for %d cents, got %v", cents, err)
		}
	}
	if len(store.walletTransactions) != 0 {
		test.Fatalf("expected no transactions, got %d", len(store.walletTransactions))
	}
}

func TestLoadFundsEnforcesDailyCap(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 0, 0)
	service := mustNewService(test, store)
	actor := mustCustomerActor(test, customerID)

	// Two max loads fit under the daily cap; the third crosses it.
	for index := 0; index < 2; index++ {
		if _, err := service.LoadFunds(context.Background(), actor, customerID, mustPositiveAmount(test, MaxLoadCents), mustMetadata(test, "{}")); err != nil {
			test.Fatalf("load %d: %v", index, err)
		}
	}
	_, err := service.LoadFunds(context.Background(), actor, customerID, mustPositiveAmount(test, MinLoadCents), mustMetadata(test, "{}"))
	if !errors.Is(err, ErrDailyLoadCapExceeded) {
		test.Fatalf("expected ErrDailyLoadCapExceeded, got %v", err)
	}
}

func TestDeductFundsAccruesDoublePoints(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 10_000, 0)
	service := mustNewService(test, store)
	actor := mustCustomerActor(test, customerID)

	result, err := service.DeductFunds(context.Background(), actor, customerID, mustPositiveAmount(test, 4_200), false, TransactionRef{Description: "daycare"})
	if err != nil {
		test.Fatalf("deduct funds: %v", err)
	}
	if result.BalanceAfterCents != 5_800 {
		test.Fatalf("expected balance 5800, got %d", result.BalanceAfterCents)
	}
	if result.PointsEarned != 84 {
		test.Fatalf("expected 84 points (2 per dollar on $42), got %d", result.PointsEarned)
	}
	if result.PointsCapped != 0 {
		test.Fatalf("expected no capped points, got %d", result.PointsCapped)
	}
	if len(store.pointsTransactions) != 1 || store.pointsTransactions[0].Amount != 84 {
		test.Fatalf("expected one purchase row of 84 points")
	}
}

func TestDeductFundsGroomingBonus(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 10_000, 0)
	service := mustNewService(test, store)
	actor := mustCustomerActor(test, customerID)

	result, err := service.DeductFunds(context.Background(), actor, customerID, mustPositiveAmount(test, 4_000), true, TransactionRef{})
	if err != nil {
		test.Fatalf("deduct funds: %v", err)
	}
	// $40 at 2/dollar = 80, times 1.5 = 120.
	if result.PointsEarned != 120 {
		test.Fatalf("expected 120 points, got %d", result.PointsEarned)
	}
}

func TestDeductFundsInsufficientBalance(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 100, 0)
	service := mustNewService(test, store)
	actor := mustCustomerActor(test, customerID)

	_, err := service.DeductFunds(context.Background(), actor, customerID, mustPositiveAmount(test, 500), false, TransactionRef{})
	if !errors.Is(err, ErrInsufficientWalletBalance) {
		test.Fatalf("expected ErrInsufficientWalletBalance, got %v", err)
	}
	if len(store.walletTransactions) != 0 || len(store.pointsTransactions) != 0 {
		test.Fatalf("expected no ledger rows after failed deduct")
	}
}

func TestDeductFundsCapsPointsSilently(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 100_000, 480)
	service := mustNewService(test, store)
	actor := mustCustomerActor(test, customerID)

	result, err := service.DeductFunds(context.Background(), actor, customerID, mustPositiveAmount(test, 5_000), false, TransactionRef{})
	if err != nil {
		test.Fatalf("deduct funds: %v", err)
	}
	// $50 at 2/dollar is 100 points, but only 20 fit under the cap.
	if result.PointsEarned != 20 {
		test.Fatalf("expected 20 granted points, got %d", result.PointsEarned)
	}
	if result.PointsCapped != 80 {
		test.Fatalf("expected 80 capped points, got %d", result.PointsCapped)
	}
	if store.points[customerID] != PointsBalanceCap {
		test.Fatalf("expected points balance at cap, got %d", store.points[customerID])
	}
}

func TestRefundCreditsWallet(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 0, 0)
	service := mustNewService(test, store)
	actor := mustStaffActor(test)
	bookingID := uuid.New()

	result, err := service.Refund(context.Background(), actor, customerID, mustPositiveAmount(test, 1_200), "cancelled boarding", &bookingID)
	if err != nil {
		test.Fatalf("refund: %v", err)
	}
	if result.BalanceAfterCents != 1_200 {
		test.Fatalf("expected balance 1200, got %d", result.BalanceAfterCents)
	}
	transaction := store.walletTransactions[0]
	if transaction.Type != WalletTransactionRefund || transaction.Description != "cancelled boarding" {
		test.Fatalf("unexpected refund row: %+v", transaction)
	}
	if transaction.BookingID == nil || *transaction.BookingID != bookingID {
		test.Fatalf("expected booking reference on refund row")
	}
	if len(store.walletAudits) != 1 {
		test.Fatalf("expected one audit row, got %d", len(store.walletAudits))
	}
	audit := store.walletAudits[0]
	if audit.StaffID != actor.ID || audit.Action != "refund" || audit.EntityID != customerID {
		test.Fatalf("unexpected audit row: %+v", audit)
	}
}

func TestRefundRequiresStaff(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 0, 0)
	service := mustNewService(test, store)
	actor := mustCustomerActor(test, customerID)

	_, err := service.Refund(context.Background(), actor, customerID, mustPositiveAmount(test, 1_000_000), "", nil)
	if !errors.Is(err, ErrStaffOnly) {
		test.Fatalf("expected ErrStaffOnly, got %v", err)
	}
	if len(store.walletTransactions) != 0 {
		test.Fatalf("customer refund must not credit the wallet")
	}
	if store.wallets[customerID].BalanceCents != 0 {
		test.Fatalf("balance moved to %d", store.wallets[customerID].BalanceCents)
	}
}

func TestLedgerConservation(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 0, 0)
	service := mustNewService(test, store)
	actor := mustCustomerActor(test, customerID)
	ctx := context.Background()

	if _, err := service.LoadFunds(ctx, actor, customerID, mustPositiveAmount(test, 10_000), mustMetadata(test, "{}")); err != nil {
		test.Fatalf("load: %v", err)
	}
	if _, err := service.DeductFunds(ctx, actor, customerID, mustPositiveAmount(test, 3_300), false, TransactionRef{}); err != nil {
		test.Fatalf("deduct: %v", err)
	}
	if _, err := service.Refund(ctx, mustStaffActor(test), customerID, mustPositiveAmount(test, 500), "", nil); err != nil {
		test.Fatalf("refund: %v", err)
	}

	var walletSum int64
	for _, transaction := range store.walletTransactions {
		walletSum += transaction.AmountCents.Int64()
	}
	if walletSum != store.wallets[customerID].BalanceCents.Int64() {
		test.Fatalf("wallet rows sum to %d, balance is %d", walletSum, store.wallets[customerID].BalanceCents)
	}
	var pointsSum int64
	for _, transaction := range store.pointsTransactions {
		pointsSum += transaction.Amount
	}
	if pointsSum != store.points[customerID] {
		test.Fatalf("points rows sum to %d, balance is %d", pointsSum, store.points[customerID])
	}
}

func TestApplyPointsRedemptionInsufficient(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 0, 30)

	_, err := ApplyPointsRedemption(context.Background(), store, customerID, 50, TransactionRef{}, 0)
	if !errors.Is(err, ErrInsufficientPoints) {
		test.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestApplyPointsAccrualFullyCappedWritesNoRow(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 0, PointsBalanceCap)

	result, err := ApplyPointsAccrual(context.Background(), store, customerID, 40, TransactionRef{}, 0)
	if err != nil {
		test.Fatalf("accrual: %v", err)
	}
	if result.Granted != 0 || result.Capped != 40 {
		test.Fatalf("expected fully capped accrual, got %+v", result)
	}
	if len(store.pointsTransactions) != 0 {
		test.Fatalf("expected no points row for fully capped accrual")
	}
}

func TestAccrualMath(test *testing.T) {
	test.Parallel()
	cases := []struct {
		name     string
		cents    int64
		grooming bool
		card     int64
		wallet   int64
	}{
		{name: "whole dollars", cents: 4_200, card: 42, wallet: 84},
		{name: "sub-dollar remainder floors", cents: 4_299, card: 42, wallet: 84},
		{name: "grooming bonus", cents: 4_000, grooming: true, card: 60, wallet: 120},
		{name: "grooming odd floors", cents: 300, grooming: true, card: 4, wallet: 9},
		{name: "zero", cents: 0, card: 0, wallet: 0},
	}
	for _, testCase := range cases {
		if got := CardAccrualPoints(testCase.cents, testCase.grooming); got != testCase.card {
			test.Errorf("%s: card accrual %d, want %d", testCase.name, got, testCase.card)
		}
		if got := WalletAccrualPoints(testCase.cents, testCase.grooming); got != testCase.wallet {
			test.Errorf("%s: wallet accrual %d, want %d", testCase.name, got, testCase.wallet)
		}
	}
}

func TestPointsToCoverCentsRoundsUp(test *testing.T) {
	test.Parallel()
	cases := []struct {
		cents  int64
		points int64
	}{
		{cents: 0, points: 0},
		{cents: 1, points: 1},
		{cents: 10, points: 1},
		{cents: 11, points: 2},
		{cents: 4_200, points: 420},
		{cents: 4_205, points: 421},
	}
	for _, testCase := range cases {
		if got := PointsToCoverCents(testCase.cents); got != testCase.points {
			test.Errorf("PointsToCoverCents(%d) = %d, want %d", testCase.cents, got, testCase.points)
		}
	}
}

func TestBalanceReportsReloadHint(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	customerID := uuid.New()
	store.addCustomer(customerID, 400, 12)
	threshold := int64(1_000)
	store.wallets[customerID].AutoReloadThresholdCents = &threshold
	service := mustNewService(test, store)

	view, err := service.Balance(context.Background(), customerID)
	if err != nil {
		test.Fatalf("balance: %v", err)
	}
	if !view.ReloadSuggested {
		test.Fatalf("expected reload suggestion below threshold")
	}
	if view.WalletBalanceCents != 400 || view.PointsBalance != 12 {
		test.Fatalf("unexpected balance view: %+v", view)
	}
}
