package checkout

import (
	"errors"
	"testing"

	"github.com/pawloft/daycare/pkg/ledger"
)

func TestComputeSplitCardAbsorbsTotal(test *testing.T) {
	test.Parallel()
	split, err := ComputeSplit(MethodCard, 4_200, 0, 0, 0)
	if err != nil {
		test.Fatalf("compute split: %v", err)
	}
	if split.CardCents != 4_200 || split.WalletCents != 0 || split.PointsCents != 0 {
		test.Fatalf("unexpected card split: %+v", split)
	}
}

func TestComputeSplitWalletCoversTotal(test *testing.T) {
	test.Parallel()
	split, err := ComputeSplit(MethodWallet, 4_200, 0, 0, 0)
	if err != nil {
		test.Fatalf("compute split: %v", err)
	}
	if split.WalletCents != 4_200 || split.CardCents != 0 {
		test.Fatalf("unexpected wallet split: %+v", split)
	}
}

func TestComputeSplitWalletThenCard(test *testing.T) {
	test.Parallel()
	split, err := ComputeSplit(MethodSplit, 4_200, 3_000, 0, 0)
	if err != nil {
		test.Fatalf("compute split: %v", err)
	}
	if split.WalletCents != 3_000 || split.CardCents != 1_200 || split.PointsCents != 0 {
		test.Fatalf("unexpected split: %+v", split)
	}
}

func TestComputeSplitWalletPointsCard(test *testing.T) {
	test.Parallel()
	split, err := ComputeSplit(MethodSplit, 4_200, 3_000, 50, 0)
	if err != nil {
		test.Fatalf("compute split: %v", err)
	}
	if split.WalletCents != 3_000 || split.PointsCents != 500 || split.PointsRedeemed != 50 || split.CardCents != 700 {
		test.Fatalf("unexpected split: %+v", split)
	}
}

func TestComputeSplitCapsPointsAtRemainder(test *testing.T) {
	test.Parallel()
	// Wallet leaves 200 cents; 100 requested points are worth 1000 cents
	// but only 20 points are consumed to cover the gap.
	split, err := ComputeSplit(MethodSplit, 4_200, 4_000, 100, 0)
	if err != nil {
		test.Fatalf("compute split: %v", err)
	}
	if split.PointsCents != 200 || split.PointsRedeemed != 20 || split.CardCents != 0 {
		test.Fatalf("unexpected split: %+v", split)
	}
}

func TestComputeSplitRoundsPointsAgainstPayer(test *testing.T) {
	test.Parallel()
	// 4205 cents covered purely by points inside a split: 421 points are
	// redeemed even though 420.5 would suffice.
	split, err := ComputeSplit(MethodSplit, 4_205, 0, 500, 0)
	if err != nil {
		test.Fatalf("compute split: %v", err)
	}
	if split.PointsCents != 4_205 || split.PointsRedeemed != 421 {
		test.Fatalf("unexpected split: %+v", split)
	}
	if ledger.PointsToCents(split.PointsRedeemed) < split.PointsCents {
		test.Fatalf("points credit exceeds points redeemed: %+v", split)
	}
}

func TestComputeSplitRejectsEmptyAndNegativeContributions(test *testing.T) {
	test.Parallel()
	if _, err := ComputeSplit(MethodSplit, 4_200, 0, 0, 0); !errors.Is(err, ErrSplitAmountInvalid) {
		test.Fatalf("expected ErrSplitAmountInvalid for empty split, got %v", err)
	}
	if _, err := ComputeSplit(MethodSplit, 4_200, -100, 0, 0); !errors.Is(err, ErrSplitAmountInvalid) {
		test.Fatalf("expected ErrSplitAmountInvalid for negative wallet, got %v", err)
	}
	if _, err := ComputeSplit(MethodSplit, 4_200, 0, -5, 0); !errors.Is(err, ErrSplitAmountInvalid) {
		test.Fatalf("expected ErrSplitAmountInvalid for negative points, got %v", err)
	}
}

func TestComputeSplitPurePoints(test *testing.T) {
	test.Parallel()
	split, err := ComputeSplit(MethodPoints, 4_200, 0, 420, 0)
	if err != nil {
		test.Fatalf("compute split: %v", err)
	}
	if split.PointsRedeemed != 420 || split.PointsCents != 4_200 || split.CardCents != 0 {
		test.Fatalf("unexpected points split: %+v", split)
	}

	// A ragged total consumes the rounded-up point count exactly.
	split, err = ComputeSplit(MethodPoints, 4_205, 0, 421, 0)
	if err != nil {
		test.Fatalf("compute split: %v", err)
	}
	if split.PointsRedeemed != 421 || split.PointsCents != 4_205 {
		test.Fatalf("unexpected ragged points split: %+v", split)
	}

	if _, err := ComputeSplit(MethodPoints, 4_200, 0, 419, 0); !errors.Is(err, ledger.ErrInsufficientPoints) {
		test.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestComputeSplitSumInvariant(test *testing.T) {
	test.Parallel()
	cases := []struct {
		method PaymentMethod
		total  int64
		wallet int64
		points int64
		tip    int64
	}{
		{method: MethodCard, total: 4_200},
		{method: MethodCash, total: 999},
		{method: MethodWallet, total: 10_000},
		{method: MethodSplit, total: 4_200, wallet: 3_000},
		{method: MethodSplit, total: 4_200, wallet: 3_000, points: 50},
		{method: MethodSplit, total: 4_205, points: 500},
		{method: MethodSplit, total: 5_000, wallet: 9_999},
		{method: MethodPoints, total: 4_205, points: 421},
	}
	for _, testCase := range cases {
		split, err := ComputeSplit(testCase.method, testCase.total, testCase.wallet, testCase.points, testCase.tip)
		if err != nil {
			test.Fatalf("%s/%d: %v", testCase.method, testCase.total, err)
		}
		if sum := split.WalletCents + split.CardCents + split.PointsCents; sum != testCase.total {
			test.Errorf("%s/%d: split sums to %d", testCase.method, testCase.total, sum)
		}
	}
}
