package checkout

import (
	"fmt"

	"github.com/pawloft/daycare/pkg/ledger"
)

// ComputeSplit deterministically divides a checkout total across funding
// sources in priority order: wallet first, then points, then card absorbs
// the remainder. totalCents already includes the tip.
func ComputeSplit(method PaymentMethod, totalCents int64, requestedWalletCents int64, pointsToRedeem int64, tipCents int64) (Split, error) {
	split := Split{TotalCents: totalCents, TipCents: tipCents}

	switch method {
	case MethodWallet:
		split.WalletCents = totalCents

	case MethodCard, MethodCash:
		split.CardCents = totalCents

	case MethodSplit:
		if requestedWalletCents < 0 || pointsToRedeem < 0 {
			return Split{}, fmt.Errorf("%w: negative contribution", ErrSplitAmountInvalid)
		}
		if requestedWalletCents == 0 && pointsToRedeem == 0 {
			return Split{}, ErrSplitAmountInvalid
		}
		split.WalletCents = requestedWalletCents
		if split.WalletCents > totalCents {
			split.WalletCents = totalCents
		}
		if pointsToRedeem > 0 {
			// Cap the points-derived credit at what the wallet left
			// uncovered, then round the point count up so the points
			// redeemed are never worth less than the credit granted.
			pointsCents := ledger.PointsToCents(pointsToRedeem)
			if remainder := totalCents - split.WalletCents; pointsCents > remainder {
				pointsCents = remainder
			}
			split.PointsCents = pointsCents
			split.PointsRedeemed = ledger.PointsToCoverCents(pointsCents)
		}
		split.CardCents = totalCents - split.WalletCents - split.PointsCents
		if split.CardCents < 0 {
			split.CardCents = 0
		}

	case MethodPoints:
		required := ledger.PointsToCoverCents(totalCents)
		if ledger.PointsToCents(pointsToRedeem) < totalCents {
			return Split{}, fmt.Errorf("%w: %d points requested, %d required", ledger.ErrInsufficientPoints, pointsToRedeem, required)
		}
		// Consume exactly enough points to cover the total, never more.
		split.PointsRedeemed = required
		split.PointsCents = totalCents

	default:
		return Split{}, fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, method)
	}

	return split, nil
}
