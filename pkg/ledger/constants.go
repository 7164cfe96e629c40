package ledger

// Fixed business constants shared by the wallet and points ledgers.
const (
	// CentsPerPoint is the redemption value of one loyalty point.
	CentsPerPoint = 10

	// PointsBalanceCap is the maximum points balance any customer may hold.
	// Accruals that would exceed it are silently truncated.
	PointsBalanceCap = 500

	// MinLoadCents and MaxLoadCents bound a single wallet load.
	MinLoadCents = 500
	MaxLoadCents = 50_000

	// DailyLoadCapCents bounds the sum of load transactions per UTC day.
	DailyLoadCapCents = 100_000

	walletPointsPerDollar = 2
	cardPointsPerDollar   = 1

	// Grooming checkouts accrue at 1.5x, applied with integer math.
	groomingBonusNumerator   = 3
	groomingBonusDenominator = 2

	centsPerDollar = 100
)

const (
	operationLoad    = "load"
	operationDeduct  = "deduct"
	operationRefund  = "refund"
	operationAccrue  = "accrue"
	operationRedeem  = "redeem"
	operationBalance = "balance"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)
