package booking

import "fmt"

// Grooming is priced per dog from a size-category x coat-condition matrix.
// Ratings run 1 (well kept) through 5 (heavily matted).
const (
	MinConditionRating = 1
	MaxConditionRating = 5
)

var groomingPriceMatrixCents = map[SizeCategory][MaxConditionRating]int64{
	SizeSmall:  {4_500, 5_500, 6_500, 7_500, 9_000},
	SizeMedium: {6_000, 7_000, 8_500, 10_000, 12_000},
	SizeLarge:  {7_500, 9_000, 11_000, 13_000, 15_500},
}

// GroomingPriceCents looks up the quoted price for one dog.
func GroomingPriceCents(size SizeCategory, rating int) (int64, error) {
	if rating < MinConditionRating || rating > MaxConditionRating {
		return 0, fmt.Errorf("%w: %d", ErrInvalidConditionRating, rating)
	}
	row, ok := groomingPriceMatrixCents[size]
	if !ok {
		return 0, fmt.Errorf("%w: unknown size %q", ErrInvalidConditionRating, size)
	}
	return row[rating-1], nil
}

// priceAtCreation computes TotalCents when the booking is created. Daycare
// and boarding charge per dog per day. Grooming dogs are unpriced until a
// staff member records a condition rating, so they contribute zero here.
func priceAtCreation(serviceType ServiceType, dogCount int, days int) int64 {
	if serviceType.Kind == ServiceGrooming {
		return 0
	}
	return serviceType.PerDogPerDayCents * int64(dogCount) * int64(days)
}

// groomingTotal sums quoted prices once every dog on the booking is rated.
// It returns false while any dog is still unrated.
func groomingTotal(dogs []BookingDog) (int64, bool) {
	var total int64
	for _, bookingDog := range dogs {
		if bookingDog.QuotedPriceCents == nil {
			return 0, false
		}
		total += *bookingDog.QuotedPriceCents
	}
	return total, true
}
