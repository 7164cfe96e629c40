package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pawloft/daycare/internal/assistant"
	"github.com/pawloft/daycare/internal/booking"
	"github.com/pawloft/daycare/internal/checkout"
	"github.com/pawloft/daycare/pkg/identity"
	"github.com/pawloft/daycare/pkg/ledger"
)

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

type errorMapping struct {
	sentinel error
	status   int
	code     string
}

var errorMappings = []errorMapping{
	{identity.ErrInvalidActor, http.StatusForbidden, "forbidden"},
	{booking.ErrStaffOnly, http.StatusForbidden, "staff_only"},
	{ledger.ErrStaffOnly, http.StatusForbidden, "staff_only"},
	{booking.ErrNotBookingOwner, http.StatusForbidden, "forbidden"},
	{booking.ErrInvalidDogOwnership, http.StatusForbidden, "dog_ownership"},
	{checkout.ErrNotPaymentOwner, http.StatusForbidden, "forbidden"},

	{booking.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{booking.ErrServiceTypeNotFound, http.StatusNotFound, "service_type_not_found"},
	{booking.ErrDogNotFound, http.StatusNotFound, "dog_not_found"},
	{booking.ErrDogNotOnBooking, http.StatusNotFound, "dog_not_on_booking"},
	{ledger.ErrWalletNotFound, http.StatusNotFound, "wallet_not_found"},
	{ledger.ErrCustomerNotFound, http.StatusNotFound, "customer_not_found"},
	{checkout.ErrPaymentNotFound, http.StatusNotFound, "payment_not_found"},
	{assistant.ErrUnknownTool, http.StatusNotFound, "unknown_tool"},

	{booking.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
	{booking.ErrInvalidStatusTransition, http.StatusConflict, "invalid_transition"},
	{checkout.ErrBookingsNotEligible, http.StatusConflict, "bookings_not_eligible"},
	{checkout.ErrDuplicateIdempotencyKey, http.StatusConflict, "duplicate_idempotency_key"},
	{checkout.ErrBookingsNotPriced, http.StatusConflict, "bookings_not_priced"},
	{booking.ErrBookingAlreadyPaid, http.StatusConflict, "booking_already_paid"},

	{ledger.ErrInsufficientWalletBalance, http.StatusPaymentRequired, "insufficient_wallet_balance"},
	{ledger.ErrInsufficientPoints, http.StatusPaymentRequired, "insufficient_points"},

	{booking.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{booking.ErrInvalidDateRange, http.StatusBadRequest, "invalid_date_range"},
	{booking.ErrNoDogs, http.StatusBadRequest, "no_dogs"},
	{booking.ErrInvalidConditionRating, http.StatusBadRequest, "invalid_rating"},
	{booking.ErrInvalidServiceType, http.StatusBadRequest, "invalid_service_type"},
	{ledger.ErrLoadAmountOutOfRange, http.StatusBadRequest, "load_amount_out_of_range"},
	{ledger.ErrDailyLoadCapExceeded, http.StatusBadRequest, "daily_load_cap_exceeded"},
	{ledger.ErrInvalidAmountCents, http.StatusBadRequest, "invalid_amount"},
	{ledger.ErrInvalidPoints, http.StatusBadRequest, "invalid_points"},
	{ledger.ErrInvalidMetadataJSON, http.StatusBadRequest, "invalid_metadata"},
	{checkout.ErrSplitAmountInvalid, http.StatusBadRequest, "invalid_split"},
	{checkout.ErrUnknownPaymentMethod, http.StatusBadRequest, "unknown_payment_method"},
	{checkout.ErrNoBookings, http.StatusBadRequest, "no_bookings"},
	{checkout.ErrInvalidTip, http.StatusBadRequest, "invalid_tip"},
}

// respondError translates a domain failure into an HTTP response. Unmatched
// errors become a 500 with an opaque message.
func (server *Server) respondError(ctx *gin.Context, err error) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.sentinel) {
			ctx.JSON(mapping.status, errorResponse(mapping.code, err.Error()))
			return
		}
	}
	server.logger.Error("request failed", zap.Error(err), zap.String("path", ctx.FullPath()))
	ctx.JSON(http.StatusInternalServerError, errorResponse("internal", "internal error"))
}
