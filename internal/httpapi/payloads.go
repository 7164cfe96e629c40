package httpapi

import (
	"encoding/json"

	"github.com/pawloft/daycare/internal/booking"
	"github.com/pawloft/daycare/internal/checkout"
)

type availabilityPayload struct {
	Date           string `json:"date"`
	Available      bool   `json:"available"`
	SpotsRemaining int    `json:"spots_remaining"`
	TotalCapacity  int    `json:"total_capacity"`
}

type bookingDogPayload struct {
	DogID            string `json:"dog_id"`
	ConditionRating  *int   `json:"condition_rating,omitempty"`
	QuotedPriceCents *int64 `json:"quoted_price_cents,omitempty"`
}

type bookingPayload struct {
	BookingID    string              `json:"booking_id"`
	CustomerID   string              `json:"customer_id"`
	ServiceKind  string              `json:"service_kind"`
	StartDate    string              `json:"start_date"`
	EndDate      string              `json:"end_date"`
	Status       string              `json:"status"`
	TotalCents   int64               `json:"total_cents"`
	Notes        string              `json:"notes,omitempty"`
	CancelReason string              `json:"cancel_reason,omitempty"`
	Dogs         []bookingDogPayload `json:"dogs"`
}

func bookingPayloadFrom(record booking.Booking) bookingPayload {
	dogs := make([]bookingDogPayload, 0, len(record.Dogs))
	for _, bookingDog := range record.Dogs {
		dogs = append(dogs, bookingDogPayload{
			DogID:            bookingDog.DogID.String(),
			ConditionRating:  bookingDog.ConditionRating,
			QuotedPriceCents: bookingDog.QuotedPriceCents,
		})
	}
	return bookingPayload{
		BookingID:    record.BookingID.String(),
		CustomerID:   record.CustomerID.String(),
		ServiceKind:  string(record.ServiceKind),
		StartDate:    record.StartDate.String(),
		EndDate:      record.EndDate.String(),
		Status:       record.Status.String(),
		TotalCents:   record.TotalCents,
		Notes:        record.Notes,
		CancelReason: record.CancelReason,
		Dogs:         dogs,
	}
}

type balancePayload struct {
	WalletBalanceCents int64  `json:"wallet_balance_cents"`
	PointsBalance      int64  `json:"points_balance"`
	Tier               string `json:"tier"`
	ReloadSuggested    bool   `json:"reload_suggested"`
}

type walletTransactionPayload struct {
	TransactionID     string          `json:"transaction_id"`
	Type              string          `json:"type"`
	AmountCents       int64           `json:"amount_cents"`
	BalanceAfterCents int64           `json:"balance_after_cents"`
	Description       string          `json:"description,omitempty"`
	Metadata          json.RawMessage `json:"metadata"`
	CreatedUnixUTC    int64           `json:"created_unix_utc"`
}

type pointsTransactionPayload struct {
	TransactionID  string `json:"transaction_id"`
	Type           string `json:"type"`
	Amount         int64  `json:"amount"`
	BalanceAfter   int64  `json:"balance_after"`
	Description    string `json:"description,omitempty"`
	CreatedUnixUTC int64  `json:"created_unix_utc"`
}

type splitPayload struct {
	TotalCents     int64 `json:"total_cents"`
	WalletCents    int64 `json:"wallet_cents"`
	CardCents      int64 `json:"card_cents"`
	PointsCents    int64 `json:"points_cents"`
	PointsRedeemed int64 `json:"points_redeemed"`
	TipCents       int64 `json:"tip_cents"`
}

type resultPayload struct {
	PaymentID     string       `json:"payment_id"`
	TransactionID string       `json:"transaction_id"`
	Method        string       `json:"method"`
	Split         splitPayload `json:"split"`
	BookingIDs    []string     `json:"booking_ids"`
	PointsEarned  int64        `json:"points_earned"`
	PointsCapped  int64        `json:"points_capped"`
	Replayed      bool         `json:"replayed"`
}

func resultPayloadFrom(result checkout.Result) resultPayload {
	bookingIDs := make([]string, 0, len(result.BookingIDs))
	for _, bookingID := range result.BookingIDs {
		bookingIDs = append(bookingIDs, bookingID.String())
	}
	return resultPayload{
		PaymentID:     result.PaymentID.String(),
		TransactionID: result.TransactionID,
		Method:        string(result.Method),
		Split: splitPayload{
			TotalCents:     result.Split.TotalCents,
			WalletCents:    result.Split.WalletCents,
			CardCents:      result.Split.CardCents,
			PointsCents:    result.Split.PointsCents,
			PointsRedeemed: result.Split.PointsRedeemed,
			TipCents:       result.Split.TipCents,
		},
		BookingIDs:   bookingIDs,
		PointsEarned: result.PointsEarned,
		PointsCapped: result.PointsCapped,
		Replayed:     result.Replayed,
	}
}

type paymentPayload struct {
	PaymentID         string   `json:"payment_id"`
	CustomerID        string   `json:"customer_id"`
	Method            string   `json:"method"`
	Status            string   `json:"status"`
	TotalCents        int64    `json:"total_cents"`
	WalletAmountCents int64    `json:"wallet_amount_cents"`
	CardAmountCents   int64    `json:"card_amount_cents"`
	PointsRedeemed    int64    `json:"points_redeemed"`
	PointsAmountCents int64    `json:"points_amount_cents"`
	TipCents          int64    `json:"tip_cents"`
	PointsEarned      int64    `json:"points_earned"`
	PointsCapped      int64    `json:"points_capped"`
	TransactionID     string   `json:"transaction_id"`
	BookingIDs        []string `json:"booking_ids"`
	CreatedUnixUTC    int64    `json:"created_unix_utc"`
}

func paymentPayloadFrom(payment checkout.Payment) paymentPayload {
	bookingIDs := make([]string, 0, len(payment.BookingIDs))
	for _, bookingID := range payment.BookingIDs {
		bookingIDs = append(bookingIDs, bookingID.String())
	}
	return paymentPayload{
		PaymentID:         payment.PaymentID.String(),
		CustomerID:        payment.CustomerID.String(),
		Method:            string(payment.Method),
		Status:            string(payment.Status),
		TotalCents:        payment.TotalCents,
		WalletAmountCents: payment.WalletAmountCents,
		CardAmountCents:   payment.CardAmountCents,
		PointsRedeemed:    payment.PointsRedeemed,
		PointsAmountCents: payment.PointsAmountCents,
		TipCents:          payment.TipCents,
		PointsEarned:      payment.PointsEarned,
		PointsCapped:      payment.PointsCapped,
		TransactionID:     payment.TransactionID,
		BookingIDs:        bookingIDs,
		CreatedUnixUTC:    payment.CreatedUnixUTC,
	}
}

type receiptLinePayload struct {
	BookingID   string   `json:"booking_id"`
	ServiceName string   `json:"service_name"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	DogNames    []string `json:"dog_names"`
	TotalCents  int64    `json:"total_cents"`
}
