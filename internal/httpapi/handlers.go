package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pawloft/daycare/internal/booking"
	"github.com/pawloft/daycare/internal/checkout"
	"github.com/pawloft/daycare/internal/metrics"
	"github.com/pawloft/daycare/pkg/identity"
	"github.com/pawloft/daycare/pkg/ledger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

func (server *Server) handleAvailability(ctx *gin.Context) {
	serviceTypeID, err := uuid.Parse(ctx.Query("service_type_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_service_type", "service_type_id must be a UUID"))
		return
	}
	startDate, err := booking.NewDate(ctx.Query("start"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	endDate, err := booking.NewDate(ctx.Query("end"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	days, err := server.bookings.CheckAvailability(ctx.Request.Context(), serviceTypeID, startDate, endDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	payload := make([]availabilityPayload, 0, len(days))
	for _, day := range days {
		payload = append(payload, availabilityPayload{
			Date:           day.Date.String(),
			Available:      day.Available,
			SpotsRemaining: day.SpotsRemaining,
			TotalCapacity:  day.TotalCapacity,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"days": payload})
}

type createBookingRequest struct {
	CustomerID    string   `json:"customer_id"`
	ServiceTypeID string   `json:"service_type_id"`
	DogIDs        []string `json:"dog_ids"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	Notes         string   `json:"notes"`
}

func (server *Server) handleCreateBooking(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	var request createBookingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	customerID := actor.ID
	if request.CustomerID != "" {
		parsed, err := uuid.Parse(request.CustomerID)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_customer", "customer_id must be a UUID"))
			return
		}
		customerID = parsed
	}
	serviceTypeID, err := uuid.Parse(request.ServiceTypeID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_service_type", "service_type_id must be a UUID"))
		return
	}
	dogIDs := make([]uuid.UUID, 0, len(request.DogIDs))
	for _, raw := range request.DogIDs {
		dogID, err := uuid.Parse(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_dog", "dog_ids must be UUIDs"))
			return
		}
		dogIDs = append(dogIDs, dogID)
	}
	startDate, err := booking.NewDate(request.StartDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	endDate, err := booking.NewDate(request.EndDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}

	created, err := server.bookings.CreateBooking(ctx.Request.Context(), actor, booking.CreateInput{
		CustomerID:    customerID,
		ServiceTypeID: serviceTypeID,
		DogIDs:        dogIDs,
		StartDate:     startDate,
		EndDate:       endDate,
		Notes:         request.Notes,
	})
	if err != nil {
		if errorIsCapacity(err) {
			metrics.IncBookingRejected("capacity")
		}
		server.respondError(ctx, err)
		return
	}
	metrics.IncBookingCreated(string(created.ServiceKind))
	ctx.JSON(http.StatusCreated, gin.H{"booking": bookingPayloadFrom(created)})
}

func (server *Server) handleListBookings(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	customerID := actor.ID
	if raw := ctx.Query("customer_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_customer", "customer_id must be a UUID"))
			return
		}
		customerID = parsed
	}
	limit := parseLimit(ctx.Query("limit"))
	bookings, err := server.bookings.ListCustomerBookings(ctx.Request.Context(), actor, customerID, limit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	payload := make([]bookingPayload, 0, len(bookings))
	for _, record := range bookings {
		payload = append(payload, bookingPayloadFrom(record))
	}
	ctx.JSON(http.StatusOK, gin.H{"bookings": payload})
}

func (server *Server) handleGetBooking(ctx *gin.Context) {
	actor, bookingID, ok := server.actorAndID(ctx)
	if !ok {
		return
	}
	record, err := server.bookings.GetBooking(ctx.Request.Context(), actor, bookingID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"booking": bookingPayloadFrom(record)})
}

func (server *Server) handleSchedule(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	if !actor.IsStaff() {
		server.respondError(ctx, booking.ErrStaffOnly)
		return
	}
	date, err := booking.NewDate(ctx.Query("date"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	bookings, err := server.bookings.Schedule(ctx.Request.Context(), date)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	payload := make([]bookingPayload, 0, len(bookings))
	for _, record := range bookings {
		payload = append(payload, bookingPayloadFrom(record))
	}
	ctx.JSON(http.StatusOK, gin.H{"date": date.String(), "bookings": payload})
}

func (server *Server) handleConfirm(ctx *gin.Context) {
	server.handleTransition(ctx, server.bookings.Confirm)
}

func (server *Server) handleCheckIn(ctx *gin.Context) {
	server.handleTransition(ctx, server.bookings.CheckIn)
}

func (server *Server) handleCheckOut(ctx *gin.Context) {
	server.handleTransition(ctx, server.bookings.CheckOut)
}

func (server *Server) handleNoShow(ctx *gin.Context) {
	server.handleTransition(ctx, server.bookings.NoShow)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (server *Server) handleCancel(ctx *gin.Context) {
	actor, bookingID, ok := server.actorAndID(ctx)
	if !ok {
		return
	}
	var request cancelRequest
	_ = ctx.ShouldBindJSON(&request)
	if err := server.bookings.Cancel(ctx.Request.Context(), actor, bookingID, request.Reason); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

type transitionFunc func(ctx context.Context, actor identity.Actor, bookingID uuid.UUID) error

func (server *Server) handleTransition(ctx *gin.Context, transition transitionFunc) {
	actor, bookingID, ok := server.actorAndID(ctx)
	if !ok {
		return
	}
	if err := transition(ctx.Request.Context(), actor, bookingID); err != nil {
		server.respondError(ctx, err)
		return
	}
	record, err := server.bookings.GetBooking(ctx.Request.Context(), actor, bookingID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"booking": bookingPayloadFrom(record)})
}

type rateDogRequest struct {
	Rating int `json:"rating"`
}

func (server *Server) handleRateDog(ctx *gin.Context) {
	actor, bookingID, ok := server.actorAndID(ctx)
	if !ok {
		return
	}
	dogID, err := uuid.Parse(ctx.Param("dogID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_dog", "dog id must be a UUID"))
		return
	}
	var request rateDogRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	record, err := server.bookings.RateDog(ctx.Request.Context(), actor, bookingID, dogID, request.Rating)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"booking": bookingPayloadFrom(record)})
}

func (server *Server) handleWallet(ctx *gin.Context) {
	_, customerID, ok := server.actorAndTargetCustomer(ctx)
	if !ok {
		return
	}
	view, err := server.wallets.Balance(ctx.Request.Context(), customerID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"balance": balancePayload{
		WalletBalanceCents: view.WalletBalanceCents.Int64(),
		PointsBalance:      view.PointsBalance,
		Tier:               string(view.Tier),
		ReloadSuggested:    view.ReloadSuggested,
	}})
}

type walletLoadRequest struct {
	CustomerID  string         `json:"customer_id"`
	AmountCents int64          `json:"amount_cents"`
	Metadata    map[string]any `json:"metadata"`
}

func (server *Server) handleWalletLoad(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	var request walletLoadRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	customerID := actor.ID
	if request.CustomerID != "" {
		parsed, err := uuid.Parse(request.CustomerID)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_customer", "customer_id must be a UUID"))
			return
		}
		if parsed != actor.ID && !actor.IsStaff() {
			server.respondError(ctx, identity.ErrInvalidActor)
			return
		}
		customerID = parsed
	}
	amount, err := ledger.NewPositiveAmountCents(request.AmountCents)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	metadata, err := ledger.NewMetadataJSON(marshalMetadata(request.Metadata))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	result, err := server.wallets.LoadFunds(ctx.Request.Context(), actor, customerID, amount, metadata)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	metrics.IncWalletLoad()
	ctx.JSON(http.StatusOK, gin.H{"balance_after_cents": result.BalanceAfterCents.Int64()})
}

type walletRefundRequest struct {
	CustomerID  string `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	BookingID   string `json:"booking_id"`
}

func (server *Server) handleWalletRefund(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	var request walletRefundRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	customerID, err := uuid.Parse(request.CustomerID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_customer", "customer_id must be a UUID"))
		return
	}
	amount, err := ledger.NewPositiveAmountCents(request.AmountCents)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	var bookingID *uuid.UUID
	if request.BookingID != "" {
		parsed, err := uuid.Parse(request.BookingID)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_booking", "booking_id must be a UUID"))
			return
		}
		bookingID = &parsed
	}
	result, err := server.wallets.Refund(ctx.Request.Context(), actor, customerID, amount, request.Description, bookingID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"balance_after_cents": result.BalanceAfterCents.Int64()})
}

func (server *Server) handleStatement(ctx *gin.Context) {
	_, customerID, ok := server.actorAndTargetCustomer(ctx)
	if !ok {
		return
	}
	limit := parseLimit(ctx.Query("limit"))
	walletRows, pointsRows, err := server.wallets.Statement(ctx.Request.Context(), customerID, limit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	walletPayloads := make([]walletTransactionPayload, 0, len(walletRows))
	for _, row := range walletRows {
		walletPayloads = append(walletPayloads, walletTransactionPayload{
			TransactionID:     row.TransactionID.String(),
			Type:              row.Type.String(),
			AmountCents:       row.AmountCents.Int64(),
			BalanceAfterCents: row.BalanceAfterCents.Int64(),
			Description:       row.Description,
			Metadata:          json.RawMessage(metadataOrEmpty(row.MetadataJSON)),
			CreatedUnixUTC:    row.CreatedUnixUTC,
		})
	}
	pointsPayloads := make([]pointsTransactionPayload, 0, len(pointsRows))
	for _, row := range pointsRows {
		pointsPayloads = append(pointsPayloads, pointsTransactionPayload{
			TransactionID:  row.TransactionID.String(),
			Type:           row.Type.String(),
			Amount:         row.Amount,
			BalanceAfter:   row.BalanceAfter,
			Description:    row.Description,
			CreatedUnixUTC: row.CreatedUnixUTC,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{
		"wallet_transactions": walletPayloads,
		"points_transactions": pointsPayloads,
	})
}

type checkoutRequest struct {
	CustomerID        string   `json:"customer_id"`
	BookingIDs        []string `json:"booking_ids"`
	Method            string   `json:"method"`
	WalletAmountCents int64    `json:"wallet_amount_cents"`
	PointsToRedeem    int64    `json:"points_to_redeem"`
	TipCents          int64    `json:"tip_cents"`
	IdempotencyKey    string   `json:"idempotency_key"`
}

func (server *Server) handleCheckout(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	var request checkoutRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	customerID := actor.ID
	if request.CustomerID != "" {
		parsed, err := uuid.Parse(request.CustomerID)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_customer", "customer_id must be a UUID"))
			return
		}
		customerID = parsed
	}
	method, err := checkout.ParsePaymentMethod(request.Method)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	bookingIDs := make([]uuid.UUID, 0, len(request.BookingIDs))
	for _, raw := range request.BookingIDs {
		bookingID, err := uuid.Parse(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_booking", "booking_ids must be UUIDs"))
			return
		}
		bookingIDs = append(bookingIDs, bookingID)
	}
	idempotencyKey := request.IdempotencyKey
	if headerKey := ctx.GetHeader("Idempotency-Key"); headerKey != "" {
		idempotencyKey = headerKey
	}

	result, err := server.checkouts.ProcessCheckout(ctx.Request.Context(), actor, customerID, checkout.Request{
		BookingIDs:        bookingIDs,
		Method:            method,
		WalletAmountCents: request.WalletAmountCents,
		PointsToRedeem:    request.PointsToRedeem,
		TipCents:          request.TipCents,
		IdempotencyKey:    idempotencyKey,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	if result.Replayed {
		metrics.IncCheckoutReplay()
	} else {
		metrics.ObserveCheckout(string(result.Method), result.Split.TotalCents)
		metrics.AddPointsCapped(result.PointsCapped)
	}
	ctx.JSON(http.StatusOK, gin.H{"payment": resultPayloadFrom(result)})
}

func (server *Server) handleReceipt(ctx *gin.Context) {
	actor, paymentID, ok := server.actorAndID(ctx)
	if !ok {
		return
	}
	receipt, err := server.checkouts.Receipt(ctx.Request.Context(), actor, paymentID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	lines := make([]receiptLinePayload, 0, len(receipt.Lines))
	for _, line := range receipt.Lines {
		lines = append(lines, receiptLinePayload{
			BookingID:   line.BookingID.String(),
			ServiceName: line.ServiceName,
			StartDate:   line.StartDate,
			EndDate:     line.EndDate,
			DogNames:    line.DogNames,
			TotalCents:  line.TotalCents,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{
		"payment": paymentPayloadFrom(receipt.Payment),
		"lines":   lines,
	})
}

func (server *Server) handleRosterExport(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	if !actor.IsStaff() {
		server.respondError(ctx, booking.ErrStaffOnly)
		return
	}
	date, err := booking.NewDate(ctx.Query("date"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	workbook, err := server.roster.Daily(ctx.Request.Context(), date)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="roster-`+date.String()+`.xlsx"`)
	ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

func (server *Server) handleListTools(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"tools": server.tools.Tools()})
}

type invokeToolRequest struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params"`
}

func (server *Server) handleInvokeTool(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	var request invokeToolRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	if len(request.Params) == 0 {
		request.Params = json.RawMessage(`{}`)
	}
	result, err := server.tools.Invoke(ctx.Request.Context(), actor, request.Name, request.Params)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"result": result})
}

func (server *Server) actorAndID(ctx *gin.Context) (identity.Actor, uuid.UUID, bool) {
	actor, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return identity.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_id", "id must be a UUID"))
		return identity.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

// actorAndTargetCustomer resolves whose wallet a read-only endpoint targets:
// customers always get their own, staff may name any customer.
func (server *Server) actorAndTargetCustomer(ctx *gin.Context) (identity.Actor, uuid.UUID, bool) {
	actor, ok := actorFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return identity.Actor{}, uuid.Nil, false
	}
	customerID := actor.ID
	if raw := ctx.Query("customer_id"); raw != "" {
		if !actor.IsStaff() {
			server.respondError(ctx, identity.ErrInvalidActor)
			return identity.Actor{}, uuid.Nil, false
		}
		parsed, err := uuid.Parse(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_customer", "customer_id must be a UUID"))
			return identity.Actor{}, uuid.Nil, false
		}
		customerID = parsed
	}
	return actor, customerID, true
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultHistoryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func marshalMetadata(metadata map[string]any) string {
	if metadata == nil {
		return "{}"
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func metadataOrEmpty(raw string) string {
	if raw == "" {
		return "{}"
	}
	return raw
}

func errorIsCapacity(err error) bool {
	return errors.Is(err, booking.ErrCapacityExceeded)
}
