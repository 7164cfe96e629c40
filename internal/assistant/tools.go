package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pawloft/daycare/internal/booking"
	"github.com/pawloft/daycare/pkg/identity"
)

// ErrUnknownTool indicates an invocation of a tool the registry does not hold.
var ErrUnknownTool = errors.New("unknown tool")

// Tool describes one callable tool exposed to the assistant.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// ToolResult is returned from tool invocations.
type ToolResult struct {
	Content []ToolContent `json:"content"`
}

// ToolContent holds a single piece of tool output.
type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolHandler func(ctx context.Context, actor identity.Actor, params json.RawMessage) (ToolResult, error)

type toolEntry struct {
	Tool    Tool
	Handler toolHandler
}

// Registry dispatches assistant tool calls onto the booking service. The
// actor travels with every invocation; the services enforce permissions the
// same way they do for direct API calls.
type Registry struct {
	bookings *booking.Service
	entries  []toolEntry
}

// NewRegistry builds the tool registry.
func NewRegistry(bookings *booking.Service) (*Registry, error) {
	if bookings == nil {
		return nil, fmt.Errorf("%w: booking service dependency is nil", booking.ErrInvalidServiceConfig)
	}
	registry := &Registry{bookings: bookings}
	registry.entries = []toolEntry{
		{
			Tool: Tool{
				Name:        "create_booking",
				Description: "Create a booking for a customer. Staff-created bookings start confirmed. Dates are inclusive ISO YYYY-MM-DD; a single day uses the same start and end date.",
				InputSchema: json.RawMessage(`{"type": "object", "properties": {"customer_id": {"type": "string"}, "service_type_id": {"type": "string"}, "dog_ids": {"type": "array", "items": {"type": "string"}}, "start_date": {"type": "string"}, "end_date": {"type": "string"}, "notes": {"type": "string"}}, "required": ["customer_id", "service_type_id", "dog_ids", "start_date", "end_date"]}`),
			},
			Handler: registry.handleCreateBooking,
		},
		{
			Tool: Tool{
				Name:        "check_schedule",
				Description: "List all bookings covering one date with their status and total.",
				InputSchema: json.RawMessage(`{"type": "object", "properties": {"date": {"type": "string", "description": "ISO date YYYY-MM-DD"}}, "required": ["date"]}`),
			},
			Handler: registry.handleCheckSchedule,
		},
		{
			Tool: Tool{
				Name:        "check_availability",
				Description: "Report remaining capacity per day across an inclusive date range.",
				InputSchema: json.RawMessage(`{"type": "object", "properties": {"service_type_id": {"type": "string"}, "start_date": {"type": "string"}, "end_date": {"type": "string"}}, "required": ["service_type_id", "start_date", "end_date"]}`),
			},
			Handler: registry.handleCheckAvailability,
		},
	}
	return registry, nil
}

// Tools lists the registered tool definitions.
func (registry *Registry) Tools() []Tool {
	tools := make([]Tool, 0, len(registry.entries))
	for _, entry := range registry.entries {
		tools = append(tools, entry.Tool)
	}
	return tools
}

// Invoke runs one tool by name.
func (registry *Registry) Invoke(ctx context.Context, actor identity.Actor, name string, params json.RawMessage) (ToolResult, error) {
	for _, entry := range registry.entries {
		if entry.Tool.Name == name {
			return entry.Handler(ctx, actor, params)
		}
	}
	return ToolResult{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

type createBookingParams struct {
	CustomerID    string   `json:"customer_id"`
	ServiceTypeID string   `json:"service_type_id"`
	DogIDs        []string `json:"dog_ids"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	Notes         string   `json:"notes"`
}

func (registry *Registry) handleCreateBooking(ctx context.Context, actor identity.Actor, params json.RawMessage) (ToolResult, error) {
	var request createBookingParams
	if err := json.Unmarshal(params, &request); err != nil {
		return ToolResult{}, fmt.Errorf("create_booking params: %w", err)
	}
	customerID, err := uuid.Parse(request.CustomerID)
	if err != nil {
		return ToolResult{}, fmt.Errorf("create_booking customer_id: %w", err)
	}
	serviceTypeID, err := uuid.Parse(request.ServiceTypeID)
	if err != nil {
		return ToolResult{}, fmt.Errorf("create_booking service_type_id: %w", err)
	}
	dogIDs := make([]uuid.UUID, 0, len(request.DogIDs))
	for _, raw := range request.DogIDs {
		dogID, err := uuid.Parse(raw)
		if err != nil {
			return ToolResult{}, fmt.Errorf("create_booking dog_ids: %w", err)
		}
		dogIDs = append(dogIDs, dogID)
	}
	startDate, err := booking.NewDate(request.StartDate)
	if err != nil {
		return ToolResult{}, err
	}
	endDate, err := booking.NewDate(request.EndDate)
	if err != nil {
		return ToolResult{}, err
	}

	created, err := registry.bookings.CreateBooking(ctx, actor, booking.CreateInput{
		CustomerID:    customerID,
		ServiceTypeID: serviceTypeID,
		DogIDs:        dogIDs,
		StartDate:     startDate,
		EndDate:       endDate,
		Notes:         request.Notes,
	})
	if err != nil {
		return ToolResult{}, err
	}
	return jsonResult(map[string]any{
		"booking_id":  created.BookingID.String(),
		"status":      created.Status.String(),
		"total_cents": created.TotalCents,
		"start_date":  created.StartDate.String(),
		"end_date":    created.EndDate.String(),
	})
}

type checkScheduleParams struct {
	Date string `json:"date"`
}

func (registry *Registry) handleCheckSchedule(ctx context.Context, actor identity.Actor, params json.RawMessage) (ToolResult, error) {
	if !actor.IsStaff() {
		return ToolResult{}, booking.ErrStaffOnly
	}
	var request checkScheduleParams
	if err := json.Unmarshal(params, &request); err != nil {
		return ToolResult{}, fmt.Errorf("check_schedule params: %w", err)
	}
	date, err := booking.NewDate(request.Date)
	if err != nil {
		return ToolResult{}, err
	}
	bookings, err := registry.bookings.Schedule(ctx, date)
	if err != nil {
		return ToolResult{}, err
	}
	rows := make([]map[string]any, 0, len(bookings))
	for _, record := range bookings {
		rows = append(rows, map[string]any{
			"booking_id":   record.BookingID.String(),
			"customer_id":  record.CustomerID.String(),
			"service_kind": string(record.ServiceKind),
			"status":       record.Status.String(),
			"dogs":         len(record.Dogs),
			"total_cents":  record.TotalCents,
		})
	}
	return jsonResult(map[string]any{"date": date.String(), "bookings": rows})
}

type checkAvailabilityParams struct {
	ServiceTypeID string `json:"service_type_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

func (registry *Registry) handleCheckAvailability(ctx context.Context, actor identity.Actor, params json.RawMessage) (ToolResult, error) {
	var request checkAvailabilityParams
	if err := json.Unmarshal(params, &request); err != nil {
		return ToolResult{}, fmt.Errorf("check_availability params: %w", err)
	}
	serviceTypeID, err := uuid.Parse(request.ServiceTypeID)
	if err != nil {
		return ToolResult{}, fmt.Errorf("check_availability service_type_id: %w", err)
	}
	startDate, err := booking.NewDate(request.StartDate)
	if err != nil {
		return ToolResult{}, err
	}
	endDate, err := booking.NewDate(request.EndDate)
	if err != nil {
		return ToolResult{}, err
	}
	days, err := registry.bookings.CheckAvailability(ctx, serviceTypeID, startDate, endDate)
	if err != nil {
		return ToolResult{}, err
	}
	rows := make([]map[string]any, 0, len(days))
	for _, day := range days {
		rows = append(rows, map[string]any{
			"date":            day.Date.String(),
			"available":       day.Available,
			"spots_remaining": day.SpotsRemaining,
			"total_capacity":  day.TotalCapacity,
		})
	}
	return jsonResult(map[string]any{"days": rows})
}

func jsonResult(payload any) (ToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ToolResult{}, fmt.Errorf("encode tool result: %w", err)
	}
	return ToolResult{Content: []ToolContent{{Type: "text", Text: string(raw)}}}, nil
}
