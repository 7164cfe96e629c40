package assistant_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pawloft/daycare/internal/assistant"
	"github.com/pawloft/daycare/internal/booking"
	"github.com/pawloft/daycare/internal/store/gormstore"
	"github.com/pawloft/daycare/pkg/identity"
)

type registryFixture struct {
	registry      *assistant.Registry
	database      *gorm.DB
	customerID    uuid.UUID
	dogID         uuid.UUID
	serviceTypeID uuid.UUID
	staff         identity.Actor
	customer      identity.Actor
}

func newRegistryFixture(test *testing.T) *registryFixture {
	test.Helper()
	database, err := gorm.Open(sqlite.Open(test.TempDir()+"/assistant.db"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		test.Fatalf("sqlite open failed: %v", err)
	}
	if err := gormstore.Migrate(database); err != nil {
		test.Fatalf("migrate failed: %v", err)
	}
	if err := gormstore.SeedServiceTypes(database); err != nil {
		test.Fatalf("seed failed: %v", err)
	}
	_, bookingStore, _ := gormstore.New(database)
	bookings, err := booking.NewService(bookingStore, booking.DefaultDailyCapacity, func() int64 { return time.Now().UTC().Unix() }, zap.NewNop())
	if err != nil {
		test.Fatalf("booking service init failed: %v", err)
	}
	registry, err := assistant.NewRegistry(bookings)
	if err != nil {
		test.Fatalf("registry init failed: %v", err)
	}

	customer := gormstore.Customer{Name: "Owner", Email: "owner@example.com", CreatedAt: time.Now().UTC()}
	if err := database.Create(&customer).Error; err != nil {
		test.Fatalf("create customer: %v", err)
	}
	dog := gormstore.Dog{OwnerID: customer.CustomerID, Name: "Peanut", SizeCategory: "small", CreatedAt: time.Now().UTC()}
	if err := database.Create(&dog).Error; err != nil {
		test.Fatalf("create dog: %v", err)
	}
	var serviceType gormstore.ServiceType
	if err := database.Where("kind = ?", "daycare").Take(&serviceType).Error; err != nil {
		test.Fatalf("service type: %v", err)
	}

	customerID := uuid.MustParse(customer.CustomerID)
	staffActor, err := identity.NewStaffActor(uuid.New())
	if err != nil {
		test.Fatalf("staff actor: %v", err)
	}
	customerActor, err := identity.NewCustomerActor(customerID)
	if err != nil {
		test.Fatalf("customer actor: %v", err)
	}
	return &registryFixture{
		registry:      registry,
		database:      database,
		customerID:    customerID,
		dogID:         uuid.MustParse(dog.DogID),
		serviceTypeID: uuid.MustParse(serviceType.ServiceTypeID),
		staff:         staffActor,
		customer:      customerActor,
	}
}

func mustParams(test *testing.T, payload map[string]any) json.RawMessage {
	test.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		test.Fatalf("marshal params: %v", err)
	}
	return raw
}

func singleText(test *testing.T, result assistant.ToolResult) []byte {
	test.Helper()
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		test.Fatalf("expected one text content item, got %+v", result.Content)
	}
	return []byte(result.Content[0].Text)
}

func TestRegistryListsThreeTools(test *testing.T) {
	test.Parallel()
	fixture := newRegistryFixture(test)
	tools := fixture.registry.Tools()
	if len(tools) != 3 {
		test.Fatalf("expected 3 tools, got %d", len(tools))
	}
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
		if tool.Description == "" || tool.InputSchema == nil {
			test.Fatalf("tool %s missing description or schema", tool.Name)
		}
	}
	for _, expected := range []string{"create_booking", "check_schedule", "check_availability"} {
		if !names[expected] {
			test.Fatalf("missing tool %s", expected)
		}
	}
}

func TestInvokeUnknownToolFails(test *testing.T) {
	test.Parallel()
	fixture := newRegistryFixture(test)
	_, err := fixture.registry.Invoke(context.Background(), fixture.staff, "delete_everything", json.RawMessage(`{}`))
	if !errors.Is(err, assistant.ErrUnknownTool) {
		test.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestCreateBookingToolConfirmsForStaff(test *testing.T) {
	test.Parallel()
	fixture := newRegistryFixture(test)
	result, err := fixture.registry.Invoke(context.Background(), fixture.staff, "create_booking", mustParams(test, map[string]any{
		"customer_id":     fixture.customerID.String(),
		"service_type_id": fixture.serviceTypeID.String(),
		"dog_ids":         []string{fixture.dogID.String()},
		"start_date":      "2026-11-02",
		"end_date":        "2026-11-02",
	}))
	if err != nil {
		test.Fatalf("invoke create_booking: %v", err)
	}
	var created struct {
		BookingID  string `json:"booking_id"`
		Status     string `json:"status"`
		TotalCents int64  `json:"total_cents"`
	}
	if err := json.Unmarshal(singleText(test, result), &created); err != nil {
		test.Fatalf("decode result: %v", err)
	}
	if created.Status != "confirmed" {
		test.Fatalf("staff booking should start confirmed, got %s", created.Status)
	}
	if created.TotalCents != 4_200 {
		test.Fatalf("expected 4200 cents, got %d", created.TotalCents)
	}
}

func TestCheckScheduleToolRequiresStaff(test *testing.T) {
	test.Parallel()
	fixture := newRegistryFixture(test)
	_, err := fixture.registry.Invoke(context.Background(), fixture.customer, "check_schedule", mustParams(test, map[string]any{
		"date": "2026-11-02",
	}))
	if !errors.Is(err, booking.ErrStaffOnly) {
		test.Fatalf("expected ErrStaffOnly, got %v", err)
	}
}

func TestCheckAvailabilityToolReportsCapacity(test *testing.T) {
	test.Parallel()
	fixture := newRegistryFixture(test)
	result, err := fixture.registry.Invoke(context.Background(), fixture.customer, "check_availability", mustParams(test, map[string]any{
		"service_type_id": fixture.serviceTypeID.String(),
		"start_date":      "2026-11-02",
		"end_date":        "2026-11-03",
	}))
	if err != nil {
		test.Fatalf("invoke check_availability: %v", err)
	}
	var envelope struct {
		Days []struct {
			Date           string `json:"date"`
			Available      bool   `json:"available"`
			SpotsRemaining int    `json:"spots_remaining"`
		} `json:"days"`
	}
	if err := json.Unmarshal(singleText(test, result), &envelope); err != nil {
		test.Fatalf("decode result: %v", err)
	}
	if len(envelope.Days) != 2 {
		test.Fatalf("expected 2 days, got %d", len(envelope.Days))
	}
	for _, day := range envelope.Days {
		if !day.Available || day.SpotsRemaining != booking.DefaultDailyCapacity {
			test.Fatalf("unexpected day %+v", day)
		}
	}
}
