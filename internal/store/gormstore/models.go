package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Customer holds identity plus the points balance. The balance is mutated
// only through the conditional updates in this package, never assigned.
type Customer struct {
	CustomerID    string    `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"not null"`
	Email         string    `gorm:"not null;uniqueIndex"`
	PointsBalance int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (Customer) TableName() string { return "customers" }

// Dog belongs to one customer.
type Dog struct {
	DogID        string    `gorm:"type:uuid;primaryKey"`
	OwnerID      string    `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"not null"`
	SizeCategory string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Dog) TableName() string { return "dogs" }

// ServiceType is immutable reference data.
type ServiceType struct {
	ServiceTypeID     string `gorm:"type:uuid;primaryKey"`
	Kind              string `gorm:"not null;uniqueIndex"`
	DisplayName       string `gorm:"not null"`
	PerDogPerDayCents int64  `gorm:"not null"`
	Active            bool   `gorm:"not null;default:true"`
}

func (ServiceType) TableName() string { return "service_types" }

// Wallet is one-to-one with Customer; balance_cents never goes negative.
type Wallet struct {
	CustomerID               string    `gorm:"type:uuid;primaryKey"`
	BalanceCents             int64     `gorm:"not null;default:0"`
	Tier                     string    `gorm:"not null;default:'standard'"`
	AutoReloadThresholdCents *int64    `gorm:""`
	AutoReloadAmountCents    *int64    `gorm:""`
	UpdatedAt                time.Time `gorm:"not null"`
}

func (Wallet) TableName() string { return "wallets" }

// WalletTransaction mirrors the append-only wallet ledger.
type WalletTransaction struct {
	TransactionID     string         `gorm:"type:uuid;primaryKey"`
	CustomerID        string         `gorm:"type:uuid;not null;index:idx_wallet_tx_customer_created,priority:1"`
	Type              string         `gorm:"not null"`
	AmountCents       int64          `gorm:"not null"`
	BalanceAfterCents int64          `gorm:"not null"`
	BookingID         *string        `gorm:"type:uuid"`
	PaymentID         *string        `gorm:"type:uuid"`
	Description       string         `gorm:""`
	Metadata          datatypes.JSON `gorm:"not null"`
	CreatedAt         time.Time      `gorm:"not null;index:idx_wallet_tx_customer_created,priority:2"`
}

func (WalletTransaction) TableName() string { return "wallet_transactions" }

// PointsTransaction mirrors the append-only points ledger.
type PointsTransaction struct {
	TransactionID string    `gorm:"type:uuid;primaryKey"`
	CustomerID    string    `gorm:"type:uuid;not null;index:idx_points_tx_customer_created,priority:1"`
	Type          string    `gorm:"not null"`
	Amount        int64     `gorm:"not null"`
	BalanceAfter  int64     `gorm:"not null"`
	BookingID     *string   `gorm:"type:uuid"`
	PaymentID     *string   `gorm:"type:uuid"`
	Description   string    `gorm:""`
	CreatedAt     time.Time `gorm:"not null;index:idx_points_tx_customer_created,priority:2"`
}

func (PointsTransaction) TableName() string { return "points_transactions" }

// Booking spans [start_date, end_date] inclusive as ISO date strings, one
// row per booking regardless of span length.
type Booking struct {
	BookingID     string       `gorm:"type:uuid;primaryKey"`
	CustomerID    string       `gorm:"type:uuid;not null;index"`
	ServiceTypeID string       `gorm:"type:uuid;not null"`
	ServiceKind   string       `gorm:"not null"`
	StartDate     string       `gorm:"size:10;not null;index:idx_bookings_span,priority:1"`
	EndDate       string       `gorm:"size:10;not null;index:idx_bookings_span,priority:2"`
	Status        string       `gorm:"not null;index"`
	TotalCents    int64        `gorm:"not null;default:0"`
	Notes         string       `gorm:""`
	CancelReason  string       `gorm:""`
	Dogs          []BookingDog `gorm:"foreignKey:BookingID;references:BookingID"`
	CreatedAt     time.Time    `gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

// BookingDog joins dogs onto bookings with the optional grooming quote.
type BookingDog struct {
	BookingDogID     string `gorm:"type:uuid;primaryKey"`
	BookingID        string `gorm:"type:uuid;not null;index:idx_booking_dogs_booking_dog,unique,priority:1"`
	DogID            string `gorm:"type:uuid;not null;index:idx_booking_dogs_booking_dog,unique,priority:2"`
	ConditionRating  *int   `gorm:""`
	QuotedPriceCents *int64 `gorm:""`
}

func (BookingDog) TableName() string { return "booking_dogs" }

// Payment records one committed checkout. The nullable idempotency key
// carries a unique index so a duplicate submission loses at commit time.
type Payment struct {
	PaymentID         string    `gorm:"type:uuid;primaryKey"`
	CustomerID        string    `gorm:"type:uuid;not null;index"`
	StaffID           *string   `gorm:"type:uuid"`
	Method            string    `gorm:"not null"`
	Status            string    `gorm:"not null"`
	TotalCents        int64     `gorm:"not null"`
	WalletAmountCents int64     `gorm:"not null"`
	CardAmountCents   int64     `gorm:"not null"`
	PointsRedeemed    int64     `gorm:"not null"`
	PointsAmountCents int64     `gorm:"not null"`
	TipCents          int64     `gorm:"not null"`
	PointsEarned      int64     `gorm:"not null"`
	PointsCapped      int64     `gorm:"not null"`
	IdempotencyKey    *string   `gorm:"uniqueIndex:uniq_payments_idempotency_key"`
	TransactionID     string    `gorm:"not null"`
	CreatedAt         time.Time `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// PaymentBooking joins a payment to the bookings it settled.
type PaymentBooking struct {
	PaymentID string `gorm:"type:uuid;primaryKey"`
	BookingID string `gorm:"type:uuid;primaryKey"`
	Position  int    `gorm:"not null"`
}

func (PaymentBooking) TableName() string { return "payment_bookings" }

// AuditLog records staff-initiated state changes.
type AuditLog struct {
	AuditID    string    `gorm:"type:uuid;primaryKey"`
	StaffID    string    `gorm:"type:uuid;not null;index"`
	Action     string    `gorm:"not null"`
	EntityKind string    `gorm:"not null"`
	EntityID   string    `gorm:"type:uuid;not null;index"`
	Detail     string    `gorm:""`
	CreatedAt  time.Time `gorm:"not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (customer *Customer) BeforeCreate(tx *gorm.DB) error {
	if customer.CustomerID == "" {
		customer.CustomerID = uuid.NewString()
	}
	return nil
}

func (dog *Dog) BeforeCreate(tx *gorm.DB) error {
	if dog.DogID == "" {
		dog.DogID = uuid.NewString()
	}
	return nil
}
