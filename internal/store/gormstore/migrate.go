package gormstore

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pawloft/daycare/internal/booking"
)

// Migrate creates or updates the schema for every table the engine uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Customer{},
		&Dog{},
		&ServiceType{},
		&Wallet{},
		&WalletTransaction{},
		&PointsTransaction{},
		&Booking{},
		&BookingDog{},
		&Payment{},
		&PaymentBooking{},
		&AuditLog{},
	)
}

// SeedServiceTypes inserts the catalog rows when they are absent. Grooming
// carries no list price; its total is quoted per dog after rating.
func SeedServiceTypes(db *gorm.DB) error {
	seed := []ServiceType{
		{Kind: string(booking.ServiceDaycare), DisplayName: "Daycare", PerDogPerDayCents: 4200, Active: true},
		{Kind: string(booking.ServiceBoarding), DisplayName: "Boarding", PerDogPerDayCents: 6500, Active: true},
		{Kind: string(booking.ServiceGrooming), DisplayName: "Grooming", PerDogPerDayCents: 0, Active: true},
	}
	for _, serviceType := range seed {
		serviceType.ServiceTypeID = uuid.NewString()
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}},
			DoNothing: true,
		}).Create(&serviceType).Error
		if err != nil {
			return fmt.Errorf("seed service type %s: %w", serviceType.Kind, err)
		}
	}
	return nil
}
