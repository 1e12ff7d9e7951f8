package database

import (
	"gorm.io/gorm"

	"tourbooking/internal/domain"
)

// Models lists every table the application owns, parents before children.
func Models() []interface{} {
	return []interface{}{
		&domain.Customer{},
		&domain.Tour{},
		&domain.Ship{},
		&domain.Agent{},
		&domain.Package{},
		&domain.Booking{},
		&domain.BookingTour{},
		&domain.PaymentEvent{},
		&domain.AdminUser{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
