package domain

import (
	"time"

	"gorm.io/datatypes"
)

// BookingStatus is stored as free text; these are the values the system writes.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingPaid      BookingStatus = "paid"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// PaidStatuses is the set that counts as settled for the idempotence check.
var PaidStatuses = []BookingStatus{BookingPaid, BookingConfirmed}

func (s BookingStatus) IsPaid() bool {
	for _, p := range PaidStatuses {
		if s == p {
			return true
		}
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingPaid, BookingConfirmed, BookingCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID               int64          `gorm:"primaryKey" json:"id"`
	BookingReference string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"booking_reference"`
	CustomerID       int64          `gorm:"index;not null" json:"customer_id"`
	TourID           int64          `gorm:"index" json:"tour_id"`
	TourDate         string         `gorm:"type:varchar(10)" json:"tour_date"`
	Adults           int            `json:"adults"`
	Children         int            `json:"children"`
	TotalPax         int            `json:"total_pax"`
	Deposit          float64        `gorm:"type:decimal(10,2);not null;default:0" json:"deposit"`
	RemainingBalance float64        `gorm:"type:decimal(10,2);not null;default:0" json:"remaining_balance"`
	TotalPayment     float64        `gorm:"type:decimal(10,2);not null;default:0" json:"total_payment"`
	Status           BookingStatus  `gorm:"type:varchar(20);index;not null;default:'pending'" json:"status"`
	PaymentID        *string        `gorm:"type:varchar(64);uniqueIndex" json:"payment_id"`
	PaymentDetails   datatypes.JSON `json:"payment_details,omitempty"`
	Notes            string         `gorm:"type:text" json:"notes,omitempty"`
	Source           string         `gorm:"type:varchar(64)" json:"source,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	Customer *Customer    `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Tours    []BookingTour `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"tours,omitempty"`
}

func (Booking) TableName() string { return "bookings" }

// BookingTour is one tour occurrence inside a booking.
type BookingTour struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	BookingID int64     `gorm:"index;not null" json:"booking_id"`
	TourID    int64     `gorm:"index" json:"tour_id"`
	ShipID    *int64    `gorm:"index" json:"ship_id,omitempty"`
	AgentID   *int64    `gorm:"index" json:"agent_id,omitempty"`
	TourDate  string    `gorm:"type:varchar(10)" json:"tour_date"`
	Adults    int       `json:"adults"`
	Children  int       `json:"children"`
	TotalPax  int       `json:"total_pax"`
	Price     float64   `gorm:"type:decimal(10,2)" json:"price"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BookingTour) TableName() string { return "booking_tours" }

type Customer struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone     string    `gorm:"type:varchar(50)" json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
