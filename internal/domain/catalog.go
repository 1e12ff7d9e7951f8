package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Tour struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name" binding:"required"`
	Description     string    `gorm:"type:text" json:"description"`
	Location        string    `gorm:"type:varchar(255)" json:"location"`
	DurationMinutes int       `json:"duration_minutes"`
	AdultPrice      float64   `gorm:"type:decimal(10,2)" json:"adult_price"`
	ChildPrice      float64   `gorm:"type:decimal(10,2)" json:"child_price"`
	Active          bool      `gorm:"not null" json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Tour) TableName() string { return "tours" }

type Ship struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name" binding:"required"`
	Capacity  int       `json:"capacity"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Ship) TableName() string { return "ships" }

// Agent is a booking agent credited on line items.
type Agent struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name" binding:"required"`
	Email          string    `gorm:"type:varchar(255)" json:"email"`
	Phone          string    `gorm:"type:varchar(50)" json:"phone"`
	CommissionRate float64   `gorm:"type:decimal(5,2)" json:"commission_rate"`
	Active         bool      `gorm:"not null" json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Agent) TableName() string { return "agents" }

// Package bundles several tours under one price.
type Package struct {
	ID          int64          `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name" binding:"required"`
	Description string         `gorm:"type:text" json:"description"`
	Price       float64        `gorm:"type:decimal(10,2)" json:"price"`
	TourIDs     datatypes.JSON `json:"tour_ids"`
	Active      bool           `gorm:"not null" json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Package) TableName() string { return "packages" }

type AdminUser struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	Role         string    `gorm:"type:varchar(20);not null;default:'admin'" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (AdminUser) TableName() string { return "admin_users" }

const RoleAdmin = "admin"
