package database

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tourbooking/internal/domain"
)

// Fixtures is the static catalog used by the memory data source and `tourctl seed`.
type Fixtures struct {
	Tours    []domain.Tour
	Ships    []domain.Ship
	Agents   []domain.Agent
	Packages []domain.Package
}

func DefaultFixtures() Fixtures {
	return Fixtures{
		Tours: []domain.Tour{
			{ID: 1, Name: "Grand Canal by Gondola", Location: "Venice", DurationMinutes: 45, AdultPrice: 40, ChildPrice: 20, Active: true},
			{ID: 2, Name: "Murano & Burano Islands", Location: "Venice", DurationMinutes: 300, AdultPrice: 35, ChildPrice: 18, Active: true},
			{ID: 3, Name: "Lagoon Sunset Cruise", Location: "Venice", DurationMinutes: 120, AdultPrice: 55, ChildPrice: 30, Active: true},
			{ID: 4, Name: "Doge's Palace Walk", Location: "Venice", DurationMinutes: 90, AdultPrice: 30, ChildPrice: 15, Active: true},
			{ID: 5, Name: "Lido Beach Day Trip", Location: "Lido", DurationMinutes: 240, AdultPrice: 60, ChildPrice: 30, Active: true},
			{ID: 6, Name: "Torcello Nature Tour", Location: "Torcello", DurationMinutes: 180, AdultPrice: 45, ChildPrice: 22, Active: false},
		},
		Ships: []domain.Ship{
			{ID: 1, Name: "Serenissima", Capacity: 40, Active: true},
			{ID: 2, Name: "Laguna Blu", Capacity: 24, Active: true},
			{ID: 3, Name: "San Marco", Capacity: 60, Active: true},
		},
		Agents: []domain.Agent{
			{ID: 1, Name: "Giulia Ferri", Email: "giulia@agents.example", CommissionRate: 10, Active: true},
			{ID: 2, Name: "Marco Bellini", Email: "marco@agents.example", CommissionRate: 12.5, Active: true},
		},
		Packages: []domain.Package{
			{ID: 1, Name: "Venice Essentials", Price: 95, TourIDs: datatypes.JSON(`[1,4]`), Active: true},
			{ID: 2, Name: "Islands & Sunset", Price: 80, TourIDs: datatypes.JSON(`[2,3]`), Active: true},
		},
	}
}

// Seed upserts the fixtures by primary key, so it can run repeatedly.
func Seed(db *gorm.DB, f Fixtures) error {
	return db.Transaction(func(tx *gorm.DB) error {
		// each Create needs its own statement; a shared one keeps the first model's schema
		upsert := func() *gorm.DB { return tx.Clauses(clause.OnConflict{UpdateAll: true}) }
		if len(f.Tours) > 0 {
			if err := upsert().Create(&f.Tours).Error; err != nil {
				return fmt.Errorf("seed tours: %w", err)
			}
		}
		if len(f.Ships) > 0 {
			if err := upsert().Create(&f.Ships).Error; err != nil {
				return fmt.Errorf("seed ships: %w", err)
			}
		}
		if len(f.Agents) > 0 {
			if err := upsert().Create(&f.Agents).Error; err != nil {
				return fmt.Errorf("seed agents: %w", err)
			}
		}
		if len(f.Packages) > 0 {
			if err := upsert().Create(&f.Packages).Error; err != nil {
				return fmt.Errorf("seed packages: %w", err)
			}
		}
		if tx.Dialector.Name() == "postgres" {
			// fixtures carry explicit ids; move the serial sequences past them
			for _, table := range []string{"tours", "ships", "agents", "packages"} {
				q := fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 1))`, table, table)
				if err := tx.Exec(q).Error; err != nil {
					return fmt.Errorf("reset %s sequence: %w", table, err)
				}
			}
		}
		return nil
	})
}

// SeedAdmin creates or resets the password of an admin account.
func SeedAdmin(db *gorm.DB, email, password, name string) (*domain.AdminUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	admin := domain.AdminUser{Email: email, PasswordHash: string(hash), Name: name, Role: domain.RoleAdmin}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "name", "role", "updated_at"}),
	}).Create(&admin).Error
	if err != nil {
		return nil, err
	}
	if err := db.Where("email = ?", email).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}
