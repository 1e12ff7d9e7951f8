package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"tourbooking/internal/domain"
)

type CustomerRepository struct{}

func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{}
}

// Upsert finds the customer by e-mail and refreshes name and phone, or inserts
// a new row. It runs on the caller's transaction.
func (r *CustomerRepository) Upsert(tx *gorm.DB, name, email, phone string) (*domain.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var c domain.Customer
	err := tx.Where("email = ?", email).First(&c).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{"name": strings.TrimSpace(name)}
		if p := strings.TrimSpace(phone); p != "" {
			updates["phone"] = p
		}
		if err := tx.Model(&c).Updates(updates).Error; err != nil {
			return nil, err
		}
		return &c, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		c = domain.Customer{Name: strings.TrimSpace(name), Email: email, Phone: strings.TrimSpace(phone)}
		if err := tx.Create(&c).Error; err != nil {
			return nil, err
		}
		return &c, nil
	default:
		return nil, err
	}
}
