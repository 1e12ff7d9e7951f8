package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"tourbooking/internal/database"
	"tourbooking/internal/domain"
)

var ErrAdminNotFound = errors.New("admin user not found")

type AdminUserRepository struct {
	gw *database.Gateway
}

func NewAdminUserRepository(gw *database.Gateway) *AdminUserRepository {
	return &AdminUserRepository{gw: gw}
}

func (r *AdminUserRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	var u domain.AdminUser
	err := r.gw.Read(ctx, func(tx *gorm.DB) error {
		return tx.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *AdminUserRepository) GetByID(ctx context.Context, id int64) (*domain.AdminUser, error) {
	var u domain.AdminUser
	err := r.gw.Read(ctx, func(tx *gorm.DB) error {
		return tx.First(&u, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
