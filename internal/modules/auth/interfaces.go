package auth

import (
	"context"
	"time"

	"tourbooking/internal/domain"
)

type adminStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	GetByID(ctx context.Context, id int64) (*domain.AdminUser, error)
}

type tokenIssuer interface {
	GenerateToken(adminID int64, email, role string) (string, error)
	TTL() time.Duration
}
